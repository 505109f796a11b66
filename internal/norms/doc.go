// Package norms maps findings to WCAG 2.x success criteria, BITV 2.0 test
// steps and EN 301 549 clauses.
//
// The built-in table (rules_mapping.yaml) is keyed by finding id. Missing
// references are derived: WCAG from rule engine tags, BITV and EN 301 549
// from WCAG by the chapter 9 prefix.
package norms
