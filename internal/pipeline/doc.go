// Package pipeline runs accessibility analyzers against a loaded page.
//
// Analyzers are registered in a Registry that is built once per run. A
// Selection (explicit module list, profile, config toggles) picks the
// analyzers; prerequisites declared through Dependent are ordered first.
//
// The Pipeline executes the selected analyzers sequentially for each page.
// Every analyzer is isolated: an error or panic is recorded as a
// model.Failure and the remaining analyzers still run. A dependent whose
// prerequisite produced no result fails closed instead of running on
// missing data.
//
// Design decision: Analyzers run sequentially on a page because:
// 1. They share one browser tab and some move keyboard focus
// 2. Later analyzers read earlier results through Context.Prior
package pipeline
