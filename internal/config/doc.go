// Package config provides configuration structures and utilities for a11yscan.
// It defines crawl options (scope, robots handling, limits, downloads),
// analyzer selection through profiles and module toggles, norm mapping and
// scoring settings, and the YAML config file with per-site overrides.
package config
