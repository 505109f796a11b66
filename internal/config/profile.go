package config

import (
	"maps"
	"slices"
	"strings"
)

// Profile is a named set of analyzers.
type Profile struct {
	Description string   `yaml:"description,omitempty"`
	Modules     []string `yaml:"modules"`
}

// AllModules selects every registered analyzer.
const AllModules = "*"

// BuiltinProfiles returns the profiles shipped with a11yscan.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"quick": {
			Description: "Structure only: headings, landmarks, links and document metadata",
			Modules:     []string{"headings", "landmarks", "links", "meta-doc"},
		},
		"standard": {
			Description: "All built-in analyzers except the in-page rule engine",
			Modules: []string{
				"text-contrast", "keyboard", "landmarks", "links", "forms",
				"headings", "skiplinks", "images", "meta-doc",
			},
		},
		"full": {
			Description: "Every registered analyzer",
			Modules:     []string{AllModules},
		},
	}
}

// LookupProfile finds a profile by name. Custom profiles shadow built-in ones.
func LookupProfile(name string, custom map[string]Profile) (Profile, bool) {
	if p, ok := custom[name]; ok {
		return p, true
	}
	p, ok := BuiltinProfiles()[name]
	return p, ok
}

// ProfileNames returns the sorted names of built-in and custom profiles.
func ProfileNames(custom map[string]Profile) []string {
	all := BuiltinProfiles()
	maps.Copy(all, custom)
	return slices.Sorted(maps.Keys(all))
}

// ParseModuleList splits a comma separated list of slugs.
func ParseModuleList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

// Options holds free-form analyzer settings decoded from YAML.
type Options map[string]any

// Int returns an integer option or def.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns a float option or def.
func (o Options) Float(key string, def float64) float64 {
	switch v := o[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return def
	}
}

// Bool returns a boolean option or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// String returns a string option or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Strings returns a string list option or def.
func (o Options) Strings(key string, def []string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return def
	}
}

// StringMap returns a string-to-string option, e.g. a severity override map.
func (o Options) StringMap(key string) map[string]string {
	out := make(map[string]string)
	switch v := o[key].(type) {
	case map[string]string:
		maps.Copy(out, v)
	case map[string]any:
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
