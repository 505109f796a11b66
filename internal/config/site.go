package config

import (
	"maps"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds site-specific configuration for a single host.
// It allows authenticating the browser session against staging sites or
// pages behind a login.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .a11yscan.yaml configuration file.
//
// Crawl, Norms and Score are kept as raw YAML nodes and decoded over the
// defaults in ApplyTo, so keys missing from the file keep their default value.
type File struct {
	Profile       string             `yaml:"profile,omitempty"`
	Modules       map[string]bool    `yaml:"modules,omitempty"`
	ModuleOptions map[string]Options `yaml:"moduleOptions,omitempty"`
	Profiles      map[string]Profile `yaml:"profiles,omitempty"`
	Crawl         yaml.Node          `yaml:"crawl,omitempty"`
	Norms         yaml.Node          `yaml:"norms,omitempty"`
	Score         yaml.Node          `yaml:"score,omitempty"`
	OutputDir     string             `yaml:"outputDir,omitempty"`

	// Sites maps hostnames to their site-specific configurations.
	// Keys are hostnames without scheme (e.g., "www.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// ApplyTo merges the file into cfg. Values present in the file replace
// the current ones.
func (cf *File) ApplyTo(cfg *Config) error {
	if cf.Profile != "" {
		cfg.Profile = cf.Profile
	}
	if len(cf.Modules) > 0 {
		if cfg.ModuleToggles == nil {
			cfg.ModuleToggles = make(map[string]bool)
		}
		maps.Copy(cfg.ModuleToggles, cf.Modules)
	}
	if len(cf.ModuleOptions) > 0 {
		if cfg.ModuleOptions == nil {
			cfg.ModuleOptions = make(map[string]Options)
		}
		maps.Copy(cfg.ModuleOptions, cf.ModuleOptions)
	}
	if len(cf.Profiles) > 0 {
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[string]Profile)
		}
		maps.Copy(cfg.Profiles, cf.Profiles)
	}
	if cf.OutputDir != "" {
		cfg.OutputDir = cf.OutputDir
	}

	if cf.Crawl.Kind != 0 {
		if err := cf.Crawl.Decode(&cfg.Crawl); err != nil {
			return err
		}
	}
	if cf.Norms.Kind != 0 {
		if err := cf.Norms.Decode(&cfg.Norms); err != nil {
			return err
		}
	}
	if cf.Score.Kind != 0 {
		if err := cf.Score.Decode(&cfg.Score); err != nil {
			return err
		}
	}

	cfg.SiteConfigs = cf
	return nil
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	result := cf.Defaults
	if result.Headers != nil {
		result.Headers = maps.Clone(result.Headers)
	}

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			maps.Copy(result.Headers, siteConfig.Headers)
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
	}

	return result
}
