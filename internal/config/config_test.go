package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional, so every default is checked explicitly.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default scope is same-origin", func(t *testing.T) {
		t.Parallel()
		if cfg.Crawl.Scope != ScopeSameOrigin {
			t.Errorf("expected scope same-origin, got %q", cfg.Crawl.Scope)
		}
	})

	t.Run("default robots mode is respect", func(t *testing.T) {
		t.Parallel()
		if cfg.Crawl.RespectRobots != RobotsRespect {
			t.Errorf("expected robots respect, got %q", cfg.Crawl.RespectRobots)
		}
	})

	t.Run("default limits", func(t *testing.T) {
		t.Parallel()
		if cfg.Crawl.MaxPages != 50 {
			t.Errorf("expected MaxPages 50, got %d", cfg.Crawl.MaxPages)
		}
		if cfg.Crawl.MaxDepth != 3 {
			t.Errorf("expected MaxDepth 3, got %d", cfg.Crawl.MaxDepth)
		}
		if cfg.Crawl.NavigationTimeoutDuration() != 45*time.Second {
			t.Errorf("expected navigation timeout 45s, got %v", cfg.Crawl.NavigationTimeoutDuration())
		}
	})

	t.Run("default delay range", func(t *testing.T) {
		t.Parallel()
		minDelay, maxDelay := cfg.Crawl.Delay()
		if minDelay != 500*time.Millisecond || maxDelay != 1500*time.Millisecond {
			t.Errorf("expected [500ms,1500ms], got [%v,%v]", minDelay, maxDelay)
		}
	})

	t.Run("default downloads", func(t *testing.T) {
		t.Parallel()
		d := cfg.Crawl.Downloads
		if !d.Enabled {
			t.Error("expected downloads enabled")
		}
		if d.MaxBytes != 15*1024*1024 {
			t.Errorf("expected 15MiB limit, got %d", d.MaxBytes)
		}
		if d.MaxPerPage != 20 || d.MaxTotal != 25 {
			t.Errorf("expected 20 per page and 25 total, got %d and %d", d.MaxPerPage, d.MaxTotal)
		}
	})

	t.Run("default profile and formula", func(t *testing.T) {
		t.Parallel()
		if cfg.Profile != "standard" {
			t.Errorf("expected profile standard, got %q", cfg.Profile)
		}
		if cfg.Score.Formula != ScoreWeighted {
			t.Errorf("expected weighted formula, got %q", cfg.Score.Formula)
		}
	})
}

// TestConfigValidate verifies that each invalid option yields its sentinel error.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.URL = "https://example.com/"
		return cfg
	}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid default config", func(*Config) {}, nil},
		{"missing url", func(c *Config) { c.URL = "" }, ErrNoTarget},
		{"relative url", func(c *Config) { c.URL = "/index.html" }, ErrInvalidTargetURL},
		{"ftp url", func(c *Config) { c.URL = "ftp://example.com/" }, ErrInvalidTargetURL},
		{"unknown scope", func(c *Config) { c.Crawl.Scope = "everything" }, ErrInvalidScope},
		{"allowlist without domains", func(c *Config) { c.Crawl.Scope = ScopeDomainAllowlist }, ErrEmptyAllowlist},
		{"allowlist with domains", func(c *Config) {
			c.Crawl.Scope = ScopeDomainAllowlist
			c.Crawl.AllowDomains = []string{"example.org"}
		}, nil},
		{"unknown robots mode", func(c *Config) { c.Crawl.RespectRobots = "maybe" }, ErrInvalidRobotsMode},
		{"unknown consent mode", func(c *Config) { c.Crawl.ConsentClick = "always" }, ErrInvalidConsentMode},
		{"custom consent without selector", func(c *Config) { c.Crawl.ConsentClick = ConsentCustom }, ErrConsentSelectorRequired},
		{"unknown wait policy", func(c *Config) { c.Crawl.WaitPolicy = "forever" }, ErrInvalidWaitPolicy},
		{"zero max pages", func(c *Config) { c.Crawl.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative depth", func(c *Config) { c.Crawl.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"inverted delay", func(c *Config) { c.Crawl.RateLimitDelayMs = []int{2000, 1000} }, ErrInvalidRateLimit},
		{"delay with one value", func(c *Config) { c.Crawl.RateLimitDelayMs = []int{100} }, ErrInvalidRateLimit},
		{"zero navigation timeout", func(c *Config) { c.Crawl.NavigationTimeout = 0 }, ErrInvalidNavigationTimeout},
		{"negative download bytes", func(c *Config) { c.Crawl.Downloads.MaxBytes = -1 }, ErrInvalidDownloadLimits},
		{"unknown profile", func(c *Config) { c.Profile = "nope" }, ErrUnknownProfile},
		{"unknown profile ignored with explicit modules", func(c *Config) {
			c.Profile = "nope"
			c.Modules = []string{"headings"}
		}, nil},
		{"unknown formula", func(c *Config) { c.Score.Formula = "magic" }, ErrInvalidScoreFormula},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"both report formats", func(c *Config) {
			c.JSONReport = true
			c.MarkdownReport = true
		}, ErrConflictingReportFormats},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Headers:        map[string]string{"X-Scan": "a11y"},
			IgnorePatterns: []string{"/logout*"},
		},
		Sites: map[string]SiteConfig{
			"staging.example.com": {
				Cookie:  "session=abc",
				Headers: map[string]string{"Authorization": "Basic xyz"},
				Depth:   5,
			},
		},
	}

	t.Run("merges site over defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("staging.example.com")
		if sc.Cookie != "session=abc" {
			t.Errorf("expected cookie, got %q", sc.Cookie)
		}
		if sc.Depth != 5 {
			t.Errorf("expected depth 5, got %d", sc.Depth)
		}
		if sc.Headers["X-Scan"] != "a11y" || sc.Headers["Authorization"] != "Basic xyz" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
		if len(sc.IgnorePatterns) != 1 {
			t.Errorf("expected default ignore patterns, got %v", sc.IgnorePatterns)
		}
	})

	t.Run("does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("staging.example.com")
		if _, ok := cf.Defaults.Headers["Authorization"]; ok {
			t.Error("defaults must not receive site headers")
		}
	})

	t.Run("unknown host returns defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("other.example.com")
		if sc.Cookie != "" {
			t.Errorf("expected no cookie, got %q", sc.Cookie)
		}
	})

	t.Run("nil file returns zero value", func(t *testing.T) {
		t.Parallel()

		var empty *File
		if sc := empty.GetSiteConfig("example.com"); sc.Cookie != "" || sc.Headers != nil {
			t.Errorf("expected zero SiteConfig, got %+v", sc)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("crawl: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("applies values over defaults", func(t *testing.T) {
		t.Parallel()

		content := strings.Join([]string{
			"profile: quick",
			"modules:",
			"  dom-aria: true",
			"  images: false",
			"moduleOptions:",
			"  keyboard:",
			"    maxTabs: 30",
			"crawl:",
			"  maxPages: 10",
			"  scope: same-site",
			"  rateLimitDelayMs: [100, 200]",
			"  downloads:",
			"    maxPerPage: 5",
			"norms:",
			"  legalContext: BITV 2.0",
			"score:",
			"  formula: delta",
			"sites:",
			"  example.com:",
			"    cookie: a=b",
		}, "\n")
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		if err := cf.ApplyTo(cfg); err != nil {
			t.Fatalf("ApplyTo failed: %v", err)
		}

		if cfg.Profile != "quick" {
			t.Errorf("expected profile quick, got %q", cfg.Profile)
		}
		if !cfg.ModuleToggles["dom-aria"] || cfg.ModuleToggles["images"] {
			t.Errorf("unexpected toggles %v", cfg.ModuleToggles)
		}
		if got := cfg.ModuleOptionsFor("keyboard").Int("maxTabs", 50); got != 30 {
			t.Errorf("expected maxTabs 30, got %d", got)
		}
		if cfg.Crawl.MaxPages != 10 || cfg.Crawl.Scope != ScopeSameSite {
			t.Errorf("crawl values not applied: %+v", cfg.Crawl)
		}
		if cfg.Crawl.MaxDepth != DefaultMaxDepth {
			t.Errorf("expected untouched MaxDepth default, got %d", cfg.Crawl.MaxDepth)
		}
		if cfg.Crawl.Downloads.MaxPerPage != 5 || cfg.Crawl.Downloads.MaxTotal != DefaultDownloadMaxTotal {
			t.Errorf("downloads not merged: %+v", cfg.Crawl.Downloads)
		}
		if minDelay, _ := cfg.Crawl.Delay(); minDelay != 100*time.Millisecond {
			t.Errorf("expected 100ms min delay, got %v", minDelay)
		}
		if cfg.Norms.LegalContext != "BITV 2.0" {
			t.Errorf("expected legal context, got %q", cfg.Norms.LegalContext)
		}
		if cfg.Score.Formula != ScoreDelta {
			t.Errorf("expected delta formula, got %q", cfg.Score.Formula)
		}
		if cfg.SiteConfigs.GetSiteConfig("example.com").Cookie != "a=b" {
			t.Error("expected site config to be kept")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("profile: quick\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvProfile: "full",
		EnvModules: "headings, links,headings",
	}
	cfg := NewConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Profile != "full" {
		t.Errorf("expected profile full, got %q", cfg.Profile)
	}
	if len(cfg.Modules) != 2 || cfg.Modules[0] != "headings" || cfg.Modules[1] != "links" {
		t.Errorf("expected [headings links], got %v", cfg.Modules)
	}
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	custom := map[string]Profile{
		"quick": {Modules: []string{"headings"}},
		"forms": {Modules: []string{"forms"}},
	}

	p, ok := LookupProfile("quick", custom)
	if !ok || len(p.Modules) != 1 {
		t.Errorf("expected custom quick profile to shadow built-in, got %+v", p)
	}
	if _, ok := LookupProfile("standard", custom); !ok {
		t.Error("expected built-in standard profile")
	}
	if _, ok := LookupProfile("missing", custom); ok {
		t.Error("expected missing profile to be absent")
	}

	names := ProfileNames(custom)
	want := []string{"forms", "full", "quick", "standard"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := Options{
		"int":     7,
		"float":   0.5,
		"intish":  3.0,
		"bool":    true,
		"str":     "x",
		"list":    []any{"a", 1, "b"},
		"mapping": map[string]any{"axe:color-contrast": "critical", "bad": 1},
	}

	if o.Int("int", 0) != 7 || o.Int("intish", 0) != 3 || o.Int("missing", 9) != 9 {
		t.Error("Int returned unexpected values")
	}
	if o.Float("float", 0) != 0.5 || o.Float("int", 0) != 7 {
		t.Error("Float returned unexpected values")
	}
	if !o.Bool("bool", false) || o.Bool("missing", false) {
		t.Error("Bool returned unexpected values")
	}
	if o.String("str", "") != "x" || o.String("int", "def") != "def" {
		t.Error("String returned unexpected values")
	}
	if got := o.Strings("list", nil); len(got) != 2 || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
	if got := o.StringMap("mapping"); len(got) != 1 || got["axe:color-contrast"] != "critical" {
		t.Errorf("unexpected map %v", got)
	}
}
