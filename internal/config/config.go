package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "a11yscan"

	// DefaultMaxPages bounds the visited set. 50 pages cover the templates of
	// most sites without turning an audit into a full mirror.
	DefaultMaxPages = 50

	// DefaultMaxDepth is the maximum link distance from the seed.
	DefaultMaxDepth = 3

	// DefaultNavigationTimeout aborts a single page load.
	DefaultNavigationTimeout = 45 * time.Second

	// DefaultMinDelay and DefaultMaxDelay bound the randomized pause between page loads.
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 1500 * time.Millisecond

	// DefaultUserAgent identifies a11yscan in HTTP requests made outside the browser.
	DefaultUserAgent = "a11yscan/1.0 (+https://github.com/nao1215/a11yscan)"

	// DefaultProfile is used when neither modules nor a profile are given.
	DefaultProfile = "standard"

	// DefaultDownloadMaxBytes skips documents larger than 15 MiB.
	DefaultDownloadMaxBytes = 15 * 1024 * 1024

	// DefaultDownloadMaxPerPage caps documents collected from one page.
	DefaultDownloadMaxPerPage = 20

	// DefaultDownloadMaxTotal caps documents collected over the whole crawl.
	DefaultDownloadMaxTotal = 25

	// DefaultDownloadConcurrency is the number of parallel document probes.
	DefaultDownloadConcurrency = 4

	// DefaultDownloadRPS limits document probes per second.
	DefaultDownloadRPS = 2.0
)

// ScopeMode decides which discovered links are eligible for crawling.
type ScopeMode string

const (
	// ScopeSameOrigin accepts links with the seed's scheme, host and port.
	ScopeSameOrigin ScopeMode = "same-origin"
	// ScopeSameSite accepts links with the seed's hostname.
	ScopeSameSite ScopeMode = "same-site"
	// ScopeDomainAllowlist accepts the seed host plus listed domains and their subdomains.
	ScopeDomainAllowlist ScopeMode = "domain-allowlist"
)

// RobotsMode decides how robots.txt rules affect the crawl.
type RobotsMode string

const (
	// RobotsRespect never analyzes disallowed URLs.
	RobotsRespect RobotsMode = "respect"
	// RobotsAudit visits disallowed URLs for link discovery only and counts them.
	RobotsAudit RobotsMode = "audit"
	// RobotsIgnore does not fetch robots.txt at all.
	RobotsIgnore RobotsMode = "ignore"
)

// ConsentMode decides how cookie banners are dismissed.
type ConsentMode string

const (
	// ConsentAuto clicks the first button matching a built-in vocabulary.
	ConsentAuto ConsentMode = "auto"
	// ConsentCustom clicks the configured selector.
	ConsentCustom ConsentMode = "custom"
	// ConsentOff leaves banners alone.
	ConsentOff ConsentMode = "off"
)

// Wait policies understood by the browser.
const (
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
	WaitNetworkIdle      = "networkidle"
)

// Score formulas.
const (
	ScoreWeighted = "weighted"
	ScoreDelta    = "delta"
)

// Downloads configures document link classification and probing.
type Downloads struct {
	Enabled           bool     `yaml:"enabled"`
	Types             []string `yaml:"types,omitempty"`
	ContentTypes      []string `yaml:"contentTypes,omitempty"`
	MaxBytes          int64    `yaml:"maxBytes,omitempty"`
	MaxPerPage        int      `yaml:"maxPerPage,omitempty"`
	MaxTotal          int      `yaml:"maxTotal,omitempty"`
	Concurrency       int      `yaml:"concurrency,omitempty"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond,omitempty"`
}

// DefaultDownloadTypes are the file extensions diverted to the download set.
func DefaultDownloadTypes() []string {
	return []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "csv", "txt", "odt", "ods", "odp"}
}

// DefaultDownloadContentTypes are the content types accepted by the probe.
func DefaultDownloadContentTypes() []string {
	return []string{
		"application/pdf",
		"application/msword",
		"application/vnd.ms-powerpoint",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/csv",
		"text/plain",
		"application/vnd.oasis.opendocument.text",
		"application/vnd.oasis.opendocument.spreadsheet",
		"application/vnd.oasis.opendocument.presentation",
	}
}

// Crawl holds the crawl engine options.
type Crawl struct {
	Scope              ScopeMode   `yaml:"scope,omitempty"`
	AllowDomains       []string    `yaml:"allowDomains,omitempty"`
	RespectRobots      RobotsMode  `yaml:"respectRobots,omitempty"`
	SimulateDisallowed bool        `yaml:"simulateDisallowed,omitempty"`
	SeedSitemap        bool        `yaml:"seedSitemap,omitempty"`
	MaxPages           int         `yaml:"maxPages,omitempty"`
	MaxDepth           int         `yaml:"maxDepth,omitempty"`
	RateLimitDelayMs   []int       `yaml:"rateLimitDelayMs,omitempty"`
	NavigationTimeout  int         `yaml:"navigationTimeoutMs,omitempty"`
	WaitPolicy         string      `yaml:"waitPolicy,omitempty"`
	CheckIframes       bool        `yaml:"checkIframes,omitempty"`
	ConsentClick       ConsentMode `yaml:"consentClick,omitempty"`
	ConsentSelector    string      `yaml:"consentSelector,omitempty"`
	Interactions       bool        `yaml:"interactions,omitempty"`
	StripQuery         bool        `yaml:"stripQuery,omitempty"`
	HashRoutes         bool        `yaml:"hashRoutes,omitempty"`
	UserAgent          string      `yaml:"userAgent,omitempty"`
	Downloads          Downloads   `yaml:"downloads,omitempty"`

	// IgnorePatterns and FollowPatterns are glob patterns matched against URL paths.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// Delay returns the randomized delay bounds.
func (c Crawl) Delay() (time.Duration, time.Duration) {
	if len(c.RateLimitDelayMs) != 2 {
		return DefaultMinDelay, DefaultMaxDelay
	}
	return time.Duration(c.RateLimitDelayMs[0]) * time.Millisecond,
		time.Duration(c.RateLimitDelayMs[1]) * time.Millisecond
}

// NavigationTimeoutDuration returns the per-page navigation timeout.
func (c Crawl) NavigationTimeoutDuration() time.Duration {
	if c.NavigationTimeout <= 0 {
		return DefaultNavigationTimeout
	}
	return time.Duration(c.NavigationTimeout) * time.Millisecond
}

// Norms configures norm mapping.
type Norms struct {
	// MappingFile is an optional YAML table merged over the built-in table.
	MappingFile string `yaml:"mappingFile,omitempty"`

	// LegalContext is attached to findings whose table entry has none,
	// e.g. "BITV 2.0 / BFSG".
	LegalContext string `yaml:"legalContext,omitempty"`
}

// Score configures scoring.
type Score struct {
	Formula string `yaml:"formula,omitempty"`
}

// Config holds all configuration options for a11yscan.
// This struct is populated from defaults, the config file, environment
// variables and CLI flags, in that order, and then passed through the
// application rather than kept in global state.
type Config struct {
	// URL is the seed URL of the scan.
	URL string

	// Profile names a module set. See BuiltinProfiles.
	Profile string

	// Modules is an explicit list of analyzer slugs. It wins over Profile.
	// "*" selects every registered analyzer.
	Modules []string

	// ModuleToggles enables or disables single analyzers on top of the profile.
	ModuleToggles map[string]bool

	// ModuleOptions holds per-analyzer settings keyed by slug.
	ModuleOptions map[string]Options

	// Profiles are user-defined profiles from the config file.
	Profiles map[string]Profile

	Crawl Crawl
	Norms Norms
	Score Score

	// OutputDir receives scan.json, the Markdown summary and analyzer artifacts.
	OutputDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// JSONReport and MarkdownReport select the report printed to stdout or ReportFile.
	JSONReport     bool
	MarkdownReport bool
	ReportFile     string

	// DBDir is the directory of the SQLite scan history.
	DBDir    string
	SaveToDB bool

	// ChromePath overrides the browser executable. Empty means auto-detect.
	ChromePath string

	// Headful shows the browser window.
	Headful bool

	// ConfigFilePath is the path given with --config.
	ConfigFilePath string

	// SiteConfigs holds per-site cookies and headers loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (page caps, timeouts,
// download limits). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Profile:   DefaultProfile,
		LogFormat: "text",
		Crawl: Crawl{
			Scope:             ScopeSameOrigin,
			RespectRobots:     RobotsRespect,
			MaxPages:          DefaultMaxPages,
			MaxDepth:          DefaultMaxDepth,
			RateLimitDelayMs:  []int{int(DefaultMinDelay / time.Millisecond), int(DefaultMaxDelay / time.Millisecond)},
			NavigationTimeout: int(DefaultNavigationTimeout / time.Millisecond),
			WaitPolicy:        WaitNetworkIdle,
			ConsentClick:      ConsentOff,
			UserAgent:         DefaultUserAgent,
			Downloads: Downloads{
				Enabled:           true,
				Types:             DefaultDownloadTypes(),
				ContentTypes:      DefaultDownloadContentTypes(),
				MaxBytes:          DefaultDownloadMaxBytes,
				MaxPerPage:        DefaultDownloadMaxPerPage,
				MaxTotal:          DefaultDownloadMaxTotal,
				Concurrency:       DefaultDownloadConcurrency,
				RequestsPerSecond: DefaultDownloadRPS,
			},
		},
		Score: Score{Formula: ScoreWeighted},
	}
}

// XDGDataDir returns the XDG data directory for a11yscan.
// On Linux: ~/.local/share/a11yscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for a11yscan.
// On Linux: ~/.config/a11yscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ModuleOptionsFor returns the options of one analyzer, never nil.
func (c *Config) ModuleOptionsFor(slug string) Options {
	if opts, ok := c.ModuleOptions[slug]; ok && opts != nil {
		return opts
	}
	return Options{}
}

// Validate checks if the configuration is valid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast before the browser starts. We return the first
// error found because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoTarget
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTargetURL
	}

	if err := c.Crawl.validate(); err != nil {
		return err
	}

	if len(c.Modules) == 0 {
		if _, ok := LookupProfile(c.Profile, c.Profiles); !ok {
			return ErrUnknownProfile
		}
	}

	switch c.Score.Formula {
	case ScoreWeighted, ScoreDelta:
	default:
		return ErrInvalidScoreFormula
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

func (c Crawl) validate() error {
	switch c.Scope {
	case ScopeSameOrigin, ScopeSameSite:
	case ScopeDomainAllowlist:
		if len(c.AllowDomains) == 0 {
			return ErrEmptyAllowlist
		}
	default:
		return ErrInvalidScope
	}

	switch c.RespectRobots {
	case RobotsRespect, RobotsAudit, RobotsIgnore:
	default:
		return ErrInvalidRobotsMode
	}

	switch c.ConsentClick {
	case ConsentAuto, ConsentOff:
	case ConsentCustom:
		if strings.TrimSpace(c.ConsentSelector) == "" {
			return ErrConsentSelectorRequired
		}
	default:
		return ErrInvalidConsentMode
	}

	if !slices.Contains([]string{WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle}, c.WaitPolicy) {
		return ErrInvalidWaitPolicy
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if len(c.RateLimitDelayMs) != 2 || c.RateLimitDelayMs[0] < 0 || c.RateLimitDelayMs[1] < c.RateLimitDelayMs[0] {
		return ErrInvalidRateLimit
	}
	if c.NavigationTimeout <= 0 {
		return ErrInvalidNavigationTimeout
	}

	d := c.Downloads
	if d.MaxBytes < 0 || d.MaxPerPage < 0 || d.MaxTotal < 0 || d.Concurrency < 0 || d.RequestsPerSecond < 0 {
		return ErrInvalidDownloadLimits
	}
	return nil
}
