package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and are fatal: the crawl
// never starts when one of them is reported.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide a URL to scan")

	// ErrInvalidTargetURL is returned when the seed is not an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid target URL: must be an absolute http or https URL")

	// ErrInvalidScope is returned for an unknown scope mode.
	ErrInvalidScope = errors.New("invalid scope: must be same-origin, same-site or domain-allowlist")

	// ErrEmptyAllowlist is returned when domain-allowlist is used without domains.
	ErrEmptyAllowlist = errors.New("invalid scope: domain-allowlist requires at least one allowed domain")

	// ErrInvalidRobotsMode is returned for an unknown robots mode.
	ErrInvalidRobotsMode = errors.New("invalid robots mode: must be respect, audit or ignore")

	// ErrInvalidConsentMode is returned for an unknown consent mode.
	ErrInvalidConsentMode = errors.New("invalid consent mode: must be auto, custom or off")

	// ErrConsentSelectorRequired is returned when consentClick is custom without a selector.
	ErrConsentSelectorRequired = errors.New("invalid consent mode: custom requires consentSelector")

	// ErrInvalidWaitPolicy is returned for an unknown wait policy.
	ErrInvalidWaitPolicy = errors.New("invalid wait policy: must be load, domcontentloaded or networkidle")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the depth cap is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidRateLimit is returned when the delay range is malformed.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rateLimitDelayMs must be [min, max] with 0 <= min <= max")

	// ErrInvalidNavigationTimeout is returned when the navigation timeout is not positive.
	ErrInvalidNavigationTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrInvalidDownloadLimits is returned when a download limit is negative.
	ErrInvalidDownloadLimits = errors.New("invalid download limits: values must be non-negative")

	// ErrUnknownProfile is returned when the selected profile does not exist.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrInvalidScoreFormula is returned for an unknown score formula.
	ErrInvalidScoreFormula = errors.New("invalid score formula: must be weighted or delta")

	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
