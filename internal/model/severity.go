package model

import (
	"fmt"
	"strings"
)

// Severity represents the impact of an accessibility finding on users of
// assistive technology.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The text form ("critical",
// "serious", "moderate", "minor") is what appears in JSON and reports.
type Severity int

const (
	// SeverityMinor indicates an annoyance that rarely blocks a task.
	SeverityMinor Severity = iota

	// SeverityModerate indicates an issue that makes content harder to use.
	SeverityModerate

	// SeveritySerious indicates an issue that blocks some users from content.
	SeveritySerious

	// SeverityCritical indicates an issue that blocks most assistive technology users.
	SeverityCritical
)

// String returns the lowercase name used by rule engines and reports.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityModerate:
		return "moderate"
	case SeveritySerious:
		return "serious"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts an impact string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minor":
		return SeverityMinor, nil
	case "moderate":
		return SeverityModerate, nil
	case "serious":
		return SeveritySerious, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityModerate, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding identifiers to their metadata.
//
// Design decision: We use a map rather than hard-coding severities in every
// analyzer because:
// 1. It allows updating assessments without touching analyzer code
// 2. It provides a single source of truth for reports and scoring
var findingInfoMapping = map[string]FindingInfo{
	// contrast
	"contrast:text-low": {
		Severity:       SeveritySerious,
		Impact:         "Text with low contrast is hard or impossible to read for people with low vision.",
		Recommendation: "Raise the contrast between text and background to at least 4.5:1.",
	},
	"contrast:large-text-low": {
		Severity:       SeverityModerate,
		Impact:         "Large text with low contrast is hard to read for people with low vision.",
		Recommendation: "Raise the contrast of large text to at least 3:1.",
	},

	// keyboard
	"keyboard:outline-suppressed": {
		Severity:       SeveritySerious,
		Impact:         "Keyboard users cannot see which element has focus.",
		Recommendation: "Do not remove the focus outline without a visible replacement such as a box-shadow.",
	},
	"keyboard:focus-indicator-weak": {
		Severity:       SeveritySerious,
		Impact:         "The focus indicator is too thin or too faint to be noticed.",
		Recommendation: "Use a focus indicator with at least 3:1 contrast and a visible thickness.",
	},
	"keyboard:focus-not-visible": {
		Severity:       SeveritySerious,
		Impact:         "Focus moves to an element that is hidden or off screen.",
		Recommendation: "Remove hidden elements from the tab order or make them visible on focus.",
	},
	"keyboard:focus-trap": {
		Severity:       SeveritySerious,
		Impact:         "Keyboard users cannot move focus away from an element.",
		Recommendation: "Make sure Tab and Shift+Tab always move focus out of every component.",
	},
	"keyboard:tab-order-anomaly": {
		Severity:       SeverityModerate,
		Impact:         "Focus order does not follow the reading order of the page.",
		Recommendation: "Align the DOM order with the visual order instead of reordering focus.",
	},
	"keyboard:tabindex-gt-zero": {
		Severity:       SeverityModerate,
		Impact:         "Positive tabindex values override the natural focus order.",
		Recommendation: "Use tabindex=\"0\" or rely on the DOM order.",
	},

	// landmarks
	"landmarks:missing-main": {
		Severity:       SeverityModerate,
		Impact:         "Screen reader users cannot jump directly to the main content.",
		Recommendation: "Wrap the primary content in a <main> element.",
	},
	"landmarks:duplicate-main": {
		Severity:       SeverityMinor,
		Impact:         "Several main landmarks make the page structure ambiguous.",
		Recommendation: "Use exactly one main landmark per page.",
	},
	"landmarks:duplicate-banner": {
		Severity:       SeverityMinor,
		Impact:         "Several banner landmarks make the page structure ambiguous.",
		Recommendation: "Use at most one top-level header.",
	},
	"landmarks:duplicate-contentinfo": {
		Severity:       SeverityMinor,
		Impact:         "Several contentinfo landmarks make the page structure ambiguous.",
		Recommendation: "Use at most one top-level footer.",
	},
	"landmarks:nesting-banner": {
		Severity:       SeverityMinor,
		Impact:         "A nested banner landmark is announced in an unexpected place.",
		Recommendation: "Place the banner landmark at the top level of the page.",
	},
	"landmarks:nesting-contentinfo": {
		Severity:       SeverityMinor,
		Impact:         "A nested contentinfo landmark is announced in an unexpected place.",
		Recommendation: "Place the contentinfo landmark at the top level of the page.",
	},
	"landmarks:nesting-main": {
		Severity:       SeverityMinor,
		Impact:         "A main landmark inside another landmark confuses navigation.",
		Recommendation: "Place the main landmark at the top level of the page.",
	},
	"landmarks:coverage-low": {
		Severity:       SeverityMinor,
		Impact:         "Much of the visible content is outside any landmark.",
		Recommendation: "Place all content inside landmarks.",
	},
	"landmarks:orphans": {
		Severity:       SeverityMinor,
		Impact:         "Some content cannot be reached by landmark navigation.",
		Recommendation: "Move the listed elements into an appropriate landmark.",
	},

	// links
	"links:nondescriptive": {
		Severity:       SeverityMinor,
		Impact:         "Link text such as \"click here\" does not describe the destination.",
		Recommendation: "Use link text that describes the target out of context.",
	},
	"links:raw-url": {
		Severity:       SeverityMinor,
		Impact:         "Screen readers read raw URLs character by character.",
		Recommendation: "Replace raw URLs with descriptive link text.",
	},
	"links:icon-only": {
		Severity:       SeverityMinor,
		Impact:         "Links without an accessible name are announced as \"link\" only.",
		Recommendation: "Add an aria-label or visually hidden text to icon links.",
	},
	"links:text-dup-different-target": {
		Severity:       SeverityMinor,
		Impact:         "Identical link texts lead to different destinations.",
		Recommendation: "Make the text of each link unique for its destination.",
	},
	"links:target-dup-different-text": {
		Severity:       SeverityMinor,
		Impact:         "The same destination is announced with unrelated texts.",
		Recommendation: "Use consistent text for links to the same destination.",
	},

	// forms
	"forms:label-missing": {
		Severity:       SeveritySerious,
		Impact:         "Form controls without a name cannot be identified by screen reader users.",
		Recommendation: "Associate a <label> with every form control.",
	},
	"forms:label-ambiguous": {
		Severity:       SeverityModerate,
		Impact:         "Conflicting names make the purpose of a field unclear.",
		Recommendation: "Provide a single consistent accessible name.",
	},
	"forms:required-not-indicated": {
		Severity:       SeverityModerate,
		Impact:         "Users do not learn that a field is mandatory before submitting.",
		Recommendation: "Mark required fields visibly and with aria-required.",
	},
	"forms:error-not-associated": {
		Severity:       SeverityModerate,
		Impact:         "Validation errors are not announced for the affected field.",
		Recommendation: "Reference error messages with aria-describedby and a live region.",
	},
	"forms:autocomplete-mismatch": {
		Severity:       SeverityMinor,
		Impact:         "Browsers and assistive tools cannot autofill personal data.",
		Recommendation: "Set type and autocomplete to match the purpose of the field.",
	},
	"forms:group-missing-legend": {
		Severity:       SeverityModerate,
		Impact:         "Radio buttons or checkboxes lack the question they belong to.",
		Recommendation: "Group related controls in a fieldset with a legend.",
	},

	// headings
	"headings:missing-h1": {
		Severity:       SeverityModerate,
		Impact:         "The page has no top-level heading to orient users.",
		Recommendation: "Add a single h1 that describes the page.",
	},
	"headings:multiple-h1": {
		Severity:       SeverityMinor,
		Impact:         "Several top-level headings blur the page structure.",
		Recommendation: "Use one h1 and structure the rest with h2 to h6.",
	},
	"headings:jump-level": {
		Severity:       SeverityMinor,
		Impact:         "Skipped heading levels suggest missing sections.",
		Recommendation: "Increase heading levels one step at a time.",
	},
	"headings:empty-text": {
		Severity:       SeverityMinor,
		Impact:         "Empty headings are announced without content.",
		Recommendation: "Remove empty headings or give them text.",
	},

	// skip links
	"skiplinks:missing": {
		Severity:       SeveritySerious,
		Impact:         "Keyboard users must tab through repeated blocks on every page.",
		Recommendation: "Add a skip link to the main content as the first focusable element.",
	},
	"skiplinks:target-missing": {
		Severity:       SeveritySerious,
		Impact:         "The skip link points to an element that does not exist.",
		Recommendation: "Point the skip link at an existing id.",
	},
	"skiplinks:target-not-focusable": {
		Severity:       SeverityMinor,
		Impact:         "Some browsers do not move focus to a non-focusable target.",
		Recommendation: "Add tabindex=\"-1\" to the skip link target.",
	},
	"skiplinks:no-focus-transfer": {
		Severity:       SeverityModerate,
		Impact:         "Activating the skip link does not move keyboard focus.",
		Recommendation: "Make sure the target receives focus when the link is activated.",
	},
	"skiplinks:late": {
		Severity:       SeverityModerate,
		Impact:         "The skip link is reached only after several other elements.",
		Recommendation: "Place the skip link first in the focus order.",
	},
	"skiplinks:redundant": {
		Severity:       SeverityMinor,
		Impact:         "Several skip links to the same target add noise.",
		Recommendation: "Keep one skip link per target.",
	},

	// images
	"images:missing-alt": {
		Severity:       SeveritySerious,
		Impact:         "Images without alt text are invisible to screen reader users.",
		Recommendation: "Add alt text, or alt=\"\" for decorative images.",
	},
	"images:redundant-alt": {
		Severity:       SeverityMinor,
		Impact:         "Alt text such as \"image of\" repeats what the screen reader announces.",
		Recommendation: "Describe the content without words like image or picture.",
	},
	"images:decorative-with-alt": {
		Severity:       SeverityMinor,
		Impact:         "Decorative images with alt text add noise.",
		Recommendation: "Use alt=\"\" for images marked as presentational.",
	},
	"images:filename-as-alt": {
		Severity:       SeverityMinor,
		Impact:         "A file name is not a description of the image.",
		Recommendation: "Replace file names with a description.",
	},
	"images:image-of-text": {
		Severity:       SeverityModerate,
		Impact:         "Text in images cannot be resized or restyled.",
		Recommendation: "Use real text styled with CSS.",
	},
	"images:svg-missing-title": {
		Severity:       SeverityMinor,
		Impact:         "Informative SVG graphics have no accessible name.",
		Recommendation: "Add a <title> or aria-label to the SVG.",
	},
	"images:input-image-missing-alt": {
		Severity:       SeveritySerious,
		Impact:         "Image buttons without alt text have no name.",
		Recommendation: "Add alt text describing the action.",
	},
	"images:imagemap-area-missing-alt": {
		Severity:       SeveritySerious,
		Impact:         "Image map areas without alt text cannot be identified.",
		Recommendation: "Add alt text to every area element.",
	},

	// document metadata
	"meta:title-missing": {
		Severity:       SeveritySerious,
		Impact:         "Pages without a title cannot be identified in tabs or history.",
		Recommendation: "Add a descriptive <title>.",
	},
	"meta:title-too-short": {
		Severity:       SeverityMinor,
		Impact:         "Very short titles rarely describe the page.",
		Recommendation: "Use a title that names the page and the site.",
	},
	"meta:lang-missing": {
		Severity:       SeveritySerious,
		Impact:         "Screen readers cannot pick the right pronunciation.",
		Recommendation: "Set the lang attribute on the html element.",
	},
	"meta:lang-invalid": {
		Severity:       SeverityModerate,
		Impact:         "An invalid language tag is ignored by assistive technology.",
		Recommendation: "Use a valid BCP 47 language tag such as de or en-GB.",
	},
	"meta:lang-xml-mismatch": {
		Severity:       SeverityMinor,
		Impact:         "lang and xml:lang disagree on the page language.",
		Recommendation: "Use the same value for lang and xml:lang.",
	},
}

// GetSeverity returns the severity level for a finding identifier.
// Returns SeverityModerate if the identifier is not in the mapping.
func GetSeverity(findingID string) Severity {
	if info, ok := findingInfoMapping[findingID]; ok {
		return info.Severity
	}
	return SeverityModerate
}

// GetFindingInfo returns the full finding information for a finding identifier.
func GetFindingInfo(findingID string) FindingInfo {
	if info, ok := findingInfoMapping[findingID]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityModerate,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding against the referenced success criteria.",
	}
}
