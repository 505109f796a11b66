package model

// AnalyzerResult is what one analyzer produced for one page.
type AnalyzerResult struct {
	Module    string             `json:"module"`
	Version   string             `json:"version"`
	Findings  []Finding          `json:"findings"`
	Stats     map[string]any     `json:"stats,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Artifacts map[string]string  `json:"artifacts,omitempty"`

	// Data is typed output for modules that declare this one as a
	// prerequisite, e.g. the keyboard trace read by the skip-link analyzer.
	Data any `json:"-"`
}

// AddArtifact records a persisted artifact path under name.
// Empty paths are ignored so that disabled artifact storage leaves no trace.
func (r *AnalyzerResult) AddArtifact(name, path string) {
	if path == "" {
		return
	}
	if r.Artifacts == nil {
		r.Artifacts = make(map[string]string)
	}
	r.Artifacts[name] = path
}

// PageResult is the outcome of visiting one URL.
type PageResult struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`

	// Status is the HTTP status of the main document, 0 when unknown.
	Status int `json:"status,omitempty"`

	// Simulated pages were loaded only to discover links; no analyzer ran.
	Simulated bool `json:"simulated,omitempty"`

	// RobotsDisallowed is true when robots.txt disallows the URL.
	RobotsDisallowed bool `json:"robotsDisallowed,omitempty"`

	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`

	Results []AnalyzerResult `json:"results,omitempty"`

	// Routes are client-side routes observed while the page was analyzed.
	Routes []string `json:"routes,omitempty"`
}

// Findings returns all findings of the page in module order.
func (p *PageResult) Findings() []Finding {
	var out []Finding
	for _, r := range p.Results {
		out = append(out, r.Findings...)
	}
	return out
}

// Result returns the result of the given module, or nil.
func (p *PageResult) Result(module string) *AnalyzerResult {
	for i := range p.Results {
		if p.Results[i].Module == module {
			return &p.Results[i]
		}
	}
	return nil
}
