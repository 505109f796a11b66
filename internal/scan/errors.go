package scan

import "errors"

// ErrNoAnalyzers is returned when the module selection is empty.
var ErrNoAnalyzers = errors.New("no analyzers selected")
