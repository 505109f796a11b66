package crawler

import (
	"errors"

	"github.com/nao1215/a11yscan/internal/browser"
)

var (
	// ErrNavigation marks a page that could not be loaded, including
	// HTTP responses with status 400 or above. It is the browser's
	// sentinel so that callers can match either with errors.Is.
	ErrNavigation = browser.ErrNavigation

	// ErrInvalidSeed is returned by Run when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrInvalidScope is returned for an unknown scope mode.
	ErrInvalidScope = errors.New("invalid scope")

	// errUnsupportedScheme is used for links the crawler never follows.
	errUnsupportedScheme = errors.New("unsupported scheme")
)
