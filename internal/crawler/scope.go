package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/a11yscan/internal/config"
)

// Scope decides which discovered URLs belong to the crawl.
type Scope struct {
	mode    config.ScopeMode
	seed    *url.URL
	domains []string
}

// NewScope creates the scope policy for seed. An empty mode means same-origin.
func NewScope(mode config.ScopeMode, seed *url.URL, allowDomains []string) (*Scope, error) {
	if mode == "" {
		mode = config.ScopeSameOrigin
	}
	switch mode {
	case config.ScopeSameOrigin, config.ScopeSameSite, config.ScopeDomainAllowlist:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, mode)
	}

	s := &Scope{mode: mode, seed: seed}
	for _, d := range allowDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "*.")
		d = strings.Trim(d, ".")
		if d != "" {
			s.domains = append(s.domains, d)
		}
	}
	return s, nil
}

// Mode returns the scope mode.
func (s *Scope) Mode() config.ScopeMode {
	return s.mode
}

// Contains reports whether u is in scope.
//
//   - same-origin: scheme, host and port equal the seed's
//   - same-site: hostname equals the seed's
//   - domain-allowlist: hostname is the seed's, a listed domain or a subdomain of one
func (s *Scope) Contains(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	seedHost := strings.ToLower(s.seed.Hostname())

	switch s.mode {
	case config.ScopeSameSite:
		return host == seedHost
	case config.ScopeDomainAllowlist:
		if host == seedHost {
			return true
		}
		for _, d := range s.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
		return false
	default:
		return strings.EqualFold(u.Scheme, s.seed.Scheme) &&
			host == seedHost &&
			effectivePort(u) == effectivePort(s.seed)
	}
}
