package license

import (
	"strings"

	"licensegate/pkg/contracts/domain"
)

// NormalizeDomain reduces a requested domain or a stored pattern to a bare
// lowercase hostname: scheme, path, query/fragment and a leading "www."
// are stripped. A wildcard "*." prefix is preserved.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	wildcard := strings.HasPrefix(d, "*.")
	if wildcard {
		d = strings.TrimPrefix(d, "*.")
	}
	d = strings.TrimPrefix(d, "www.")
	if wildcard {
		d = "*." + d
	}
	return d
}

// DomainAllowed reports whether the requested domain is matched by any of
// the license's allowed-domain patterns. An empty pattern list is an
// explicit opt-out of domain restriction, not a default-deny: every domain
// passes. An exact pattern matches only the identical normalized domain;
// a "*.example.com" pattern matches subdomains of example.com but not
// example.com itself.
func DomainAllowed(lic *domain.License, requested string) bool {
	if len(lic.AllowedDomains) == 0 {
		return true
	}
	d := NormalizeDomain(requested)
	for _, pattern := range lic.AllowedDomains {
		if matchDomain(NormalizeDomain(pattern), d) {
			return true
		}
	}
	return false
}

func matchDomain(pattern, d string) bool {
	if apex, ok := strings.CutPrefix(pattern, "*."); ok {
		return d != apex && strings.HasSuffix(d, "."+apex)
	}
	return d == pattern
}
