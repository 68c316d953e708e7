package search

import (
	"net/url"
	"strings"
)

// VisitedSet tracks normalized URLs for a single pipeline run. It is only
// touched in the sequential filtering phase and needs no locking.
type VisitedSet struct {
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add records u and reports whether it was not already present.
func (v *VisitedSet) Add(u string) bool {
	key := NormalizeURL(u)
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (v *VisitedSet) Len() int { return len(v.seen) }

// NormalizeURL lower-cases scheme and host, removes default ports, the
// fragment and a bare "/" path. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "/" {
		u.Path = ""
		u.RawPath = ""
	}
	return u.String()
}

// MatchesDomain reports whether host is domain or one of its subdomains.
func MatchesDomain(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = normalizeDomain(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// DomainFilter drops duplicate and skip-listed links before fan-out.
type DomainFilter struct {
	skip []string
}

func NewDomainFilter(skipDomains []string) *DomainFilter {
	return &DomainFilter{skip: normalizeDomains(skipDomains)}
}

// Filter walks links left to right: a link already in visited is dropped,
// otherwise it is recorded; then links whose host matches the skip-list or
// exclude are dropped. At most limit links are returned (limit <= 0 means
// no cap).
func (f *DomainFilter) Filter(links []CandidateLink, visited *VisitedSet, exclude []string, limit int) []CandidateLink {
	out := make([]CandidateLink, 0, len(links))
	for _, link := range links {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !visited.Add(link.URL) {
			continue
		}
		if f.blocked(link.URL, exclude) {
			continue
		}
		out = append(out, link)
	}
	return out
}

func (f *DomainFilter) blocked(rawURL string, exclude []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := u.Hostname()
	for _, d := range f.skip {
		if MatchesDomain(host, d) {
			return true
		}
	}
	for _, d := range exclude {
		if MatchesDomain(host, d) {
			return true
		}
	}
	return false
}
