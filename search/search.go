package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrInvalidLimit    = errors.New("limit must be greater than zero")
	ErrInvalidTruncate = errors.New("truncate must not be negative")
	ErrResultsPage     = errors.New("search results page")
)

// Request is one search invocation. Limit 0 means "use the default";
// a nil Truncate means content is returned whole.
type Request struct {
	Query          string   `json:"query"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Truncate       *int     `json:"truncate,omitempty"`
	Proxy          string   `json:"proxy,omitempty"`
	Show           bool     `json:"show,omitempty"`
}

// CandidateLink is a result link read off the provider's results page.
type CandidateLink struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Result is one visited link. A nil Content means extraction failed for
// that link; the link is still reported.
type Result struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Response struct {
	Results []Result `json:"results"`
}

// normalize validates r and returns a copy with defaults applied. The
// receiver is left untouched.
func (r Request) normalize(defaultLimit, maxLimit int) (Request, error) {
	query := strings.TrimSpace(r.Query)
	if query == "" {
		return Request{}, ErrEmptyQuery
	}
	if r.Limit < 0 {
		return Request{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, r.Limit)
	}
	if r.Truncate != nil && *r.Truncate < 0 {
		return Request{}, fmt.Errorf("%w: got %d", ErrInvalidTruncate, *r.Truncate)
	}

	out := r
	out.Query = query
	if out.Limit == 0 {
		out.Limit = defaultLimit
	}
	if maxLimit > 0 && out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	if r.Truncate != nil {
		n := *r.Truncate
		out.Truncate = &n
	}
	out.ExcludeDomains = normalizeDomains(r.ExcludeDomains)
	out.Proxy = strings.TrimSpace(r.Proxy)
	return out, nil
}

// normalizeDomains lower-cases, strips scheme, path and a trailing dot, and
// drops empties and duplicates while keeping the first-seen order.
func normalizeDomains(domains []string) []string {
	if len(domains) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = normalizeDomain(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(strings.TrimPrefix(d, "*."), ".")
	if d == "" || strings.ContainsFunc(d, unicode.IsSpace) {
		return ""
	}
	// Anything net/url would not take as a bare host is dropped.
	if u, err := url.Parse("//" + d); err != nil || u.Host != d || u.Hostname() == "" {
		return ""
	}
	return d
}

func stringPtr(s string) *string { return &s }
