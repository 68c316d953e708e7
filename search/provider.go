package search

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Provider describes a search engine: how to build its query URL and where
// the organic results sit in its rendered results page.
type Provider struct {
	Name       string
	BaseURL    string
	QueryParam string
	// CountParam carries the result-count hint; empty if unsupported.
	CountParam string
	Flags      url.Values

	ResultSelector  string
	LinkSelector    string
	TitleSelector   string
	SnippetSelector string
	// AllowRootRelative resolves "/path" result links against the
	// provider origin instead of dropping them.
	AllowRootRelative bool
}

var providers = map[string]Provider{
	"google": {
		Name:            "google",
		BaseURL:         "https://www.google.com/search",
		QueryParam:      "q",
		CountParam:      "num",
		Flags:           url.Values{"hl": {"en"}, "udm": {"14"}, "pws": {"0"}},
		ResultSelector:  "#rso div.g, #rso div.MjjYud",
		LinkSelector:    "a:has(h3)",
		TitleSelector:   "h3",
		SnippetSelector: "div.VwiC3b",
	},
	"bing": {
		Name:            "bing",
		BaseURL:         "https://www.bing.com/search",
		QueryParam:      "q",
		CountParam:      "count",
		Flags:           url.Values{"setlang": {"en"}},
		ResultSelector:  "#b_results > li.b_algo",
		LinkSelector:    "h2 a",
		TitleSelector:   "h2",
		SnippetSelector: ".b_caption p",
	},
	"brave": {
		Name:            "brave",
		BaseURL:         "https://search.brave.com/search",
		QueryParam:      "q",
		Flags:           url.Values{"source": {"web"}},
		ResultSelector:  "#results div.snippet[data-type='web']",
		LinkSelector:    "a[href]",
		TitleSelector:   ".title",
		SnippetSelector: ".snippet-description",
	},
}

// LookupProvider returns the built-in provider with the given name.
func LookupProvider(name string) (Provider, error) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, fmt.Errorf("unknown search provider %q (known: %s)", name, strings.Join(ProviderNames(), ", "))
	}
	return p, nil
}

// ProviderNames lists the built-in providers in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Origin is the scheme and host of the provider's base URL.
func (p Provider) Origin() string {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// BuildURL maps a request to the provider's results URL. Excluded domains
// are prepended to the query as -site: terms. The output depends only on
// its inputs.
func BuildURL(p Provider, req Request) string {
	terms := make([]string, 0, len(req.ExcludeDomains)+1)
	for _, d := range req.ExcludeDomains {
		terms = append(terms, "-site:"+d)
	}
	terms = append(terms, req.Query)

	values := url.Values{}
	for k, vs := range p.Flags {
		values[k] = append([]string(nil), vs...)
	}
	values.Set(p.QueryParam, strings.Join(terms, " "))
	if p.CountParam != "" && req.Limit > 0 {
		values.Set(p.CountParam, strconv.Itoa(req.Limit))
	}

	// Encode sorts by key.
	return p.BaseURL + "?" + values.Encode()
}
