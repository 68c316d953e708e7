package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"websearch/browser"
	"websearch/pkg/extract"
)

// fakePage is the scripted outcome of visiting one link.
type fakePage struct {
	title string
	html  string
	err   error
	delay time.Duration
	panic bool
}

// fakeBrowser plays the results page and link pages from memory. Values
// cross a JSON round trip like they would cross the page boundary.
type fakeBrowser struct {
	links      []CandidateLink
	resultsErr error
	pages      map[string]fakePage

	mu         sync.Mutex
	visited    []string
	resultsURL string

	closeCalls  atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeBrowser(links []CandidateLink, pages map[string]fakePage) *fakeBrowser {
	if pages == nil {
		pages = map[string]fakePage{}
	}
	return &fakeBrowser{links: links, pages: pages}
}

func (f *fakeBrowser) EvaluateOnPage(ctx context.Context, pageURL string, script browser.Script, out any) error {
	if _, err := script.Expression(); err != nil {
		return &browser.EvaluationError{URL: pageURL, Script: script.Name, Err: err}
	}

	switch script.Name {
	case "extract-links":
		f.mu.Lock()
		f.resultsURL = pageURL
		f.mu.Unlock()
		if f.resultsErr != nil {
			return f.resultsErr
		}
		return roundTrip(f.links, out)

	case "snapshot-content":
		n := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			max := f.maxInFlight.Load()
			if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
				break
			}
		}

		f.mu.Lock()
		f.visited = append(f.visited, pageURL)
		f.mu.Unlock()

		page, ok := f.pages[pageURL]
		if !ok {
			page = fakePage{title: "Page " + pageURL, html: "<p>content of " + pageURL + "</p>"}
		}
		if page.delay > 0 {
			select {
			case <-time.After(page.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if page.panic {
			panic("page blew up")
		}
		if page.err != nil {
			return page.err
		}
		return roundTrip(pageSnapshot{Title: page.title, URL: pageURL, HTML: page.html}, out)
	}
	return fmt.Errorf("unexpected script %q", script.Name)
}

func (f *fakeBrowser) Close() error {
	f.closeCalls.Add(1)
	return nil
}

func (f *fakeBrowser) visitedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}

func roundTrip(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// passthroughArticles treats the whole cleaned document as the article and
// reports no content for pages containing "EMPTY".
type passthroughArticles struct{}

func (passthroughArticles) Name() string { return "passthrough" }

func (passthroughArticles) Extract(doc string, _ *url.URL) (extract.Article, error) {
	if strings.Contains(doc, "EMPTY") {
		return extract.Article{}, extract.ErrNoContent
	}
	return extract.Article{HTML: doc}, nil
}

func testProvider() Provider {
	return Provider{
		Name:           "test",
		BaseURL:        "https://search.test/search",
		QueryParam:     "q",
		CountParam:     "num",
		ResultSelector: ".result",
	}
}

func newTestPipeline(fb *fakeBrowser, launches *atomic.Int32) *Pipeline {
	launch := func(ctx context.Context, _ browser.Options) (Browser, error) {
		if launches != nil {
			launches.Add(1)
		}
		return fb, nil
	}
	p, err := NewPipeline(Config{
		Provider:    testProvider(),
		Concurrency: 4,
		SkipDomains: []string{"ads.test"},
		Extractor:   passthroughArticles{},
	}, launch, zap.NewNop())
	if err != nil {
		panic(err)
	}
	return p
}

func links(urls ...string) []CandidateLink {
	out := make([]CandidateLink, 0, len(urls))
	for i, u := range urls {
		out = append(out, CandidateLink{Title: fmt.Sprintf("Result %d", i+1), URL: u})
	}
	return out
}
