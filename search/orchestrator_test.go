package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"websearch/browser"
)

func newTestOrchestrator(workers int) *Orchestrator {
	return NewOrchestrator(workers, NewContentExtractor(passthroughArticles{}, nil), zap.NewNop())
}

func TestOrchestrator_PreservesInputOrder(t *testing.T) {
	// Earlier links finish last.
	pages := map[string]fakePage{}
	var urls []string
	for i := 0; i < 6; i++ {
		u := fmt.Sprintf("https://order.test/%d", i)
		urls = append(urls, u)
		pages[u] = fakePage{
			title: fmt.Sprintf("Title %d", i),
			html:  fmt.Sprintf("<p>body %d</p>", i),
			delay: time.Duration(6-i) * 10 * time.Millisecond,
		}
	}
	fb := newFakeBrowser(nil, pages)

	results := newTestOrchestrator(6).Fetch(context.Background(), fb, links(urls...), nil, nil)
	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		assert.Equal(t, fmt.Sprintf("Title %d", i), r.Title)
		require.NotNil(t, r.Content)
		assert.Equal(t, fmt.Sprintf("body %d", i), *r.Content)
	}
}

func TestOrchestrator_RespectsWorkerLimit(t *testing.T) {
	pages := map[string]fakePage{}
	var urls []string
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("https://limit.test/%d", i)
		urls = append(urls, u)
		pages[u] = fakePage{html: "<p>x</p>", delay: 20 * time.Millisecond}
	}
	fb := newFakeBrowser(nil, pages)

	results := newTestOrchestrator(3).Fetch(context.Background(), fb, links(urls...), nil, nil)
	require.Len(t, results, 12)
	assert.LessOrEqual(t, fb.maxInFlight.Load(), int32(3))
	assert.Greater(t, fb.maxInFlight.Load(), int32(1))
	assert.Len(t, fb.visitedURLs(), 12)
}

func TestOrchestrator_IsolatesFailures(t *testing.T) {
	fb := newFakeBrowser(nil, map[string]fakePage{
		"https://fail.test/nav":   {err: &browser.NavigationError{URL: "https://fail.test/nav", Status: 404}},
		"https://fail.test/empty": {html: "<p>EMPTY</p>"},
		"https://fail.test/blank": {html: ""},
	})
	in := []CandidateLink{
		{Title: "ok", URL: "https://fail.test/ok", Description: "snippet"},
		{Title: "nav", URL: "https://fail.test/nav", Description: "kept"},
		{Title: "empty", URL: "https://fail.test/empty"},
		{Title: "blank", URL: "https://fail.test/blank"},
	}

	results := newTestOrchestrator(2).Fetch(context.Background(), fb, in, nil, nil)
	require.Len(t, results, 4)

	require.NotNil(t, results[0].Content)
	require.NotNil(t, results[0].Description)
	assert.Equal(t, "snippet", *results[0].Description)

	for _, r := range results[1:] {
		assert.Nil(t, r.Content, r.URL)
	}
	assert.Equal(t, "nav", results[1].Title)
	require.NotNil(t, results[1].Description)
	assert.Equal(t, "kept", *results[1].Description)
	assert.Nil(t, results[2].Description)
}

func TestOrchestrator_Truncate(t *testing.T) {
	fb := newFakeBrowser(nil, map[string]fakePage{
		"https://t.test/1": {html: "<p>héllo wörld</p>"},
	})
	tests := []struct {
		name     string
		truncate *int
		want     string
	}{
		{"absent", nil, "héllo wörld"},
		{"shorter", intPtr(5), "héllo"},
		{"longer", intPtr(500), "héllo wörld"},
		{"zero", intPtr(0), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := newTestOrchestrator(1).Fetch(context.Background(), fb, links("https://t.test/1"), tt.truncate, nil)
			require.Len(t, results, 1)
			require.NotNil(t, results[0].Content)
			assert.Equal(t, tt.want, *results[0].Content)
		})
	}
}

func TestOrchestrator_CancelledContextSkipsScheduling(t *testing.T) {
	fb := newFakeBrowser(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newTestOrchestrator(2).Fetch(ctx, fb, links("https://x.test/1", "https://x.test/2"), nil, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.Content)
	}
	assert.Empty(t, fb.visitedURLs())
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 3, ""},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abc"},
		{"日本語テキスト", 3, "日本語"},
		{"abc", -1, ""},
		// Astral characters count once each.
		{"😀😀😀abc", 2, "😀😀"},
		{"a😀b", 2, "a😀"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateRunes(tt.in, tt.n), "truncateRunes(%q, %d)", tt.in, tt.n)
	}
}

func intPtr(n int) *int { return &n }
