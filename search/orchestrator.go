package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 15

// Orchestrator fetches candidate links concurrently under a fixed worker
// budget. A failing link degrades to a metadata-only result; it never
// cancels its siblings.
type Orchestrator struct {
	workers   int
	extractor *ContentExtractor
	logger    *zap.Logger
}

func NewOrchestrator(workers int, extractor *ContentExtractor, logger *zap.Logger) *Orchestrator {
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	return &Orchestrator{workers: workers, extractor: extractor, logger: logger}
}

// fetchOutcome is the settled state of one task: content on success, err
// on failure.
type fetchOutcome struct {
	content pageContent
	err     error
}

// Fetch visits every link and returns one result per link in input order.
// It waits for all tasks to settle.
func (o *Orchestrator) Fetch(ctx context.Context, b Browser, links []CandidateLink, truncate *int, logger *zap.Logger) []Result {
	if logger == nil {
		logger = o.logger
	}
	outcomes := make([]fetchOutcome, len(links))

	// Tasks always return nil, so the group never short-circuits.
	var g errgroup.Group
	g.SetLimit(o.workers)

	for i, link := range links {
		if ctx.Err() != nil {
			outcomes[i].err = ctx.Err()
			continue
		}
		g.Go(func() error {
			outcomes[i] = o.fetchOne(ctx, b, link)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, len(links))
	failed := 0
	for i, link := range links {
		out := outcomes[i]
		if out.err != nil {
			failed++
			if isExtractionMiss(out.err) {
				logger.Info("no readable content", zap.String("url", link.URL))
			} else {
				logger.Warn("link fetch failed", zap.String("url", link.URL), zap.Error(out.err))
			}
		}
		results[i] = buildResult(link, out, truncate)
	}

	logger.Info("fetch completed",
		zap.Int("links", len(links)),
		zap.Int("succeeded", len(links)-failed),
		zap.Int("failed", failed))
	return results
}

func (o *Orchestrator) fetchOne(ctx context.Context, b Browser, link CandidateLink) (out fetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fetchOutcome{err: fmt.Errorf("panic while fetching %s: %v", link.URL, r)}
		}
	}()
	content, err := o.extractor.Fetch(ctx, b, link)
	return fetchOutcome{content: content, err: err}
}

func buildResult(link CandidateLink, out fetchOutcome, truncate *int) Result {
	res := Result{Title: link.Title, URL: link.URL}
	if link.Description != "" {
		res.Description = stringPtr(link.Description)
	}
	if out.err != nil {
		return res
	}
	if out.content.Title != "" {
		res.Title = out.content.Title
	}
	content := out.content.Markdown
	if truncate != nil {
		content = truncateRunes(content, *truncate)
	}
	res.Content = stringPtr(content)
	return res
}

// truncateRunes cuts s to at most n code points.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
