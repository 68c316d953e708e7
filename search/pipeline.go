package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"websearch/browser"
	"websearch/pkg/extract"
	"websearch/pkg/markdown"
)

const (
	DefaultLimit = 10
	MaxLimit     = 20
)

// Browser is the slice of a browser session the pipeline needs.
type Browser interface {
	EvaluateOnPage(ctx context.Context, url string, script browser.Script, out any) error
	Close() error
}

// Launcher starts one browser session per pipeline run.
type Launcher func(ctx context.Context, opts browser.Options) (Browser, error)

// ChromeLauncher launches a local Chrome through chromedp.
func ChromeLauncher(logger *zap.Logger) Launcher {
	return func(ctx context.Context, opts browser.Options) (Browser, error) {
		s, err := browser.Launch(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// CircuitRotator asks an anonymizing proxy for a fresh exit before a run.
type CircuitRotator interface {
	NewCircuit(ctx context.Context) (bool, error)
}

type Config struct {
	Provider     Provider
	Browser      browser.Options
	Concurrency  int
	DefaultLimit int
	MaxLimit     int
	SkipDomains  []string
	Extractor    extract.ArticleExtractor
	// Circuits, if set, is rotated before every run that uses a proxy.
	Circuits CircuitRotator
}

// Pipeline runs search requests end to end: results page, filtering,
// concurrent content fetch. Each run owns its own browser session.
type Pipeline struct {
	cfg          Config
	launch       Launcher
	filter       *DomainFilter
	orchestrator *Orchestrator
	logger       *zap.Logger
}

func NewPipeline(cfg Config, launch Launcher, logger *zap.Logger) (*Pipeline, error) {
	if cfg.Provider.BaseURL == "" {
		p, err := LookupProvider("google")
		if err != nil {
			return nil, err
		}
		cfg.Provider = p
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		return nil, fmt.Errorf("default limit %d exceeds max limit %d", cfg.DefaultLimit, cfg.MaxLimit)
	}
	if launch == nil {
		launch = ChromeLauncher(logger)
	}

	extractor := NewContentExtractor(cfg.Extractor, markdown.NewConverter())
	return &Pipeline{
		cfg:          cfg,
		launch:       launch,
		filter:       NewDomainFilter(cfg.SkipDomains),
		orchestrator: NewOrchestrator(cfg.Concurrency, extractor, logger),
		logger:       logger,
	}, nil
}

// Search executes one request. It returns a (possibly empty) response, or
// an error when the request is invalid, the browser cannot start, or the
// results page cannot be read. Per-link failures never surface here.
func (p *Pipeline) Search(ctx context.Context, req Request) (resp *Response, err error) {
	req, err = req.normalize(p.cfg.DefaultLimit, p.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("provider", p.cfg.Provider.Name),
		zap.String("query", req.Query))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("search panicked", zap.Any("panic", r))
			resp, err = nil, fmt.Errorf("search %q: internal error: %v", req.Query, r)
		}
	}()

	opts := p.cfg.Browser
	if req.Show {
		opts.Headless = false
	}
	if req.Proxy != "" {
		opts.ProxyServer = req.Proxy
	}
	if opts.ProxyServer != "" && p.cfg.Circuits != nil {
		rotated, rerr := p.cfg.Circuits.NewCircuit(ctx)
		if rerr != nil {
			logger.Warn("failed to rotate proxy circuit", zap.Error(rerr))
		} else if rotated {
			logger.Info("proxy circuit rotated")
		}
	}

	session, err := p.launch(ctx, opts)
	if err != nil {
		logger.Error("failed to launch browser", zap.Error(err))
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("failed to close browser", zap.Error(cerr))
		}
	}()

	resultsURL := BuildURL(p.cfg.Provider, req)
	logger.Info("navigating to search", zap.String("url", resultsURL))

	links, err := extractLinks(ctx, session, p.cfg.Provider, resultsURL)
	if err != nil {
		logger.Error("failed to read results page", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrResultsPage, err)
	}

	filtered := p.filter.Filter(links, NewVisitedSet(), req.ExcludeDomains, req.Limit)
	logger.Info("links filtered",
		zap.Int("candidates", len(links)),
		zap.Int("scheduled", len(filtered)))

	results := p.orchestrator.Fetch(ctx, session, filtered, req.Truncate, logger)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, ctx.Err())
	}
	return &Response{Results: results}, nil
}
