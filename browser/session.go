package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const stealthJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

// Session owns one browser process. Each EvaluateOnPage call gets its own
// tab, so concurrent calls never share DOM state. Close releases the process.
type Session struct {
	opts          Options
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool

	closeOnce sync.Once
}

// Launch starts a browser process. The returned session must be closed.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	opts = opts.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:          opts,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	// The first Run binds the browser to browserCtx, so it must not be a
	// derived timeout context. Bound it from the outside instead.
	startDone := make(chan error, 1)
	go func() { startDone <- chromedp.Run(browserCtx) }()

	timer := time.NewTimer(opts.LaunchTimeout)
	defer timer.Stop()

	select {
	case err := <-startDone:
		if err != nil {
			s.Close()
			return nil, &LaunchError{Err: err}
		}
	case <-timer.C:
		s.Close()
		return nil, &LaunchError{Err: fmt.Errorf("timed out after %v", opts.LaunchTimeout)}
	case <-ctx.Done():
		s.Close()
		return nil, &LaunchError{Err: ctx.Err()}
	}
	s.started = true

	logger.Info("browser launched",
		zap.Bool("headless", opts.Headless),
		zap.Bool("proxy", opts.ProxyServer != ""),
		zap.String("locale", opts.Locale))
	return s, nil
}

// EvaluateOnPage opens a fresh tab, navigates it to url, runs script inside
// the page and decodes its JSON result into out. The tab is closed before
// returning on every path.
func (s *Session) EvaluateOnPage(ctx context.Context, url string, script Script, out any) error {
	expr, err := script.Expression()
	if err != nil {
		return &EvaluationError{URL: url, Script: script.Name, Err: err}
	}

	pageCtx, cancelPage := chromedp.NewContext(s.browserCtx)
	defer cancelPage()

	// Caller cancellation tears the tab down; the tab itself is bound to
	// the browser context.
	stop := context.AfterFunc(ctx, cancelPage)
	defer stop()

	if err := s.setupPage(ctx, pageCtx, cancelPage, url); err != nil {
		return err
	}

	if err := s.navigate(ctx, pageCtx, url); err != nil {
		return err
	}

	evalCtx, cancelEval := context.WithTimeout(pageCtx, s.opts.EvaluationTimeout)
	defer cancelEval()

	var raw []byte
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(expr, &raw)); err != nil {
		return s.classify(ctx, evalCtx, "evaluate", url, s.opts.EvaluationTimeout, func(err error) error {
			return &EvaluationError{URL: url, Script: script.Name, Err: err}
		}, err)
	}

	if err := decodeResult(raw, out); err != nil {
		return &EvaluationError{URL: url, Script: script.Name, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// setupPage creates the tab and installs per-page overrides. It is the
// first Run on pageCtx, so the timeout is enforced from outside.
func (s *Session) setupPage(ctx, pageCtx context.Context, cancelPage context.CancelFunc, url string) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(pageCtx, s.pageActions()...) }()

	timer := time.NewTimer(s.opts.NavigationTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NavigationError{URL: url, Err: fmt.Errorf("open page: %w", err)}
	case <-timer.C:
		cancelPage()
		return &TimeoutError{URL: url, Phase: "open page", Timeout: s.opts.NavigationTimeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) pageActions() []chromedp.Action {
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthJS).Do(ctx)
			return err
		}),
		network.Enable(),
		emulation.SetLocaleOverride().WithLocale(s.opts.Locale),
	}

	if len(s.opts.ExtraHeaders) > 0 {
		headers := make(network.Headers, len(s.opts.ExtraHeaders))
		for k, v := range s.opts.ExtraHeaders {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if s.opts.Timezone != "" {
		actions = append(actions, emulation.SetTimezoneOverride(s.opts.Timezone))
	}
	if geo := s.opts.Geolocation; geo != nil {
		accuracy := geo.Accuracy
		if accuracy <= 0 {
			accuracy = 100
		}
		actions = append(actions,
			cdpbrowser.GrantPermissions([]cdpbrowser.PermissionType{cdpbrowser.PermissionTypeGeolocation}),
			emulation.SetGeolocationOverride().
				WithLatitude(geo.Latitude).
				WithLongitude(geo.Longitude).
				WithAccuracy(accuracy),
		)
	}
	return actions
}

func (s *Session) navigate(ctx, pageCtx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(pageCtx, s.opts.NavigationTimeout)
	defer cancel()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return s.classify(ctx, navCtx, "navigate", url, s.opts.NavigationTimeout, func(err error) error {
			return &NavigationError{URL: url, Err: err}
		}, err)
	}
	if resp != nil && resp.Status >= 400 {
		return &NavigationError{URL: url, Status: resp.Status}
	}

	wait := []chromedp.Action{chromedp.WaitReady("body", chromedp.ByQuery)}
	if s.opts.SettleDelay > 0 {
		wait = append(wait, chromedp.Sleep(s.opts.SettleDelay))
	}
	if err := chromedp.Run(navCtx, wait...); err != nil {
		return s.classify(ctx, navCtx, "wait", url, s.opts.NavigationTimeout, func(err error) error {
			return &NavigationError{URL: url, Err: err}
		}, err)
	}
	return nil
}

// classify maps a chromedp failure onto the error taxonomy. Cancellation of
// the caller's context is returned as-is so it can abort the whole run.
func (s *Session) classify(ctx, stepCtx context.Context, phase, url string, budget time.Duration, wrap func(error) error, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{URL: url, Phase: phase, Timeout: budget}
	}
	return wrap(err)
}

// Close releases the browser process and every remaining tab. Calls after
// the first are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.started {
			err = chromedp.Cancel(s.browserCtx)
		}
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		if s.logger != nil {
			s.logger.Info("browser closed")
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
