package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chromePath returns a local Chrome binary or skips the test.
func chromePath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("WEBSEARCH_CHROME_PATH"); p != "" {
		return p
	}
	for _, bin := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(bin); err == nil {
			return p
		}
	}
	t.Skip("chrome not found in PATH")
	return ""
}

func TestSessionClose_Idempotent(t *testing.T) {
	s := &Session{}
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Fixture</title></head><body><p>ready</p></body></html>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body><p>not here</p></body></html>`))
	})
	mux.HandleFunc("/hang", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	// Runs before srv.Close so hanging handlers return.
	t.Cleanup(func() { close(release) })
	return srv
}

func pageTargets(s *Session) (int, error) {
	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, info := range infos {
		if info.Type == "page" {
			n++
		}
	}
	return n, nil
}

func TestSession_Chrome(t *testing.T) {
	execPath := chromePath(t)
	srv := newFixtureServer(t)

	opts := DefaultOptions()
	opts.ExecPath = execPath
	opts.NavigationTimeout = 2 * time.Second
	opts.EvaluationTimeout = 2 * time.Second
	opts.SettleDelay = 0

	s, err := Launch(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	baseline, err := pageTargets(s)
	require.NoError(t, err)
	titleScript := Script{Name: "title", Source: "function (doc) { return doc.title; }"}

	t.Run("evaluates in page", func(t *testing.T) {
		var title string
		require.NoError(t, s.EvaluateOnPage(context.Background(), srv.URL+"/ok", titleScript, &title))
		assert.Equal(t, "Fixture", title)
	})

	t.Run("args cross the boundary", func(t *testing.T) {
		sum := Script{Name: "sum", Source: "function (doc, args) { return args.a + args.b; }", Args: map[string]int{"a": 2, "b": 3}}
		var got int
		require.NoError(t, s.EvaluateOnPage(context.Background(), srv.URL+"/ok", sum, &got))
		assert.Equal(t, 5, got)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		err := s.EvaluateOnPage(context.Background(), srv.URL+"/missing", titleScript, nil)
		var ne *NavigationError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, int64(http.StatusNotFound), ne.Status)
	})

	t.Run("navigation over budget", func(t *testing.T) {
		err := s.EvaluateOnPage(context.Background(), srv.URL+"/hang", titleScript, nil)
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "navigate", te.Phase)
		assert.Equal(t, 2*time.Second, te.Timeout)
	})

	t.Run("script throws", func(t *testing.T) {
		boom := Script{Name: "boom", Source: "function () { throw new Error('boom'); }"}
		err := s.EvaluateOnPage(context.Background(), srv.URL+"/ok", boom, nil)
		require.Error(t, err)
		assert.True(t, IsEvaluation(err))
	})

	t.Run("caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.EvaluateOnPage(ctx, srv.URL+"/ok", titleScript, nil)
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	})

	t.Run("tabs closed on every path", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			n, err := pageTargets(s)
			return err == nil && n == baseline
		}, 5*time.Second, 100*time.Millisecond)
	})

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
