package browser

import (
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Geolocation struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Accuracy  float64 `yaml:"accuracy"`
}

// Options configures one browser session.
type Options struct {
	Headless    bool
	ProxyServer string
	// ExecPath overrides the Chrome binary lookup.
	ExecPath     string
	Locale       string
	Timezone     string
	UserAgent    string
	Viewport     Viewport
	Geolocation  *Geolocation
	ExtraHeaders map[string]string

	LaunchTimeout     time.Duration
	NavigationTimeout time.Duration
	EvaluationTimeout time.Duration
	// SettleDelay is waited after the body is ready, giving late scripts a
	// chance to populate the DOM.
	SettleDelay time.Duration
}

// DefaultOptions returns options for a headless en-US desktop session.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		Locale:            "en-US",
		UserAgent:         defaultUserAgent,
		Viewport:          Viewport{Width: 1366, Height: 768},
		LaunchTimeout:     30 * time.Second,
		NavigationTimeout: 20 * time.Second,
		EvaluationTimeout: 10 * time.Second,
		SettleDelay:       500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Locale == "" {
		o.Locale = def.Locale
	}
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = def.Viewport
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = def.LaunchTimeout
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = def.NavigationTimeout
	}
	if o.EvaluationTimeout <= 0 {
		o.EvaluationTimeout = def.EvaluationTimeout
	}
	return o
}

func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	// Copy so the package-level defaults are never mutated.
	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])

	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(o.UserAgent),
		chromedp.WindowSize(o.Viewport.Width, o.Viewport.Height),
		chromedp.Flag("lang", o.Locale),

		// Stealth
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", true),
	)
	if o.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(o.ProxyServer))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}
