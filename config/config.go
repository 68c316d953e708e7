package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"websearch/browser"
	"websearch/pkg/extract"
	"websearch/search"
)

type Config struct {
	Provider     string `yaml:"provider"`
	Extractor    string `yaml:"extractor"`
	Concurrency  int    `yaml:"concurrency"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`

	Headless          bool          `yaml:"headless"`
	ProxyURL          string        `yaml:"proxy"`
	TorControl        string        `yaml:"tor_control"`
	TorPassword       string        `yaml:"tor_password"`
	ChromePath        string        `yaml:"chrome_path"`
	Locale            string        `yaml:"locale"`
	Timezone          string        `yaml:"timezone"`
	UserAgent         string        `yaml:"user_agent"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`

	Viewport     browser.Viewport     `yaml:"viewport"`
	Geolocation  *browser.Geolocation `yaml:"geolocation"`
	ExtraHeaders map[string]string    `yaml:"extra_headers"`
	SkipDomains  []string             `yaml:"skip_domains"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := browser.DefaultOptions()
	return &Config{
		Provider:          "google",
		Extractor:         "readability",
		Concurrency:       search.DefaultConcurrency,
		DefaultLimit:      search.DefaultLimit,
		MaxLimit:          search.MaxLimit,
		Headless:          true,
		Locale:            opts.Locale,
		UserAgent:         opts.UserAgent,
		NavigationTimeout: opts.NavigationTimeout,
		EvaluationTimeout: opts.EvaluationTimeout,
		Viewport:          opts.Viewport,
		SkipDomains: []string{
			"youtube.com",
			"facebook.com",
			"instagram.com",
			"pinterest.com",
			"tiktok.com",
			"doubleclick.net",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// WEBSEARCH_CONFIG (if any), then individual environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("WEBSEARCH_CONFIG"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.readEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) readEnv() error {
	if v := getEnv("WEBSEARCH_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := getEnv("WEBSEARCH_EXTRACTOR"); v != "" {
		c.Extractor = v
	}
	if v := getEnv("WEBSEARCH_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := getEnv("WEBSEARCH_TOR_CONTROL"); v != "" {
		c.TorControl = v
	}
	if v := os.Getenv("WEBSEARCH_TOR_PASSWORD"); v != "" {
		c.TorPassword = v
	}
	if v := getEnv("WEBSEARCH_CHROME_PATH"); v != "" {
		c.ChromePath = v
	}
	if v := getEnv("WEBSEARCH_LOCALE"); v != "" {
		c.Locale = v
	}
	if v := getEnv("WEBSEARCH_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := getEnv("WEBSEARCH_USER_AGENT"); v != "" {
		c.UserAgent = v
	}

	if v := getEnv("WEBSEARCH_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WEBSEARCH_HEADLESS: %w", err)
		}
		c.Headless = b
	}
	for key, dst := range map[string]*int{
		"WEBSEARCH_CONCURRENCY":   &c.Concurrency,
		"WEBSEARCH_DEFAULT_LIMIT": &c.DefaultLimit,
		"WEBSEARCH_MAX_LIMIT":     &c.MaxLimit,
	} {
		if v := getEnv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*time.Duration{
		"WEBSEARCH_NAV_TIMEOUT":  &c.NavigationTimeout,
		"WEBSEARCH_EVAL_TIMEOUT": &c.EvaluationTimeout,
	} {
		if v := getEnv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v := getEnv("WEBSEARCH_SKIP_DOMAINS"); v != "" {
		c.SkipDomains = splitList(v)
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := search.LookupProvider(c.Provider); err != nil {
		return err
	}
	if _, err := extract.New(c.Extractor); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.DefaultLimit <= 0 || c.MaxLimit <= 0 {
		return fmt.Errorf("limits must be positive, got default=%d max=%d", c.DefaultLimit, c.MaxLimit)
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("default_limit %d exceeds max_limit %d", c.DefaultLimit, c.MaxLimit)
	}
	if c.NavigationTimeout <= 0 || c.EvaluationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// BrowserOptions maps the configuration onto browser session options.
func (c *Config) BrowserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	opts.ProxyServer = c.ProxyURL
	opts.ExecPath = c.ChromePath
	opts.Locale = c.Locale
	opts.Timezone = c.Timezone
	opts.UserAgent = c.UserAgent
	opts.NavigationTimeout = c.NavigationTimeout
	opts.EvaluationTimeout = c.EvaluationTimeout
	opts.Viewport = c.Viewport
	opts.Geolocation = c.Geolocation
	opts.ExtraHeaders = c.ExtraHeaders
	return opts
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
