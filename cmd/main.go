package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"websearch/config"
	"websearch/pkg/extract"
	"websearch/pkg/tor"
	"websearch/search"
	"websearch/tool"
)

const version = "0.1.0"

func main() {
	var debug bool

	root := &cobra.Command{
		Use:           "websearch",
		Short:         "Headless-browser web search with readable content extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable development logging")

	root.AddCommand(serveCmd(&debug), queryCmd(&debug))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web_search tool over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, pipeline, err := bootstrap(*debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			// =========
			// MCP server
			// =========
			s := server.NewMCPServer("websearch", version, server.WithToolCapabilities(false))
			tool.NewWebSearchTool(pipeline, logger).Register(s)

			logger.Info("serving web_search over stdio")
			return server.ServeStdio(s)
		},
	}
}

func queryCmd(debug *bool) *cobra.Command {
	var (
		req      search.Request
		truncate int
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "query <terms>",
		Short: "Run one search and print the JSON results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, pipeline, err := bootstrap(*debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			req.Query = args[0]
			if cmd.Flags().Changed("truncate") {
				req.Truncate = &truncate
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := pipeline.Search(ctx, req)
			if err != nil {
				return err
			}
			payload, err := tool.Encode(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&req.ExcludeDomains, "exclude", nil, "domains to exclude")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum number of results")
	cmd.Flags().IntVar(&truncate, "truncate", 0, "truncate each result's content to this many characters")
	cmd.Flags().StringVar(&req.Proxy, "proxy", "", "proxy server for the browser")
	cmd.Flags().BoolVar(&req.Show, "show", false, "show the browser window")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall deadline for the search")
	return cmd
}

func bootstrap(debug bool) (*zap.Logger, *search.Pipeline, error) {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// =========
	// Logging
	// =========
	newLogger := zap.NewProduction
	if debug {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	// =========
	// Search pipeline
	// =========
	provider, err := search.LookupProvider(cfg.Provider)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := extract.New(cfg.Extractor)
	if err != nil {
		return nil, nil, err
	}
	pcfg := search.Config{
		Provider:     provider,
		Browser:      cfg.BrowserOptions(),
		Concurrency:  cfg.Concurrency,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		SkipDomains:  cfg.SkipDomains,
		Extractor:    extractor,
	}
	if cfg.TorControl != "" {
		pcfg.Circuits = tor.NewController(cfg.TorControl, cfg.TorPassword)
	}
	pipeline, err := search.NewPipeline(pcfg, search.ChromeLauncher(logger), logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("pipeline ready",
		zap.String("provider", provider.Name),
		zap.String("extractor", extractor.Name()),
		zap.Int("concurrency", cfg.Concurrency))
	return logger, pipeline, nil
}
