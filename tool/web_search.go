// Package tool exposes the search pipeline as an MCP tool.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"websearch/browser"
	"websearch/search"
)

const Name = "web_search"

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

type webSearchParams struct {
	Query          string   `json:"query"`
	ExcludeDomains []string `json:"excludeDomains"`
	Limit          *float64 `json:"limit"`
	Truncate       *float64 `json:"truncate"`
	Proxy          string   `json:"proxy"`
	Show           bool     `json:"show"`
}

func (p webSearchParams) request() (search.Request, error) {
	req := search.Request{
		Query:          p.Query,
		ExcludeDomains: p.ExcludeDomains,
		Proxy:          p.Proxy,
		Show:           p.Show,
	}
	if p.Limit != nil {
		n, err := toInt("limit", *p.Limit)
		if err != nil {
			return search.Request{}, err
		}
		if *p.Limit < 1 {
			return search.Request{}, fmt.Errorf("%w: got %v", search.ErrInvalidLimit, *p.Limit)
		}
		req.Limit = n
	}
	if p.Truncate != nil {
		n, err := toInt("truncate", *p.Truncate)
		if err != nil {
			return search.Request{}, err
		}
		req.Truncate = &n
	}
	return req, nil
}

// toInt converts a JSON number to int, rejecting values int32 cannot hold.
func toInt(name string, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%s %v is out of range", name, v)
	}
	return int(v), nil
}

// WebSearchTool adapts a Searcher to the MCP tool-call interface.
type WebSearchTool struct {
	searcher Searcher
	logger   *zap.Logger
}

func NewWebSearchTool(searcher Searcher, logger *zap.Logger) *WebSearchTool {
	return &WebSearchTool{searcher: searcher, logger: logger}
}

// Definition describes the tool's input schema.
func (t *WebSearchTool) Definition() mcp.Tool {
	return mcp.NewTool(Name,
		mcp.WithDescription("Search the web with a headless browser and return the readable content of each result as markdown."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithArray("excludeDomains", mcp.WithStringItems(), mcp.Description("Domains to leave out of the results")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum number of results (default %d, max %d)", search.DefaultLimit, search.MaxLimit))),
		mcp.WithNumber("truncate", mcp.Description("Cut each result's content to this many characters")),
		mcp.WithString("proxy", mcp.Description("Proxy server for the browser, e.g. socks5://127.0.0.1:9050")),
		mcp.WithBoolean("show", mcp.Description("Show the browser window instead of running headless")),
	)
}

// Register adds the tool to an MCP server.
func (t *WebSearchTool) Register(s *server.MCPServer) {
	s.AddTool(t.Definition(), t.Handle)
}

// Handle serves one tool call. Failures are reported as error-flagged
// results, never as protocol errors.
func (t *WebSearchTool) Handle(ctx context.Context, call mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("web_search panicked", zap.Any("panic", r))
			result, err = mcp.NewToolResultError(fmt.Sprintf("internal error: %v", r)), nil
		}
	}()

	var params webSearchParams
	if err := call.BindArguments(&params); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	req, err := params.request()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := t.searcher.Search(ctx, req)
	if err != nil {
		t.logger.Warn("web_search failed", zap.String("query", req.Query), zap.Error(err))
		return mcp.NewToolResultError(describe(err)), nil
	}

	payload, err := Encode(resp)
	if err != nil {
		return mcp.NewToolResultError("encode results: " + err.Error()), nil
	}
	return mcp.NewToolResultText(payload), nil
}

// Encode renders a response as the tool's textual payload.
func Encode(resp *search.Response) (string, error) {
	if resp == nil {
		resp = &search.Response{}
	}
	if resp.Results == nil {
		resp = &search.Response{Results: []search.Result{}}
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidLimit),
		errors.Is(err, search.ErrInvalidTruncate):
		return "invalid request: " + err.Error()
	case browser.IsLaunch(err):
		return "browser unavailable: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "search aborted: " + err.Error()
	default:
		return "search failed: " + err.Error()
	}
}
