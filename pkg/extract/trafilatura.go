package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

type Trafilatura struct {
	opts trafilatura.Options
}

func NewTrafilatura() *Trafilatura {
	return &Trafilatura{
		opts: trafilatura.Options{
			EnableFallback:  true,
			ExcludeComments: true,
		},
	}
}

func (t *Trafilatura) Name() string { return "trafilatura" }

func (t *Trafilatura) Extract(doc string, pageURL *url.URL) (Article, error) {
	opts := t.opts
	opts.OriginalURL = pageURL

	result, err := trafilatura.Extract(strings.NewReader(doc), opts)
	if err != nil {
		return Article{}, fmt.Errorf("trafilatura: %w", err)
	}
	if result == nil || result.ContentNode == nil || strings.TrimSpace(result.ContentText) == "" {
		return Article{}, ErrNoContent
	}

	fragment, err := renderNode(result.ContentNode)
	if err != nil {
		return Article{}, fmt.Errorf("trafilatura: render content: %w", err)
	}
	return Article{
		Title: strings.TrimSpace(result.Metadata.Title),
		HTML:  fragment,
	}, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
