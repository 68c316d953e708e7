package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type Readability struct{}

func NewReadability() *Readability {
	return &Readability{}
}

func (r *Readability) Name() string { return "readability" }

func (r *Readability) Extract(html string, pageURL *url.URL) (Article, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability: %w", err)
	}
	if strings.TrimSpace(article.TextContent) == "" || strings.TrimSpace(article.Content) == "" {
		return Article{}, ErrNoContent
	}
	return Article{
		Title: strings.TrimSpace(article.Title),
		HTML:  article.Content,
	}, nil
}
