// Package extract isolates the main article of a web page.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoContent is returned when an extractor finds no article body.
var ErrNoContent = errors.New("no article content")

// NoiseSelectors are removed from a document before article extraction.
// The same list is applied in-page and host side.
var NoiseSelectors = []string{
	"script", "style", "noscript", "template", "svg", "canvas",
	"img", "picture", "video", "audio", "source", "track",
	"iframe", "frame", "object", "embed", "link[rel='stylesheet']",
	"nav", "footer", "aside", "form",
	".reflist", ".references", "ol.references", ".mw-references-wrap",
	".navbox", ".sidebar", "#toc", ".toc",
	"[role='navigation']", "[aria-hidden='true']",
}

// Article is the extracted main content of a page.
type Article struct {
	Title string
	HTML  string
}

// ArticleExtractor turns a whole HTML document into its main article.
type ArticleExtractor interface {
	Extract(html string, pageURL *url.URL) (Article, error)
	Name() string
}

// New returns the extractor registered under name.
func New(name string) (ArticleExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "readability":
		return NewReadability(), nil
	case "trafilatura":
		return NewTrafilatura(), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// StripNoise removes NoiseSelectors from doc and returns the remaining HTML.
func StripNoise(doc string) (string, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	d.Find(strings.Join(NoiseSelectors, ", ")).Remove()
	out, err := d.Html()
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return out, nil
}
