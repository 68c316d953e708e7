package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"websearch/browser"
	"websearch/pkg/extract"
	"websearch/pkg/markdown"
)

const maxSnapshotHTML = 2 << 20

// contentSnapshotJS runs inside each visited page: it removes noise nodes
// and hands the remaining document back as plain data.
const contentSnapshotJS = `function (doc, args) {
  var removed = 0;
  for (var i = 0; i < args.noiseSelectors.length; i++) {
    var nodes;
    try { nodes = doc.querySelectorAll(args.noiseSelectors[i]); } catch (e) { continue; }
    for (var j = 0; j < nodes.length; j++) {
      try { nodes[j].remove(); removed++; } catch (e) {}
    }
  }
  var html = doc.documentElement ? doc.documentElement.outerHTML : '';
  if (html.length > args.maxHTML) html = html.slice(0, args.maxHTML);
  return {
    title: (doc.title || '').trim(),
    url: doc.location ? doc.location.href : '',
    html: html,
    removed: removed
  };
}`

type snapshotArgs struct {
	NoiseSelectors []string `json:"noiseSelectors"`
	MaxHTML        int      `json:"maxHTML"`
}

// pageSnapshot is what crosses back from the page.
type pageSnapshot struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	HTML    string `json:"html"`
	Removed int    `json:"removed"`
}

func contentSnapshotScript() browser.Script {
	return browser.Script{
		Name:   "snapshot-content",
		Source: contentSnapshotJS,
		Args: snapshotArgs{
			NoiseSelectors: extract.NoiseSelectors,
			MaxHTML:        maxSnapshotHTML,
		},
	}
}

// ContentExtractor pulls the readable article out of a visited page and
// renders it as markdown.
type ContentExtractor struct {
	articles  extract.ArticleExtractor
	converter *markdown.Converter
}

func NewContentExtractor(articles extract.ArticleExtractor, converter *markdown.Converter) *ContentExtractor {
	if articles == nil {
		articles = extract.NewReadability()
	}
	if converter == nil {
		converter = markdown.NewConverter()
	}
	return &ContentExtractor{articles: articles, converter: converter}
}

// pageContent is the extracted title and markdown body of one page.
type pageContent struct {
	Title    string
	Markdown string
}

// Fetch visits link in its own page and returns the extracted content.
func (ce *ContentExtractor) Fetch(ctx context.Context, b Browser, link CandidateLink) (pageContent, error) {
	var snap pageSnapshot
	if err := b.EvaluateOnPage(ctx, link.URL, contentSnapshotScript(), &snap); err != nil {
		return pageContent{}, err
	}
	return ce.fromSnapshot(snap, link.URL)
}

func (ce *ContentExtractor) fromSnapshot(snap pageSnapshot, fallbackURL string) (pageContent, error) {
	if strings.TrimSpace(snap.HTML) == "" {
		return pageContent{}, extract.ErrNoContent
	}

	pageURL, err := url.Parse(snap.URL)
	if err != nil || !pageURL.IsAbs() {
		pageURL, err = url.Parse(fallbackURL)
		if err != nil {
			return pageContent{}, fmt.Errorf("parse page url: %w", err)
		}
	}

	cleaned, err := extract.StripNoise(snap.HTML)
	if err != nil {
		cleaned = snap.HTML
	}

	article, err := ce.articles.Extract(cleaned, pageURL)
	if err != nil {
		return pageContent{}, err
	}
	if strings.TrimSpace(article.HTML) == "" {
		return pageContent{}, extract.ErrNoContent
	}

	md := ce.converter.Convert(article.HTML)
	if md == "" {
		return pageContent{}, extract.ErrNoContent
	}

	title := article.Title
	if title == "" {
		title = snap.Title
	}
	return pageContent{Title: title, Markdown: md}, nil
}

// isExtractionMiss reports whether err means "page loaded but had no
// article" rather than a browser failure.
func isExtractionMiss(err error) bool {
	return errors.Is(err, extract.ErrNoContent)
}
