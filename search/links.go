package search

import (
	"context"
	"net/url"
	"strings"

	"websearch/browser"
)

// linkExtractorJS runs inside the results page. Every result block is
// handled in its own try so one malformed node cannot abort the rest.
const linkExtractorJS = `function (doc, args) {
  var out = [];
  var blocks;
  try { blocks = doc.querySelectorAll(args.resultSelector); } catch (e) { return out; }
  for (var i = 0; i < blocks.length; i++) {
    try {
      var block = blocks[i];
      var anchor = null;
      if (block.matches('a[href]')) anchor = block;
      else anchor = block.querySelector(args.linkSelector || 'a[href]');
      if (!anchor) continue;

      var titleEl = args.titleSelector ? block.querySelector(args.titleSelector) : null;
      var title = ((titleEl || anchor).textContent || '').replace(/\s+/g, ' ').trim();
      if (!title) continue;

      var href = (anchor.getAttribute('href') || '').trim();
      var resolved = '';
      if (/^https?:\/\//i.test(href)) {
        resolved = href;
      } else if (args.allowRootRelative && href.charAt(0) === '/' && href.charAt(1) !== '/') {
        resolved = args.origin + href;
      } else {
        continue;
      }

      var u;
      try { u = new URL(resolved); } catch (e) { continue; }
      if (u.protocol !== 'http:' && u.protocol !== 'https:') continue;

      var snippetEl = args.snippetSelector ? block.querySelector(args.snippetSelector) : null;
      var snippet = snippetEl ? (snippetEl.textContent || '').replace(/\s+/g, ' ').trim() : '';
      out.push({title: title, url: u.href, description: snippet});
    } catch (e) {
      continue;
    }
  }
  return out;
}`

type linkExtractorArgs struct {
	ResultSelector    string `json:"resultSelector"`
	LinkSelector      string `json:"linkSelector"`
	TitleSelector     string `json:"titleSelector"`
	SnippetSelector   string `json:"snippetSelector"`
	Origin            string `json:"origin"`
	AllowRootRelative bool   `json:"allowRootRelative"`
}

func linkExtractorScript(p Provider) browser.Script {
	return browser.Script{
		Name:   "extract-links",
		Source: linkExtractorJS,
		Args: linkExtractorArgs{
			ResultSelector:    p.ResultSelector,
			LinkSelector:      p.LinkSelector,
			TitleSelector:     p.TitleSelector,
			SnippetSelector:   p.SnippetSelector,
			Origin:            p.Origin(),
			AllowRootRelative: p.AllowRootRelative,
		},
	}
}

// extractLinks renders the results page and returns its candidate links in
// page order. An empty slice is a valid outcome.
func extractLinks(ctx context.Context, b Browser, p Provider, resultsURL string) ([]CandidateLink, error) {
	var raw []CandidateLink
	if err := b.EvaluateOnPage(ctx, resultsURL, linkExtractorScript(p), &raw); err != nil {
		return nil, err
	}
	return sanitizeLinks(raw, p), nil
}

// sanitizeLinks re-applies the in-page validation rules host side.
func sanitizeLinks(raw []CandidateLink, p Provider) []CandidateLink {
	origin := p.Origin()
	links := make([]CandidateLink, 0, len(raw))
	for _, l := range raw {
		title := strings.Join(strings.Fields(l.Title), " ")
		if title == "" {
			continue
		}
		href := strings.TrimSpace(l.URL)
		if p.AllowRootRelative && strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
			href = origin + href
		}
		u, err := url.Parse(href)
		if err != nil || !u.IsAbs() || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		links = append(links, CandidateLink{
			Title:       title,
			URL:         u.String(),
			Description: strings.TrimSpace(l.Description),
		})
	}
	return links
}
