// Package markdown converts extracted HTML fragments to normalized markdown.
package markdown

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

var (
	tagPattern       = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	trailingSpacePat = regexp.MustCompile(`[ \t]+\n`)
)

// Converter turns HTML fragments into markdown. It never fails: malformed
// input degrades to a plain-text rendering.
type Converter struct{}

func NewConverter() *Converter {
	return &Converter{}
}

// Convert returns the markdown form of fragment. Input with no HTML tags is
// treated as already converted and only normalized, so converting twice
// does not escape the output again.
func (c *Converter) Convert(fragment string) (md string) {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !looksLikeHTML(fragment) {
		return Normalize(fragment)
	}

	defer func() {
		if r := recover(); r != nil {
			md = PlainText(fragment)
		}
	}()

	out, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return PlainText(fragment)
	}
	return Normalize(out)
}

// PlainText strips all markup and returns the visible text.
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Normalize(tagPattern.ReplaceAllString(fragment, " "))
	}
	doc.Find("script, style, noscript").Remove()
	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return Normalize(strings.Join(lines, "\n"))
}

// Normalize trims trailing spaces on each line, collapses runs of blank
// lines and trims the whole text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpacePat.ReplaceAllString(text, "\n")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func looksLikeHTML(s string) bool {
	return tagPattern.MatchString(s)
}
