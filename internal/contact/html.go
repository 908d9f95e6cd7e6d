package contact

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses page markup. Visible text (scripts and styles removed) and
// mailto:/tel: hrefs rank ahead of matches found only in attribute values.
// Script and style bodies are never searched.
func ParseHTML(markup string) Bundle {
	if strings.TrimSpace(markup) == "" {
		return Bundle{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Parse(markup)
	}

	var hrefs []string
	doc.Find(`a[href^="mailto:"], a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if i := strings.Index(href, "?"); i != -1 {
			href = href[:i]
		}
		hrefs = append(hrefs, href)
	})

	var attrs []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, a := range s.Nodes[0].Attr {
			attrs = append(attrs, a.Val)
		}
	})

	doc.Find("script, style, noscript").Remove()
	text := doc.Text()

	return MergeBundles(
		Parse(text),
		Parse(strings.Join(hrefs, "\n")),
		Parse(strings.Join(attrs, "\n")),
	)
}
