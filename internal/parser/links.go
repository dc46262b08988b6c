// Package parser extracts link targets from HTML documents.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the href of every anchor in html, in document order.
// Values are returned verbatim; resolving them is the caller's job. Documents
// that cannot be parsed yield no links.
func ExtractLinks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links
}
