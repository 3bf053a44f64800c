// Package linkextract pulls raw anchor href strings out of an HTML byte
// stream, tolerating malformed markup the way a browser would. It performs
// no URL resolution: that is the Crawler's job, since resolution needs the
// fetching page's URL as a base.
package linkextract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// Extract returns every raw href attribute found on an <a> element in html,
// in document order, with duplicates preserved.
func Extract(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return extract(doc), nil
}

func extract(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var hrefs []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}
