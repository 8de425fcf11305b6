// Package parser turns raw page bytes into the pieces the crawler needs:
// outgoing link targets and the visible text.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// linkSelector matches every element whose href the crawler follows.
const linkSelector = `a[href], link[rel~="stylesheet"][href]`

// Document is the parsed form of an HTML page.
type Document struct {
	Title string
	// Links are raw href values in document order, unresolved.
	Links []string
	// Text is the visible text, one space between text nodes.
	Text string
	// TextLength counts visible characters excluding the joining spaces.
	TextLength int
}

// skippedElements hold text that is never rendered.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Parse parses content as HTML. The HTML5 algorithm recovers from almost
// any malformed input, so errors are rare and mean the reader failed.
func Parse(content []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{Links: []string{}}

	sel := goquery.NewDocumentFromNode(root)
	doc.Title = strings.TrimSpace(sel.Find("title").First().Text())
	sel.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href = strings.TrimSpace(href); href != "" {
			doc.Links = append(doc.Links, href)
		}
	})

	var parts []string
	collectText(root, &parts)
	for _, p := range parts {
		doc.TextLength += utf8.RuneCountInString(p)
	}
	doc.Text = strings.Join(parts, " ")

	return doc, nil
}

// collectText walks the tree gathering trimmed text nodes.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
