package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"table": {}, "tr": {}, "td": {}, "th": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// parseFragment parses a description. Plain text parses to a document whose
// text is the input itself.
func parseFragment(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// visibleText flattens a document to text, separating block elements so that
// words from adjacent paragraphs or cells do not run together.
func visibleText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	var b strings.Builder
	writeText(doc.Selection, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		if name == "#text" {
			b.WriteString(node.Text())
			return
		}
		_, block := blockElements[name]
		if block {
			b.WriteByte(' ')
		}
		writeText(node, b)
		if block {
			b.WriteByte(' ')
		}
	})
}
