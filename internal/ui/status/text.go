package status

import (
	"strings"

	"golang.org/x/net/html"
)

// plainText flattens registry descriptions, which may carry inline HTML from
// the web listing, to a single line of text. Entities are decoded and runs of
// whitespace collapse to one space.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-level tags and <br> separate words
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li", "ul", "ol":
				b.WriteByte(' ')
			}
		}
	}
}
