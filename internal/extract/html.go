package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// scanAnchors returns href values of <a> elements that begin with "http".
// The tokenizer is lenient, so malformed markup yields whatever anchors it
// could still read.
func scanAnchors(text string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.A {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) != "href" {
					continue
				}
				href := strings.TrimSpace(string(val))
				if strings.HasPrefix(href, "http") {
					out = append(out, href)
				}
			}
		}
	}
}
