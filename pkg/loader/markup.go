package loader

import (
	"strings"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
}

// StripMarkup removes HTML tags and entities from a generation and collapses
// whitespace. Text without any markup is returned unchanged.
func StripMarkup(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " ")
}

// StripDatasetMarkup applies StripMarkup to every generation of ds in place.
func StripDatasetMarkup(ds *common.Dataset) {
	for i, g := range ds.Generations {
		ds.Generations[i] = StripMarkup(g)
	}
}
