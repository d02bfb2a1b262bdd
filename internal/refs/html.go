package refs

import (
	"strings"

	"golang.org/x/net/html"
)

// discoverHTML collects script sources and link hrefs.
func discoverHTML(content string) References {
	var found References
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return found
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			var attr string
			switch tok.Data {
			case "script":
				attr = "src"
			case "link":
				attr = "href"
			default:
				continue
			}
			for _, a := range tok.Attr {
				if a.Key == attr {
					found.add(a.Val, !isURL(a.Val), SourceHTML)
				}
			}
		}
	}
}
