package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ToText strips markup from an HTML fragment and collapses whitespace.
// Plain text passes through with only its whitespace collapsed.
func ToText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
