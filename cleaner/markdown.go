package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter.
// Descriptions are short fragments, so only the base and commonmark plugins
// are needed: emphasis, lists and line breaks survive, markup noise does not.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// ToMarkdown converts an HTML fragment to Markdown.
func ToMarkdown(conv *converter.Converter, htmlContent string) (string, error) {
	md, err := conv.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}
