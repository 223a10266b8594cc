package cleaner

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// Supported description formats.
const (
	FormatRaw      = "raw"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Normalizer rewrites free-text record fields into one output format.
// It is safe for concurrent use.
type Normalizer struct {
	format string
	md     *converter.Converter
}

// NewNormalizer returns a Normalizer for format, or an error for an unknown
// format. An empty format means FormatRaw.
func NewNormalizer(format string) (*Normalizer, error) {
	n := &Normalizer{format: format}
	switch format {
	case "", FormatRaw:
		n.format = FormatRaw
	case FormatText:
	case FormatMarkdown:
		n.md = newMarkdownConverter()
	default:
		return nil, fmt.Errorf("unknown description format %q", format)
	}
	return n, nil
}

// Format reports the output format.
func (n *Normalizer) Format() string {
	return n.format
}

// Normalize converts s to the configured format.
func (n *Normalizer) Normalize(s string) (string, error) {
	switch n.format {
	case FormatText:
		return ToText(s)
	case FormatMarkdown:
		return ToMarkdown(n.md, s)
	default:
		return s, nil
	}
}
