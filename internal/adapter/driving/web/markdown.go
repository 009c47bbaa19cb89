package web

import (
	"bytes"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderMarkdown converts a markdown string to sanitized HTML. Store
// descriptions arrive as free text that occasionally carries markup.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// RenderAvailabilityBadge converts a stock count into a badge <span> with a
// CSS class indicating urgency:
//   - avail-none: sold out (0 bags)
//   - avail-low: nearly gone (1 or 2 bags)
//   - avail-ok: in stock (3 or more bags)
func RenderAvailabilityBadge(itemsAvailable int) string {
	var buf bytes.Buffer
	buf.WriteString(`<span class="`)
	buf.WriteString(classForAvailability(itemsAvailable))
	buf.WriteString(`">`)
	buf.WriteString(labelForAvailability(itemsAvailable))
	buf.WriteString(`</span>`)
	return buf.String()
}

func classForAvailability(itemsAvailable int) string {
	switch {
	case itemsAvailable <= 0:
		return "avail-none"
	case itemsAvailable <= 2:
		return "avail-low"
	default:
		return "avail-ok"
	}
}

func labelForAvailability(itemsAvailable int) string {
	switch {
	case itemsAvailable <= 0:
		return "sold out"
	case itemsAvailable == 1:
		return "1 bag left"
	default:
		return strconv.Itoa(itemsAvailable) + " bags left"
	}
}
