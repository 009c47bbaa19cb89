package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_PlainText(t *testing.T) {
	result := RenderMarkdown("Surprise bag with bread and pastries from the day.")
	assert.Contains(t, result, "Surprise bag with bread and pastries from the day.")
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**Vegetarian** options included")
	assert.Contains(t, result, "<strong>Vegetarian</strong>")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[allergy info](https://example.com/allergens)")
	assert.Contains(t, result, `<a href="https://example.com/allergens"`)
	assert.Contains(t, result, "allergy info</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~croissants~~ sold separately")
	assert.Contains(t, result, "<del>croissants</del>")
}

func TestRenderAvailabilityBadge_SoldOut(t *testing.T) {
	result := RenderAvailabilityBadge(0)

	assert.Contains(t, result, `class="avail-none"`)
	assert.Contains(t, result, "sold out")
}

func TestRenderAvailabilityBadge_Low(t *testing.T) {
	result := RenderAvailabilityBadge(1)
	assert.Contains(t, result, `class="avail-low"`)
	assert.Contains(t, result, "1 bag left")

	result = RenderAvailabilityBadge(2)
	assert.Contains(t, result, `class="avail-low"`)
	assert.Contains(t, result, "2 bags left")
}

func TestRenderAvailabilityBadge_InStock(t *testing.T) {
	result := RenderAvailabilityBadge(5)

	assert.Contains(t, result, `class="avail-ok"`)
	assert.Contains(t, result, "5 bags left")
}

func TestRenderAvailabilityBadge_NegativeCountsAsSoldOut(t *testing.T) {
	result := RenderAvailabilityBadge(-1)
	assert.Contains(t, result, `class="avail-none"`)
}
