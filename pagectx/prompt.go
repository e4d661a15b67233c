package pagectx

import (
	"fmt"
	"strings"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

// SystemPrompt instructs the AI service on the correction task and the exact
// answer shape ParseSuggestion understands.
func SystemPrompt() string {
	return strings.TrimSpace(`
You repair broken element locators in browser automation tests.
Given a failed locator and the current page content, propose one replacement
locator that identifies the element the test most likely intended.
Prefer stable attributes: id first, then name, then data attributes, then a
short CSS selector. Use xpath only when nothing else can express the match.
Answer with a single JSON object and nothing else:
{"strategy": "<id|name|class name|tag name|css selector|xpath|link text|partial link text>", "value": "<locator value>", "confidence": <0..1>, "reasoning": "<one sentence>"}
`)
}

// UserPrompt embeds the failed locator and the condensed page context.
func UserPrompt(failed locator.Locator, pc *PageContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A wait for this locator timed out:\n  strategy: %s\n  value: %s\n\n",
		failed.Strategy, failed.Value)

	if pc == nil {
		b.WriteString("No page content is available.\n")
		return b.String()
	}

	if pc.Title != "" {
		fmt.Fprintf(&b, "Page title: %s\n\n", pc.Title)
	}

	if len(pc.Elements) > 0 {
		b.WriteString("Interactive elements on the page:\n")
		for _, el := range pc.Elements {
			b.WriteString("  - ")
			b.WriteString(describeElement(el))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if pc.Markdown != "" {
		b.WriteString("Page content (markdown):\n")
		b.WriteString(pc.Markdown)
		b.WriteString("\n")
	}

	return b.String()
}

func describeElement(el Element) string {
	parts := []string{"<" + el.Tag + ">"}
	if el.ID != "" {
		parts = append(parts, "id="+el.ID)
	}
	if el.Name != "" {
		parts = append(parts, "name="+el.Name)
	}
	if el.Class != "" {
		parts = append(parts, "class="+el.Class)
	}
	if el.Type != "" {
		parts = append(parts, "type="+el.Type)
	}
	for k, v := range el.Data {
		parts = append(parts, k+"="+v)
	}
	if el.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", el.Text))
	}
	return strings.Join(parts, " ")
}
