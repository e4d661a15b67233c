// Package pagectx condenses a captured page DOM into the context the AI
// service needs to propose a replacement locator: a markdown rendering of the
// visible content plus an inventory of interactive elements with their
// identifying attributes.
package pagectx

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	defaultMaxElements = 40
	defaultMaxMarkdown = 4000
)

// Element is one interactive element candidate on the page.
type Element struct {
	Tag   string            `json:"tag"`
	ID    string            `json:"id,omitempty"`
	Name  string            `json:"name,omitempty"`
	Class string            `json:"class,omitempty"`
	Type  string            `json:"type,omitempty"`
	Text  string            `json:"text,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// PageContext is the condensed page description embedded in the user prompt.
type PageContext struct {
	Title    string
	Markdown string
	Elements []Element
}

// Extractor builds PageContext values from raw page HTML.
type Extractor struct {
	sanitizer   *bluemonday.Policy
	md          *converter.Converter
	maxElements int
	maxMarkdown int
	logger      *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxElements caps the element inventory size.
func WithMaxElements(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxElements = n
		}
	}
}

// WithMaxMarkdown caps the markdown rendering length in bytes.
func WithMaxMarkdown(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxMarkdown = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor with the standard sanitization policy.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		maxElements: defaultMaxElements,
		maxMarkdown: defaultMaxMarkdown,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract parses raw page HTML into a PageContext. Element attributes are
// collected from the unsanitized tree (sanitization strips ids and data
// attributes); the markdown rendering goes through the sanitizer first so
// script and style bodies never reach the prompt.
func (e *Extractor) Extract(rawHTML string) (*PageContext, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("pagectx: parse html: %w", err)
	}

	pc := &PageContext{
		Title:    findTitle(doc),
		Elements: collectElements(doc, e.maxElements),
	}

	clean := e.sanitizer.Sanitize(rawHTML)
	md, err := e.md.ConvertString(clean)
	if err != nil {
		// Markdown is a nice-to-have; the element inventory alone is
		// usable context.
		e.logger.Debug("pagectx: markdown conversion failed", "error", err)
		md = ""
	}
	if len(md) > e.maxMarkdown {
		md = md[:e.maxMarkdown]
	}
	pc.Markdown = strings.TrimSpace(md)

	e.logger.Debug("pagectx: extracted",
		"title", pc.Title, "elements", len(pc.Elements), "markdown_size", len(pc.Markdown))
	return pc, nil
}

// interactiveTags are element kinds always worth listing.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "form": true, "label": true,
}

func collectElements(doc *html.Node, limit int) []Element {
	var out []Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode {
			el := Element{Tag: n.Data}
			for _, attr := range n.Attr {
				switch {
				case attr.Key == "id":
					el.ID = attr.Val
				case attr.Key == "name":
					el.Name = attr.Val
				case attr.Key == "class":
					el.Class = attr.Val
				case attr.Key == "type":
					el.Type = attr.Val
				case strings.HasPrefix(attr.Key, "data-"):
					if el.Data == nil {
						el.Data = make(map[string]string)
					}
					el.Data[attr.Key] = attr.Val
				}
			}
			// Keep interactive tags, and anything identifiable.
			if interactiveTags[n.Data] || el.ID != "" || len(el.Data) > 0 {
				el.Text = truncate(strings.TrimSpace(collectText(n)), 80)
				out = append(out, el)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
