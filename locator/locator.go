// Package locator defines the strategy+value pair used to identify page
// elements, the fixed set of lookup strategies, and parsing of AI suggestion
// text into a structured locator.
package locator

import (
	"fmt"
	"strings"
)

// Strategy is a locator lookup strategy. The set is closed: it mirrors the
// Selenium By strategies and nothing else.
type Strategy string

const (
	ID              Strategy = "id"
	Name            Strategy = "name"
	ClassName       Strategy = "class name"
	TagName         Strategy = "tag name"
	CSSSelector     Strategy = "css selector"
	XPath           Strategy = "xpath"
	LinkText        Strategy = "link text"
	PartialLinkText Strategy = "partial link text"
)

// byTokens maps each strategy to its source-code token, the identifier that
// appears after "By." in test files.
var byTokens = map[Strategy]string{
	ID:              "ID",
	Name:            "NAME",
	ClassName:       "CLASS_NAME",
	TagName:         "TAG_NAME",
	CSSSelector:     "CSS_SELECTOR",
	XPath:           "XPATH",
	LinkText:        "LINK_TEXT",
	PartialLinkText: "PARTIAL_LINK_TEXT",
}

// aliases accepts the loose spellings the AI service and callers use.
var aliases = map[string]Strategy{
	"id":                ID,
	"name":              Name,
	"class name":        ClassName,
	"class":             ClassName,
	"class_name":        ClassName,
	"tag name":          TagName,
	"tag":               TagName,
	"tag_name":          TagName,
	"css selector":      CSSSelector,
	"css":               CSSSelector,
	"css_selector":      CSSSelector,
	"xpath":             XPath,
	"link text":         LinkText,
	"link_text":         LinkText,
	"partial link text": PartialLinkText,
	"partial_link_text": PartialLinkText,
}

// ParseStrategy normalizes a loose strategy spelling ("css", "CLASS_NAME",
// "tag name") into a Strategy. Returns an error for anything outside the set.
func ParseStrategy(s string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := aliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("locator: unknown strategy %q", s)
}

// ByToken returns the source token for the strategy ("XPATH", "CSS_SELECTOR").
// Empty string for an unrecognized strategy.
func (s Strategy) ByToken() string {
	return byTokens[s]
}

// Valid reports whether the strategy belongs to the closed set.
func (s Strategy) Valid() bool {
	_, ok := byTokens[s]
	return ok
}

// Locator identifies a page element by strategy and value. The value is an
// opaque string whose syntax depends on the strategy; it is never validated
// beyond presence.
type Locator struct {
	Strategy Strategy `json:"strategy"`
	Value    string   `json:"value"`
}

// New builds a Locator from a loose strategy spelling.
func New(strategy, value string) (Locator, error) {
	st, err := ParseStrategy(strategy)
	if err != nil {
		return Locator{}, err
	}
	if value == "" {
		return Locator{}, fmt.Errorf("locator: empty value")
	}
	return Locator{Strategy: st, Value: value}, nil
}

func (l Locator) String() string {
	return fmt.Sprintf("(%s, %q)", l.Strategy, l.Value)
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool {
	return l.Strategy == "" && l.Value == ""
}
