package autocorrect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

// RodResolver resolves locators against a live Rod page. It also satisfies
// Waiter, so the same page can back both the hook's wait path and the
// corrector's validation retry.
type RodResolver struct {
	page *rod.Page
}

// NewRodResolver wraps an open page.
func NewRodResolver(page *rod.Page) *RodResolver {
	return &RodResolver{page: page}
}

// Page returns the underlying Rod page.
func (r *RodResolver) Page() *rod.Page { return r.page }

// Resolve looks the locator up on the page, bounded by timeout. A nil error
// means at least one matching element exists.
func (r *RodResolver) Resolve(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	page := r.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	var err error
	switch loc.Strategy {
	case locator.XPath:
		_, err = page.ElementX(loc.Value)
	case locator.LinkText:
		_, err = page.ElementX(fmt.Sprintf(`//a[normalize-space(text())=%s]`, xpathLiteral(loc.Value)))
	case locator.PartialLinkText:
		_, err = page.ElementX(fmt.Sprintf(`//a[contains(normalize-space(text()),%s)]`, xpathLiteral(loc.Value)))
	default:
		css, cerr := cssFor(loc)
		if cerr != nil {
			return cerr
		}
		_, err = page.Element(css)
	}
	if err != nil {
		return fmt.Errorf("autocorrect: resolve %s: %w", loc.String(), err)
	}
	return nil
}

// WaitFor is Resolve under the Waiter contract.
func (r *RodResolver) WaitFor(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	return r.Resolve(ctx, loc, timeout)
}

// HTML captures the current DOM, for suggestion context. Errors degrade to
// an empty string.
func (r *RodResolver) HTML(ctx context.Context) string {
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return ""
	}
	return html
}

// cssFor maps a non-XPath strategy onto a CSS selector.
func cssFor(loc locator.Locator) (string, error) {
	switch loc.Strategy {
	case locator.ID:
		return fmt.Sprintf(`[id=%q]`, loc.Value), nil
	case locator.Name:
		return fmt.Sprintf(`[name=%q]`, loc.Value), nil
	case locator.ClassName:
		return "." + loc.Value, nil
	case locator.TagName, locator.CSSSelector:
		return loc.Value, nil
	default:
		return "", fmt.Errorf("autocorrect: no CSS mapping for strategy %q", loc.Strategy)
	}
}

// xpathLiteral quotes a string for embedding in an XPath expression. Values
// holding both quote kinds fall back to concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	for i, p := range parts {
		parts[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(parts, `,"'",`) + ")"
}

// OpenStealthPage opens a stealth tab on the browser and navigates it.
func OpenStealthPage(ctx context.Context, browser *rod.Browser, url string) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("autocorrect: create stealth page: %w", err)
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("autocorrect: navigate %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("autocorrect: wait load %s: %w", url, err)
	}
	return page, nil
}
