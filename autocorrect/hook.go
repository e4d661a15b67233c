package autocorrect

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/MartyZhou/selenium-selector-autocorrect/ledger"
	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

// Waiter is the underlying wait-for-element primitive the hook wraps.
type Waiter interface {
	WaitFor(ctx context.Context, loc locator.Locator, timeout time.Duration) error
}

// HTMLSupplier captures the current page DOM for suggestion context. It may
// return an empty string when no page is open.
type HTMLSupplier func(ctx context.Context) string

// Hook intercepts wait timeouts and routes them through the corrector.
// Corrections for a locator are cached, so a stale selector hit repeatedly
// within one run only costs one AI round trip.
type Hook struct {
	waiter    Waiter
	corrector *Corrector
	pageHTML  HTMLSupplier

	mu      sync.Mutex
	enabled bool
	cache   map[locator.Locator]locator.Locator
}

// NewHook wraps waiter with the correction pipeline. html may be nil.
func NewHook(waiter Waiter, corrector *Corrector, html HTMLSupplier) *Hook {
	return &Hook{
		waiter:    waiter,
		corrector: corrector,
		pageHTML:  html,
		enabled:   true,
		cache:     make(map[locator.Locator]locator.Locator),
	}
}

// SetEnabled toggles interception. When disabled, WaitFor is a plain
// pass-through.
func (h *Hook) SetEnabled(on bool) {
	h.mu.Lock()
	h.enabled = on
	h.mu.Unlock()
}

// ClearCache drops all cached corrections.
func (h *Hook) ClearCache() {
	h.mu.Lock()
	h.cache = make(map[locator.Locator]locator.Locator)
	h.mu.Unlock()
}

func (h *Hook) cached(loc locator.Locator) (locator.Locator, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.cache[loc]
	return c, ok
}

func (h *Hook) remember(stale, corrected locator.Locator) {
	h.mu.Lock()
	h.cache[stale] = corrected
	h.mu.Unlock()
}

// WaitFor waits for loc, and on timeout tries a cached or freshly suggested
// replacement. The original wait error is returned when no correction
// resolves; a successful correction returns nil.
func (h *Hook) WaitFor(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	err := h.waiter.WaitFor(ctx, loc, timeout)
	if err == nil {
		return nil
	}

	h.mu.Lock()
	enabled := h.enabled
	h.mu.Unlock()
	if !enabled {
		return err
	}

	if corrected, ok := h.cached(loc); ok {
		if cerr := h.waiter.WaitFor(ctx, corrected, timeout); cerr == nil {
			return nil
		}
	}

	var html string
	if h.pageHTML != nil {
		html = h.pageHTML(ctx)
	}
	src := callerSource()
	corrected, ok := h.corrector.Correct(ctx, loc, html, src)
	if !ok {
		return err
	}
	h.remember(loc, corrected)
	return nil
}

// callerSource walks the stack for the nearest frame outside this module and
// the automation libraries, preferring test files. Returns nil when nothing
// plausible is found.
func callerSource() *ledger.SourceLocation {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])

	var first *ledger.SourceLocation
	for {
		frame, more := frames.Next()
		if frame.File != "" && !internalFrame(frame.File) {
			loc := &ledger.SourceLocation{File: frame.File, Line: frame.Line}
			if strings.Contains(frame.File, "test") {
				return loc
			}
			if first == nil {
				first = loc
			}
		}
		if !more {
			break
		}
	}
	return first
}

func internalFrame(file string) bool {
	for _, skip := range []string{
		"selenium-selector-autocorrect",
		"go-rod",
		"/runtime/",
		"/testing/",
	} {
		if strings.Contains(file, skip) {
			return true
		}
	}
	return false
}
