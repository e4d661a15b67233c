// Package ledger keeps the append-only record of every locator correction
// attempt. Records are immutable once appended; the ledger lives for the
// process and is emptied only by an explicit Clear. An optional SQLite store
// archives records across runs.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

// Record is one correction attempt. Field names follow the persisted report
// format consumed by downstream tooling.
type Record struct {
	OriginalBy     locator.Strategy `json:"original_by"`
	OriginalValue  string           `json:"original_value"`
	CorrectedBy    locator.Strategy `json:"corrected_by"`
	CorrectedValue string           `json:"corrected_value"`
	Success        bool             `json:"success"`
	TestFile       string           `json:"test_file,omitempty"`
	TestLine       int              `json:"test_line,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Original returns the failed locator.
func (r Record) Original() locator.Locator {
	return locator.Locator{Strategy: r.OriginalBy, Value: r.OriginalValue}
}

// Corrected returns the suggested locator.
func (r Record) Corrected() locator.Locator {
	return locator.Locator{Strategy: r.CorrectedBy, Value: r.CorrectedValue}
}

// SourceLocation names the test file and line a correction belongs to.
type SourceLocation struct {
	File string
	Line int
}

// SourceLocator is the fallback used to attribute a correction when the
// caller did not pass a location. The hook boundary installs a stack-walking
// implementation; the ledger itself knows nothing about call stacks.
type SourceLocator func() (SourceLocation, bool)

// PatchFunc applies a successful correction to the source files that
// reference the stale locator. Failures are logged and swallowed: recording
// must never fail because a patch did.
type PatchFunc func(ctx context.Context, rec Record) error

// Ledger is the ordered, process-lifetime correction log.
type Ledger struct {
	mu      sync.Mutex
	records []Record

	autoUpdate bool
	patch      PatchFunc
	locate     SourceLocator
	store      *Store
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAutoUpdate enables the synchronous patch trigger on successful
// corrections that carry a source file.
func WithAutoUpdate(patch PatchFunc) Option {
	return func(l *Ledger) {
		l.autoUpdate = true
		l.patch = patch
	}
}

// WithSourceLocator installs the fallback source attribution.
func WithSourceLocator(fn SourceLocator) Option {
	return func(l *Ledger) { l.locate = fn }
}

// WithStore archives every record to a persistent store as well.
func WithStore(s *Store) Option {
	return func(l *Ledger) { l.store = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record appends one correction attempt. When src is nil the configured
// SourceLocator supplies the attribution; if none qualifies the location
// stays empty. With auto-update enabled, a successful correction with a
// known source file triggers the patcher synchronously; patch errors are
// logged, never propagated.
func (l *Ledger) Record(ctx context.Context, original, corrected locator.Locator, success bool, src *SourceLocation) {
	rec := Record{
		OriginalBy:     original.Strategy,
		OriginalValue:  original.Value,
		CorrectedBy:    corrected.Strategy,
		CorrectedValue: corrected.Value,
		Success:        success,
		Timestamp:      l.now(),
	}
	if src == nil && l.locate != nil {
		if loc, ok := l.locate(); ok {
			src = &loc
		}
	}
	if src != nil {
		rec.TestFile = src.File
		rec.TestLine = src.Line
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()

	l.logger.Info("correction tracked",
		"original", original.String(),
		"corrected", corrected.String(),
		"success", success,
		"test_file", rec.TestFile,
		"test_line", rec.TestLine)

	if l.store != nil {
		if err := l.store.Append(ctx, rec); err != nil {
			l.logger.Warn("ledger: archive append failed", "error", err)
		}
	}

	if l.autoUpdate && success && rec.TestFile != "" && l.patch != nil {
		l.logger.Info("auto-update: patching source files", "test_file", rec.TestFile)
		l.runPatch(ctx, rec)
	}
}

// runPatch contains the patch callback. A panic inside it must not escape
// Record: the audit trail always survives a failed patch.
func (l *Ledger) runPatch(ctx context.Context, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("auto-update: patch panicked", "panic", r)
		}
	}()
	if err := l.patch(ctx, rec); err != nil {
		l.logger.Warn("auto-update: patch failed", "error", err)
	}
}

// List returns a copy of all records in insertion order.
func (l *Ledger) List() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Successful returns the records with Success true, preserving order.
func (l *Ledger) Successful() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
