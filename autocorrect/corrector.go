package autocorrect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MartyZhou/selenium-selector-autocorrect/importgraph"
	"github.com/MartyZhou/selenium-selector-autocorrect/ledger"
	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
	"github.com/MartyZhou/selenium-selector-autocorrect/pagectx"
	"github.com/MartyZhou/selenium-selector-autocorrect/patcher"
	"github.com/MartyZhou/selenium-selector-autocorrect/suggest"
	"github.com/MartyZhou/selenium-selector-autocorrect/workspace"
)

// Resolver attempts to resolve a locator against the live page within a
// bounded timeout. A nil error means the element was found.
type Resolver interface {
	Resolve(ctx context.Context, loc locator.Locator, timeout time.Duration) error
}

// Corrector drives one correction pipeline: suggestion, retry, recording,
// optional patching. Construct one per test-run context together with its
// ledger; there is no shared package state.
type Corrector struct {
	cfg      Config
	provider suggest.Provider
	extract  *pagectx.Extractor
	resolver Resolver
	ledger   *ledger.Ledger
	patch    *patcher.Patcher
	logger   *slog.Logger

	db *sql.DB // history store handle, closed by Close
}

// CorrectorOption overrides a constructed dependency.
type CorrectorOption func(*Corrector)

// WithProvider replaces the AI provider.
func WithProvider(p suggest.Provider) CorrectorOption {
	return func(c *Corrector) { c.provider = p }
}

// WithResolver sets the live-page resolver used to validate suggestions.
// Without one, suggestions are recorded as unvalidated failures.
func WithResolver(r Resolver) CorrectorOption {
	return func(c *Corrector) { c.resolver = r }
}

// New builds a fully wired Corrector from configuration.
func New(cfg Config, opts ...CorrectorOption) (*Corrector, error) {
	cfg.defaults()

	c := &Corrector{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	c.provider = suggest.NewLocal(
		suggest.WithBaseURL(cfg.AIBaseURL),
		suggest.WithLogger(cfg.Logger),
	)
	c.extract = pagectx.NewExtractor(pagectx.WithLogger(cfg.Logger))

	ws := workspace.NewClient(
		workspace.WithClientBaseURL(cfg.AIBaseURL),
		workspace.WithClientLogger(cfg.Logger),
	)
	walker := importgraph.NewWalker(ws,
		importgraph.WithImportPattern(cfg.ImportPattern),
		importgraph.WithImportKeywords(cfg.ImportKeywords),
		importgraph.WithSearchPattern(cfg.SearchFilePattern),
		importgraph.WithWalkerLogger(cfg.Logger),
	)
	c.patch = patcher.New(ws, walker, patcher.WithLogger(cfg.Logger))

	ledgerOpts := []ledger.Option{ledger.WithLogger(cfg.Logger)}
	if cfg.AutoUpdate {
		ledgerOpts = append(ledgerOpts, ledger.WithAutoUpdate(c.patchRecord))
	}
	if cfg.HistoryDB != "" {
		db, err := sql.Open("sqlite", cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("autocorrect: open history db: %w", err)
		}
		store := ledger.NewStore(db)
		if err := store.Init(); err != nil {
			db.Close()
			return nil, err
		}
		c.db = db
		ledgerOpts = append(ledgerOpts, ledger.WithStore(store))
	}
	c.ledger = ledger.New(ledgerOpts...)

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Close releases the history store handle, if any.
func (c *Corrector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ledger exposes the correction log.
func (c *Corrector) Ledger() *ledger.Ledger { return c.ledger }

// Patcher exposes the source-file patcher.
func (c *Corrector) Patcher() *patcher.Patcher { return c.patch }

// patchRecord adapts the ledger's auto-update trigger onto the patcher.
func (c *Corrector) patchRecord(ctx context.Context, rec ledger.Record) error {
	sum := c.patch.Apply(ctx, rec.TestFile, rec.Original(), rec.Corrected())
	if sum.Failed > 0 {
		return fmt.Errorf("autocorrect: %d of %d file updates failed", sum.Failed, len(sum.Files))
	}
	return nil
}

// Correct runs the pipeline for one failed locator. pageHTML is the captured
// DOM (may be empty); src attributes the correction to a test file when the
// caller knows it. Returns the validated replacement locator, or ok=false
// when no usable suggestion was produced.
//
// Every suggestion that reaches the retry stage is recorded, successful or
// not. Failures inside the pipeline degrade to ok=false; they never
// propagate to the caller's test.
func (c *Corrector) Correct(ctx context.Context, failed locator.Locator, pageHTML string, src *ledger.SourceLocation) (locator.Locator, bool) {
	if !c.provider.Available(ctx) {
		c.logger.Debug("autocorrect: provider unavailable, skipping correction")
		return locator.Locator{}, false
	}

	var pc *pagectx.PageContext
	if pageHTML != "" {
		var err error
		pc, err = c.extract.Extract(pageHTML)
		if err != nil {
			c.logger.Debug("autocorrect: page context extraction failed", "error", err)
		}
	}

	raw, err := c.provider.Suggest(ctx, pagectx.SystemPrompt(), pagectx.UserPrompt(failed, pc))
	if err != nil {
		c.logger.Info("autocorrect: no suggestion", "locator", failed.String(), "error", err)
		return locator.Locator{}, false
	}

	suggested, err := locator.ParseSuggestion(raw)
	if err != nil {
		c.logger.Info("autocorrect: unusable suggestion", "error", err)
		return locator.Locator{}, false
	}

	success := c.validate(ctx, suggested)
	c.ledger.Record(ctx, failed, suggested, success, src)

	if !success {
		return locator.Locator{}, false
	}
	c.logger.Info("autocorrect: locator corrected",
		"original", failed.String(), "corrected", suggested.String())
	return suggested, true
}

// validate tries the suggestion once against the live page. One attempt, no
// fallback chaining.
func (c *Corrector) validate(ctx context.Context, loc locator.Locator) bool {
	if c.resolver == nil {
		return false
	}
	if err := c.resolver.Resolve(ctx, loc, c.cfg.ResolveTimeout); err != nil {
		c.logger.Debug("autocorrect: suggested locator did not resolve",
			"locator", loc.String(), "error", err)
		return false
	}
	return true
}

// ApplyResult aggregates ApplyAll outcomes.
type ApplyResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"success"`
	Failed    int           `json:"failed"`
	Details   []ApplyDetail `json:"details"`
}

// ApplyDetail is one file update outcome.
type ApplyDetail struct {
	File      string         `json:"file"`
	Original  string         `json:"original"`
	Corrected string         `json:"corrected"`
	Result    patcher.Result `json:"result"`
}

// ApplyAll re-applies every successful correction to its recorded test file.
// Corrections without a source file are skipped.
func (c *Corrector) ApplyAll(ctx context.Context) ApplyResult {
	var res ApplyResult
	for _, rec := range c.ledger.Successful() {
		if rec.TestFile == "" {
			continue
		}
		res.Total++
		r := c.patch.UpdateFile(ctx, rec.TestFile, rec.Original(), rec.Corrected())
		if r.Success {
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Details = append(res.Details, ApplyDetail{
			File:      rec.TestFile,
			Original:  truncate(rec.OriginalValue, 50),
			Corrected: truncate(rec.CorrectedValue, 50),
			Result:    r,
		})
	}
	c.logger.Info("autocorrect: applied corrections",
		"succeeded", res.Succeeded, "total", res.Total)
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
