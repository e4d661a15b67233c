// Package patcher rewrites source files that reference a stale locator. It
// works on one narrow pattern, strategy token plus quoted value pairs in .py
// files, and refuses any edit that would change the meaning of a locator
// silently.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
	"github.com/MartyZhou/selenium-selector-autocorrect/workspace"
)

// FileEditor is the slice of the workspace service the patcher needs.
type FileEditor interface {
	Read(ctx context.Context, filePath string) (string, error)
	Edit(ctx context.Context, filePath string, replacements []workspace.Replacement) (*workspace.EditResult, error)
}

// FileLocator produces the file reference set for a correction. The
// import-graph walker implements it.
type FileLocator interface {
	FilesFor(ctx context.Context, testFile, value string) []string
}

// Result reports the outcome of patching one file or one whole correction.
// Success means the backing service confirmed the batch; a partially applied
// batch is never reported as success.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// Summary aggregates the outcome across files for one correction.
type Summary struct {
	Files   []string `json:"files"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
}

// Patcher applies locator corrections to source files.
type Patcher struct {
	svc    FileEditor
	files  FileLocator
	logger *slog.Logger
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Patcher) { p.logger = l }
}

// New creates a Patcher over the given service and file locator.
func New(svc FileEditor, files FileLocator, opts ...Option) *Patcher {
	p := &Patcher{
		svc:    svc,
		files:  files,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Apply patches every file that references the stale locator and is reachable
// from testFile. An empty file reference set is a no-op, not an error.
func (p *Patcher) Apply(ctx context.Context, testFile string, original, corrected locator.Locator) Summary {
	targets := p.files.FilesFor(ctx, testFile, original.Value)
	sum := Summary{Files: targets}
	if len(targets) == 0 {
		p.logger.Info("patcher: no target files", "test_file", testFile)
		return sum
	}

	for _, file := range targets {
		res := p.UpdateFile(ctx, file, original, corrected)
		if res.Success {
			sum.Updated++
			p.logger.Info("patcher: updated file", "path", file)
		} else {
			sum.Failed++
			p.logger.Warn("patcher: update failed", "path", file, "errors", res.Errors)
		}
	}
	return sum
}

// UpdateFile runs the correction state machine against a single file:
// strategy-aware matching first, value-only fallback second, then one batched
// edit through the service.
func (p *Patcher) UpdateFile(ctx context.Context, filePath string, original, corrected locator.Locator) Result {
	content, err := p.svc.Read(ctx, filePath)
	if err != nil {
		return failure(fmt.Sprintf("could not read file: %v", err))
	}

	replacements := strategyAwareReplacements(content, original, corrected)
	if len(replacements) == 0 {
		p.logger.Debug("patcher: no strategy-aware match, trying value-only", "path", filePath)
		rep, err := valueOnlyReplacement(content, original, corrected)
		switch {
		case errors.Is(err, ErrUnsafeEdit):
			p.logger.Warn("patcher: refusing unsafe value-only update", "path", filePath)
			return failure("unsafe edit: " + err.Error())
		case errors.Is(err, ErrValueNotFound):
			return failure(fmt.Sprintf("could not find selector: %s", truncate(original.Value, 50)))
		case err != nil:
			return failure(err.Error())
		}
		replacements = []workspace.Replacement{rep}
	}

	res, err := p.svc.Edit(ctx, filePath, replacements)
	if err != nil {
		return failure(fmt.Sprintf("edit service: %v", err))
	}
	p.logger.Debug("patcher: edit submitted",
		"path", filePath, "replacements", len(replacements), "success", res.Success)
	return Result{Success: res.Success, Errors: res.Errors}
}

func failure(msgs ...string) Result {
	return Result{Success: false, Errors: msgs}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
