// Package importgraph discovers which workspace files embed a given locator
// value and are actually reachable from a test file through its imports.
// It is advisory input for the patcher: every failure degrades to an empty
// result, never an error.
package importgraph

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"
)

const (
	// DefaultImportPattern matches "from <dotted.path> import" statements.
	DefaultImportPattern = `from\s+([\w.]+)\s+import`

	// DefaultSearchPattern is the narrow glob tried first; the walker widens
	// to all .py files only when it yields nothing.
	DefaultSearchPattern = "automation_tools/**/*.py"

	widePattern = "**/*.py"

	// DefaultMaxDepth bounds recursion through page-object imports.
	DefaultMaxDepth = 3

	maxSearchResults = 50
)

// DefaultImportKeywords marks imports worth following even when the first
// pattern misses them (page classes and step modules).
var DefaultImportKeywords = []string{"Page", ".steps.", "steps"}

// FileService is the slice of the workspace service the walker needs.
type FileService interface {
	Search(ctx context.Context, query, filePattern string, maxResults int) ([]string, error)
	Read(ctx context.Context, filePath string) (string, error)
}

// Walker resolves the file reference set for a correction.
type Walker struct {
	svc           FileService
	importRe      *regexp.Regexp
	keywords      []string
	searchPattern string
	maxDepth      int
	logger        *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithImportPattern overrides the import statement regex. An invalid pattern
// keeps the default; the walker must fail soft.
func WithImportPattern(pattern string) WalkerOption {
	return func(w *Walker) {
		if re, err := regexp.Compile(pattern); err == nil {
			w.importRe = re
		}
	}
}

// WithImportKeywords overrides the follow-worthy import keywords.
func WithImportKeywords(kw []string) WalkerOption {
	return func(w *Walker) {
		if len(kw) > 0 {
			w.keywords = kw
		}
	}
}

// WithSearchPattern overrides the preferred search glob.
func WithSearchPattern(glob string) WalkerOption {
	return func(w *Walker) {
		if glob != "" {
			w.searchPattern = glob
		}
	}
}

// WithMaxDepth overrides the recursion cap.
func WithMaxDepth(d int) WalkerOption {
	return func(w *Walker) {
		if d > 0 {
			w.maxDepth = d
		}
	}
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(l *slog.Logger) WalkerOption {
	return func(w *Walker) { w.logger = l }
}

// NewWalker creates a Walker over the given file service.
func NewWalker(svc FileService, opts ...WalkerOption) *Walker {
	w := &Walker{
		svc:           svc,
		importRe:      regexp.MustCompile(DefaultImportPattern),
		keywords:      DefaultImportKeywords,
		searchPattern: DefaultSearchPattern,
		maxDepth:      DefaultMaxDepth,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// FilesFor returns the files that contain the locator value and belong to the
// test file's import closure (or are the test file itself). The result is
// recomputed on every call; nothing is cached across corrections.
func (w *Walker) FilesFor(ctx context.Context, testFile, value string) []string {
	hits := w.searchValue(ctx, value)
	if len(hits) == 0 {
		w.logger.Debug("importgraph: no files contain value", "value", truncate(value, 80))
		return nil
	}

	closure := w.importClosure(ctx, testFile, w.maxDepth, make(map[string]bool))

	normTest := normalize(testFile)
	normClosure := make(map[string]string, len(closure))
	for _, f := range closure {
		normClosure[normalize(f)] = f
	}

	var out []string
	for _, hit := range hits {
		normHit := normalize(hit)
		switch {
		case normHit == normTest:
			out = append(out, hit)
		case normClosure[normHit] != "":
			// Prefer the closure's spelling, it was resolved against real
			// imports.
			out = append(out, normClosure[normHit])
		default:
			// Same filename under differing path spellings: trust the
			// closure's path, it is the one we resolved against imports.
			if canonical, ok := suffixMatch(hit, closure); ok {
				out = append(out, canonical)
			} else {
				w.logger.Debug("importgraph: value found in unrelated file", "path", hit)
			}
		}
	}

	w.logger.Info("importgraph: file reference set computed",
		"test_file", testFile, "candidates", len(hits), "kept", len(out))
	return out
}

// searchValue queries the workspace for files containing the value, trying
// the raw value first and a punctuation-stripped variant second, each with
// the narrow glob before the wide one.
func (w *Walker) searchValue(ctx context.Context, value string) []string {
	queries := []string{value, stripSelectorPunctuation(value)}
	patterns := []string{w.searchPattern, widePattern}

	seenPattern := make(map[string]bool)
	for _, q := range queries {
		if q == "" {
			continue
		}
		for _, pat := range patterns {
			if pat == "" || seenPattern[q+"\x00"+pat] {
				continue
			}
			seenPattern[q+"\x00"+pat] = true

			paths, err := w.svc.Search(ctx, q, pat, maxSearchResults)
			if err != nil {
				w.logger.Debug("importgraph: search failed", "pattern", pat, "error", err)
				continue
			}
			if len(paths) > 0 {
				return paths
			}
		}
	}
	return nil
}

// stripSelectorPunctuation drops brackets and quotes so selector syntax does
// not defeat a literal text search.
func stripSelectorPunctuation(v string) string {
	r := strings.NewReplacer("[", "", "]", "", `"`, "", "'", "")
	return strings.TrimSpace(r.Replace(v))
}

// importClosure extracts imports from file recursively, following only
// page-object/steps files, bounded by depth with cycle protection.
func (w *Walker) importClosure(ctx context.Context, file string, depth int, visited map[string]bool) []string {
	if depth <= 0 || visited[file] {
		return nil
	}
	visited[file] = true

	direct := w.extractImports(ctx, file)
	all := append([]string(nil), direct...)

	if depth > 1 {
		for _, imp := range direct {
			if !visited[imp] && IsPageObjectFile(imp) {
				all = append(all, w.importClosure(ctx, imp, depth-1, visited)...)
			}
		}
	}
	return all
}

// extractImports reads a file through the service and resolves its import
// statements to file paths. Best effort: unresolvable modules are skipped.
func (w *Walker) extractImports(ctx context.Context, file string) []string {
	content, err := w.svc.Read(ctx, file)
	if err != nil {
		w.logger.Debug("importgraph: read failed", "path", file, "error", err)
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, m := range w.importRe.FindAllStringSubmatch(content, -1) {
		if len(m) > 1 {
			add(w.moduleToFilePath(ctx, m[1], file))
		}
	}

	// Second pass for page-class and step-module imports the configured
	// pattern may not cover.
	stepRe := regexp.MustCompile(`from\s+([\w.]+)\s+import\s+([\w,\s]+)`)
	for _, m := range stepRe.FindAllStringSubmatch(content, -1) {
		module := m[1]
		for _, kw := range w.keywords {
			if kw != "" && strings.Contains(module, strings.TrimSpace(kw)) {
				add(w.moduleToFilePath(ctx, module, file))
				break
			}
		}
	}
	return out
}

// moduleToFilePath converts a dotted module path to a workspace file path by
// walking up from the reference file's directory until the root package
// resolves. Approximate by design: there is no real module resolver here,
// existence is probed through the file service.
func (w *Walker) moduleToFilePath(ctx context.Context, module, referenceFile string) string {
	parts := strings.Split(module, ".")
	if len(parts) < 2 {
		return ""
	}
	root := parts[0]
	rel := path.Join(parts[1:]...) + ".py"

	dir := path.Dir(normalize(referenceFile))
	for i := 0; i < 10; i++ {
		candidate := path.Join(dir, root, rel)
		if _, err := w.svc.Read(ctx, candidate); err == nil {
			return candidate
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// suffixMatch reports whether hit names the same file as one of the closure
// paths, comparing the trailing path segments. Returns the closure path.
func suffixMatch(hit string, closure []string) (string, bool) {
	hitParts := strings.Split(normalize(hit), "/")
	base := hitParts[len(hitParts)-1]

	for _, imp := range closure {
		impParts := strings.Split(normalize(imp), "/")
		if impParts[len(impParts)-1] != base {
			continue
		}
		n := len(hitParts)
		if len(impParts) < n {
			n = len(impParts)
		}
		if equalSlices(hitParts[len(hitParts)-n:], impParts[len(impParts)-n:]) {
			return imp, true
		}
	}
	return "", false
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalize(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
