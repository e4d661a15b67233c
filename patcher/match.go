package patcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
	"github.com/MartyZhou/selenium-selector-autocorrect/workspace"
)

// ErrUnsafeEdit marks a refused value-only replacement: the correction
// changed the lookup strategy but no full locator tuple was found, so
// rewriting the value alone would leave a stale strategy token and silently
// corrupt the locator.
var ErrUnsafeEdit = errors.New("strategy changed but locator tuple not found in file; skipping unsafe edit")

// ErrValueNotFound means the stale value does not appear in the file content
// in any recognized form.
var ErrValueNotFound = errors.New("selector value not found in file")

// strategyAwareReplacements finds every occurrence of the stale value inside
// a By.<TOKEN>, '<value>' construction and rewrites strategy token and value
// as one atomic span. Any existing By token is eligible: the tuple, not the
// token, identifies the locator.
func strategyAwareReplacements(content string, original, corrected locator.Locator) []workspace.Replacement {
	token := corrected.Strategy.ByToken()
	if token == "" {
		return nil
	}

	var reps []workspace.Replacement
	seen := make(map[string]bool)
	// RE2 has no backreferences, so each quote style gets its own pattern.
	for _, quote := range []string{`'`, `"`} {
		re := regexp.MustCompile(`By\.[A-Z_]+(\s*,\s*)` + quote + regexp.QuoteMeta(original.Value) + quote)
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			old := m[0]
			sep := m[1]
			escaped := strings.ReplaceAll(corrected.Value, quote, `\`+quote)
			replacement := fmt.Sprintf("By.%s%s%s%s%s", token, sep, quote, escaped, quote)
			if old == replacement || seen[old] {
				continue
			}
			seen[old] = true
			reps = append(reps, workspace.Replacement{OldString: old, NewString: replacement})
		}
	}
	return reps
}

// valueOnlyReplacement rewrites the bare quoted value. Allowed only when the
// strategy is unchanged; otherwise the edit is refused as unsafe. The
// replacement's quote style is chosen so the corrected value's own quote
// characters never break the string literal.
func valueOnlyReplacement(content string, original, corrected locator.Locator) (workspace.Replacement, error) {
	if corrected.Strategy.Valid() && corrected.Strategy != original.Strategy {
		return workspace.Replacement{}, ErrUnsafeEdit
	}

	for _, quote := range []string{`"`, `'`} {
		old := quote + original.Value + quote
		if !strings.Contains(content, old) {
			continue
		}
		return workspace.Replacement{
			OldString: old,
			NewString: quoteValue(corrected.Value, quote),
		}, nil
	}
	return workspace.Replacement{}, ErrValueNotFound
}

// quoteValue wraps the value in quotes, preferring the opposite style when
// the value contains only one kind of quote character, and escaping when it
// contains both.
func quoteValue(value, originalQuote string) string {
	hasSingle := strings.Contains(value, `'`)
	hasDouble := strings.Contains(value, `"`)

	switch {
	case hasSingle && !hasDouble:
		return `"` + value + `"`
	case hasDouble && !hasSingle:
		return `'` + value + `'`
	case hasSingle && hasDouble:
		escaped := strings.ReplaceAll(value, originalQuote, `\`+originalQuote)
		return originalQuote + escaped + originalQuote
	default:
		return originalQuote + value + originalQuote
	}
}
