package patcher

import (
	"errors"
	"testing"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

func TestStrategyAwareReplacements_RewritesTokenAndValue(t *testing.T) {
	content := `LOGIN = (By.XPATH, "//button[@id='old']")`
	original := locator.Locator{Strategy: locator.XPath, Value: "//button[@id='old']"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "submit"}

	reps := strategyAwareReplacements(content, original, corrected)
	if len(reps) != 1 {
		t.Fatalf("got %d replacements, want 1", len(reps))
	}
	if reps[0].OldString != `By.XPATH, "//button[@id='old']"` {
		t.Errorf("old: got %q", reps[0].OldString)
	}
	if reps[0].NewString != `By.ID, "submit"` {
		t.Errorf("new: got %q", reps[0].NewString)
	}
}

func TestStrategyAwareReplacements_SingleQuotes(t *testing.T) {
	content := `LOGIN = (By.CSS_SELECTOR, '.old-class')`
	original := locator.Locator{Strategy: locator.CSSSelector, Value: ".old-class"}
	corrected := locator.Locator{Strategy: locator.CSSSelector, Value: ".new-class"}

	reps := strategyAwareReplacements(content, original, corrected)
	if len(reps) != 1 {
		t.Fatalf("got %d replacements, want 1", len(reps))
	}
	if reps[0].NewString != `By.CSS_SELECTOR, '.new-class'` {
		t.Errorf("new: got %q", reps[0].NewString)
	}
}

func TestStrategyAwareReplacements_MixedQuoteStyles(t *testing.T) {
	// The same stale tuple spelled with both quote styles: each occurrence
	// is rewritten keeping its own quotes.
	content := `A = (By.XPATH, "//old")` + "\n" + `B = (By.XPATH, '//old')`
	original := locator.Locator{Strategy: locator.XPath, Value: "//old"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "fresh"}

	reps := strategyAwareReplacements(content, original, corrected)
	if len(reps) != 2 {
		t.Fatalf("got %d replacements, want 2", len(reps))
	}
	want := map[string]string{
		`By.XPATH, '//old'`: `By.ID, 'fresh'`,
		`By.XPATH, "//old"`: `By.ID, "fresh"`,
	}
	for _, rep := range reps {
		if want[rep.OldString] != rep.NewString {
			t.Errorf("replacement %q -> %q, want %q", rep.OldString, rep.NewString, want[rep.OldString])
		}
	}
}

func TestStrategyAwareReplacements_EscapesQuoteInCorrectedValue(t *testing.T) {
	content := `X = (By.XPATH, '//a')`
	original := locator.Locator{Strategy: locator.XPath, Value: "//a"}
	corrected := locator.Locator{Strategy: locator.XPath, Value: "//a[text()='Go']"}

	reps := strategyAwareReplacements(content, original, corrected)
	if len(reps) != 1 {
		t.Fatalf("got %d replacements, want 1", len(reps))
	}
	if reps[0].NewString != `By.XPATH, '//a[text()=\'Go\']'` {
		t.Errorf("new: got %q", reps[0].NewString)
	}
}

func TestStrategyAwareReplacements_AnyExistingToken(t *testing.T) {
	// The stale tuple may carry any By token; the value identifies it.
	content := `A = (By.NAME, "old-name")`
	original := locator.Locator{Strategy: locator.XPath, Value: "old-name"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "new-id"}

	reps := strategyAwareReplacements(content, original, corrected)
	if len(reps) != 1 {
		t.Fatalf("got %d replacements, want 1", len(reps))
	}
	if reps[0].OldString != `By.NAME, "old-name"` {
		t.Errorf("old: got %q", reps[0].OldString)
	}
}

func TestStrategyAwareReplacements_SkipsIdenticalAndMisses(t *testing.T) {
	content := `A = (By.ID, "same")`
	same := locator.Locator{Strategy: locator.ID, Value: "same"}
	if reps := strategyAwareReplacements(content, same, same); len(reps) != 0 {
		t.Errorf("identical rewrite should be skipped, got %v", reps)
	}

	original := locator.Locator{Strategy: locator.ID, Value: "absent"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "x"}
	if reps := strategyAwareReplacements(content, original, corrected); len(reps) != 0 {
		t.Errorf("no match expected, got %v", reps)
	}
}

func TestValueOnlyReplacement_RefusesStrategyChange(t *testing.T) {
	content := `x = "old"` // bare literal, no locator idiom
	original := locator.Locator{Strategy: locator.XPath, Value: "old"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "new"}

	_, err := valueOnlyReplacement(content, original, corrected)
	if !errors.Is(err, ErrUnsafeEdit) {
		t.Fatalf("got %v, want ErrUnsafeEdit", err)
	}
}

func TestValueOnlyReplacement_SameStrategy(t *testing.T) {
	content := `x = "old"`
	original := locator.Locator{Strategy: locator.CSSSelector, Value: "old"}
	corrected := locator.Locator{Strategy: locator.CSSSelector, Value: "new"}

	rep, err := valueOnlyReplacement(content, original, corrected)
	if err != nil {
		t.Fatal(err)
	}
	if rep.OldString != `"old"` || rep.NewString != `"new"` {
		t.Errorf("got %q -> %q", rep.OldString, rep.NewString)
	}
}

func TestValueOnlyReplacement_QuoteSafety(t *testing.T) {
	css := locator.CSSSelector
	cases := []struct {
		name      string
		content   string
		corrected string
		wantNew   string
	}{
		{
			// Corrected value contains a single quote: switch to double.
			name:      "single quote in value",
			content:   `x = 'old'`,
			corrected: `a[title='Go']`,
			wantNew:   `"a[title='Go']"`,
		},
		{
			// Corrected value contains a double quote: switch to single.
			name:      "double quote in value",
			content:   `x = "old"`,
			corrected: `a[title="Go"]`,
			wantNew:   `'a[title="Go"]'`,
		},
		{
			// Both quote kinds: keep original style, escaped.
			name:      "both quotes, double original",
			content:   `x = "old"`,
			corrected: `a[title="it's"]`,
			wantNew:   `"a[title=\"it's\"]"`,
		},
		{
			name:      "both quotes, single original",
			content:   `x = 'old'`,
			corrected: `a[title="it's"]`,
			wantNew:   `'a[title="it\'s"]'`,
		},
		{
			// No quotes at all: keep original style.
			name:      "plain value",
			content:   `x = 'old'`,
			corrected: `plain`,
			wantNew:   `'plain'`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			original := locator.Locator{Strategy: css, Value: "old"}
			corrected := locator.Locator{Strategy: css, Value: c.corrected}
			rep, err := valueOnlyReplacement(c.content, original, corrected)
			if err != nil {
				t.Fatal(err)
			}
			if rep.NewString != c.wantNew {
				t.Errorf("new: got %q, want %q", rep.NewString, c.wantNew)
			}
		})
	}
}

func TestValueOnlyReplacement_NotFound(t *testing.T) {
	original := locator.Locator{Strategy: locator.ID, Value: "missing"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "x"}
	_, err := valueOnlyReplacement("nothing here", original, corrected)
	if !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v, want ErrValueNotFound", err)
	}
}

func TestValueOnlyReplacement_DoubleQuoteCheckedFirst(t *testing.T) {
	// Both spellings present: the double-quoted one wins, matching the
	// search order.
	content := `a = "old"` + "\n" + `b = 'old'`
	original := locator.Locator{Strategy: locator.ID, Value: "old"}
	corrected := locator.Locator{Strategy: locator.ID, Value: "new"}
	rep, err := valueOnlyReplacement(content, original, corrected)
	if err != nil {
		t.Fatal(err)
	}
	if rep.OldString != `"old"` {
		t.Errorf("old: got %q, want double-quoted form", rep.OldString)
	}
}
