package importgraph

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeService emulates the workspace file service over an in-memory tree.
// Search matches literal content; the narrow pattern restricts results to
// automation_tools/, the wide pattern allows everything.
type fakeService struct {
	files       map[string]string
	searchCalls []string // "query|pattern" in order
	readCalls   int
}

func (f *fakeService) Search(_ context.Context, query, pattern string, _ int) ([]string, error) {
	f.searchCalls = append(f.searchCalls, query+"|"+pattern)
	var out []string
	for path, content := range f.files {
		if !strings.Contains(content, query) {
			continue
		}
		if pattern == DefaultSearchPattern && !strings.HasPrefix(path, "automation_tools/") {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func (f *fakeService) Read(_ context.Context, path string) (string, error) {
	f.readCalls++
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("not found: %s", path)
	}
	return content, nil
}

func TestFilesFor_TestFileAndImportedPage(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_login.py": "from pages.login_page import LoginPage\n" +
			`wait_for((By.ID, "login-btn"))`,
		"automation_tools/pages/login_page.py": `LOGIN = (By.ID, "login-btn")`,
		"automation_tools/pages/other_page.py": `OTHER = (By.ID, "something-else")`,
		"unrelated/scratch.py":                 `x = "login-btn"`,
	}}
	w := NewWalker(svc)

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_login.py", "login-btn")

	want := map[string]bool{
		"automation_tools/tests/test_login.py": true,
		"automation_tools/pages/login_page.py": true,
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 paths", got)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected path %q", p)
		}
	}
}

func TestFilesFor_ExcludesUnimportedFile(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_a.py":      "from pages.a_page import APage\n",
		"automation_tools/pages/a_page.py":      `A = (By.ID, "shared-id")`,
		"automation_tools/pages/orphan_page.py": `B = (By.ID, "shared-id")`,
	}}
	w := NewWalker(svc)

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_a.py", "shared-id")
	if len(got) != 1 || got[0] != "automation_tools/pages/a_page.py" {
		t.Fatalf("got %v, want only a_page.py", got)
	}
}

func TestFilesFor_CyclicImportsTerminate(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_c.py": "from pages.login_page import LoginPage\n",
		"automation_tools/pages/login_page.py": "from pages.cart_page import CartPage\n" +
			`L = (By.ID, "cyclic-id")`,
		"automation_tools/pages/cart_page.py": "from pages.login_page import LoginPage\n" +
			`C = (By.ID, "cyclic-id")`,
	}}
	w := NewWalker(svc)

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_c.py", "cyclic-id")
	if len(got) != 2 {
		t.Fatalf("got %v, want both pages despite the cycle", got)
	}
}

func TestImportClosure_DepthCap(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_d.py": "from pages.a_page import A\n",
		"automation_tools/pages/a_page.py": "from pages.b_page import B\n",
		"automation_tools/pages/b_page.py": "from pages.c_page import C\n",
		"automation_tools/pages/c_page.py": "from pages.d_page import D\n",
		"automation_tools/pages/d_page.py": "LEAF = 1\n",
	}}
	w := NewWalker(svc)

	closure := w.importClosure(context.Background(),
		"automation_tools/tests/test_d.py", w.maxDepth, make(map[string]bool))

	joined := strings.Join(closure, " ")
	for _, want := range []string{"a_page.py", "b_page.py", "c_page.py"} {
		if !strings.Contains(joined, want) {
			t.Errorf("closure missing %s: %v", want, closure)
		}
	}
	if strings.Contains(joined, "d_page.py") {
		t.Errorf("closure exceeded depth cap: %v", closure)
	}
}

func TestImportClosure_NeverFollowsUtilityFiles(t *testing.T) {
	// base.py is directly imported (and therefore in the closure), but the
	// walker must not recurse into it, so hidden_page stays out.
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_u.py": "from pages.base import BasePage\n",
		"automation_tools/pages/base.py":   "from pages.hidden_page import Hidden\n",
		"automation_tools/pages/hidden_page.py": `H = (By.ID, "hidden-id")`,
	}}
	w := NewWalker(svc)

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_u.py", "hidden-id")
	if len(got) != 0 {
		t.Fatalf("got %v, want empty: hidden_page is only reachable through a base class", got)
	}
}

func TestFilesFor_SuffixMatchReturnsClosurePath(t *testing.T) {
	// The search reports a backslashed spelling of the imported file; the
	// result must carry the closure's canonical path instead.
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_s.py":      "from pages.login_page import LoginPage\n",
		"automation_tools/pages/login_page.py":  "LoginPage = object\n",
		`automation_tools\pages\login_page.py`:  `L = (By.ID, "sfx-id")`,
	}}
	w := NewWalker(svc)

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_s.py", "sfx-id")
	if len(got) != 1 {
		t.Fatalf("got %v, want one path", got)
	}
	if got[0] != "automation_tools/pages/login_page.py" {
		t.Errorf("got %q, want the closure's canonical path", got[0])
	}
}

func TestSearchValue_StripsPunctuationSecond(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"automation_tools/pages/p_page.py": `sel = find(data-test=submit)`,
	}}
	w := NewWalker(svc)

	hits := w.searchValue(context.Background(), `[data-test="submit"]`)
	if len(hits) != 1 {
		t.Fatalf("got %v, want the stripped-query hit", hits)
	}
	// Raw query first, stripped variant after.
	if !strings.HasPrefix(svc.searchCalls[0], `[data-test="submit"]|`) {
		t.Errorf("first query: got %q", svc.searchCalls[0])
	}
	last := svc.searchCalls[len(svc.searchCalls)-1]
	if !strings.HasPrefix(last, "data-test=submit|") {
		t.Errorf("stripped query: got %q", last)
	}
}

func TestSearchValue_WidensPattern(t *testing.T) {
	svc := &fakeService{files: map[string]string{
		"elsewhere/far_page.py": `sel = "wide-only-id"`,
	}}
	w := NewWalker(svc)

	hits := w.searchValue(context.Background(), "wide-only-id")
	if len(hits) != 1 || hits[0] != "elsewhere/far_page.py" {
		t.Fatalf("got %v, want far_page.py via wide pattern", hits)
	}
	if len(svc.searchCalls) < 2 {
		t.Fatalf("expected narrow then wide search, got %v", svc.searchCalls)
	}
	if !strings.HasSuffix(svc.searchCalls[0], "|"+DefaultSearchPattern) {
		t.Errorf("first pattern: got %q, want narrow", svc.searchCalls[0])
	}
	if !strings.HasSuffix(svc.searchCalls[1], "|"+widePattern) {
		t.Errorf("second pattern: got %q, want wide", svc.searchCalls[1])
	}
}

func TestFilesFor_EmptyOnNoHits(t *testing.T) {
	svc := &fakeService{files: map[string]string{}}
	w := NewWalker(svc)
	if got := w.FilesFor(context.Background(), "t.py", "absent"); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestWithImportKeywords_SecondPass(t *testing.T) {
	// A pattern that matches nothing forces the keyword pass to do the work.
	svc := &fakeService{files: map[string]string{
		"automation_tools/tests/test_k.py": "from flows.checkout_steps import CheckoutSteps\n",
		"automation_tools/flows/checkout_steps.py": `S = (By.ID, "kw-id")`,
	}}
	w := NewWalker(svc, WithImportPattern(`never_matches_\d{99}`), WithImportKeywords([]string{"steps"}))

	got := w.FilesFor(context.Background(), "automation_tools/tests/test_k.py", "kw-id")
	if len(got) != 1 || got[0] != "automation_tools/flows/checkout_steps.py" {
		t.Fatalf("got %v, want checkout_steps.py via keyword pass", got)
	}
}
