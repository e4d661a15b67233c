package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.Append(ctx, Record{
			OriginalBy:     locator.XPath,
			OriginalValue:  "//old",
			CorrectedBy:    locator.ID,
			CorrectedValue: "new",
			Success:        i != 1,
			TestFile:       "tests/test_x.py",
			TestLine:       10 + i,
			Timestamp:      time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent: got %d, want 2", len(recent))
	}
	// Newest first.
	if recent[0].TestLine != 12 {
		t.Errorf("newest line: got %d, want 12", recent[0].TestLine)
	}
	if recent[0].OriginalBy != locator.XPath || recent[0].CorrectedBy != locator.ID {
		t.Errorf("strategies: got (%q, %q)", recent[0].OriginalBy, recent[0].CorrectedBy)
	}
}

func TestLedger_WithStoreArchives(t *testing.T) {
	s := setupStore(t)
	l := New(WithStore(s))
	ctx := context.Background()

	l.Record(ctx, staleXPath, freshID, true, nil)

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("archived records: got %d, want 1", len(recent))
	}
	if recent[0].OriginalValue != staleXPath.Value {
		t.Errorf("archived value: got %q", recent[0].OriginalValue)
	}
}
