package registry

import (
	"errors"
	"testing"

	"Chisel/internal/token"
)

func TestLedgerGetUnknown(t *testing.T) {
	db := newTestDB(t)
	l := newLedger(db)

	if _, err := l.get(1); !errors.Is(err, token.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerSetGetClear(t *testing.T) {
	db := newTestDB(t)
	l := newLedger(db)

	attrs := []uint32{7, 3, 7, 1}

	b := db.NewBatch()
	if err := l.stageSet(b, 42, attrs); err != nil {
		t.Fatalf("stageSet failed: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := l.get(42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if len(got) != len(attrs) {
		t.Fatalf("got %v, want %v", got, attrs)
	}
	for i := range got {
		if got[i] != attrs[i] {
			t.Fatalf("got %v, want %v (order must be preserved)", got, attrs)
		}
	}

	b2 := db.NewBatch()
	l.stageClear(b2, 42)
	if err := b2.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := l.get(42); !errors.Is(err, token.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}
