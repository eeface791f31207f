package history

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "transfers.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAddAndList(t *testing.T) {
	st := newTestStore(t)

	recs := []Record{
		{Direction: DirectionSend, Peer: "bob", Filename: "a.txt", Size: 100, Transferred: 100, Status: StatusOK,
			CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
		{Direction: DirectionReceive, Peer: "alice", Filename: "b.bin", Size: 200, Transferred: 150, Status: StatusMismatch,
			Note: "transfer ended before announced size",
			CreatedAt: time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)},
		{Direction: DirectionSend, Peer: "carol", Filename: "c.pdf", Size: 300, Transferred: 0, Status: StatusError,
			Note: "connection refused",
			CreatedAt: time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)},
	}
	for _, rec := range recs {
		if err := st.Add(rec); err != nil {
			t.Fatalf("Add(%s): %v", rec.Filename, err)
		}
	}

	got, err := st.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d records, want 3", len(got))
	}

	// Newest first.
	wantOrder := []string{"c.pdf", "b.bin", "a.txt"}
	for i, want := range wantOrder {
		if got[i].Filename != want {
			t.Errorf("record %d filename = %q, want %q", i, got[i].Filename, want)
		}
	}

	if got[1].Status != StatusMismatch || got[1].Transferred != 150 {
		t.Errorf("mismatch record = %+v", got[1])
	}
	if got[1].Note == "" {
		t.Error("note was not persisted")
	}
	for i, rec := range got {
		if rec.ID == "" {
			t.Errorf("record %d has no generated ID", i)
		}
	}
}

func TestListLimit(t *testing.T) {
	st := newTestStore(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := Record{
			Direction: DirectionSend, Peer: "bob", Filename: "f",
			Size: 1, Transferred: 1, Status: StatusOK,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.Add(rec); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := st.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(2) returned %d records, want 2", len(got))
	}
}

func TestAddRejectsBadDirection(t *testing.T) {
	st := newTestStore(t)

	err := st.Add(Record{Direction: "sideways", Peer: "bob", Filename: "f", Status: StatusOK})
	if err == nil {
		t.Error("expected CHECK constraint to reject an unknown direction")
	}
}

func TestListEmpty(t *testing.T) {
	st := newTestStore(t)
	got, err := st.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List on empty store returned %d records", len(got))
	}
}
