package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap, err := s.PutSnapshot(ctx, PutParams{
		World: "w1", Doc: "global", Content: `{"world_id":"w1"}`, Label: "start",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}
	if snap.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Content != `{"world_id":"w1"}` {
		t.Errorf("unexpected content %q", got[0].Content)
	}
	if got[0].Label != "start" {
		t.Errorf("expected label 'start', got %q", got[0].Label)
	}
}

func TestPutRequiresWorldAndDoc(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.PutSnapshot(context.Background(), PutParams{Doc: "global"}); err == nil {
		t.Error("expected error without world")
	}
	if _, err := s.PutSnapshot(context.Background(), PutParams{World: "w1"}); err == nil {
		t.Error("expected error without doc")
	}
}

func TestSnapshotVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "social", Content: "v1"})
	s2, _ := s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "social", Content: "v2"})

	if s2.Version != 2 {
		t.Errorf("expected version 2, got %d", s2.Version)
	}
	if s2.Supersedes == "" {
		t.Error("expected supersedes to be set")
	}

	// Get latest
	got, _ := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "social"})
	if got[0].Content != "v2" {
		t.Errorf("expected 'v2', got %q", got[0].Content)
	}

	// Get history
	hist, _ := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "social", History: true})
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 2 || hist[1].Version != 1 {
		t.Errorf("expected history newest first, got %d,%d", hist[0].Version, hist[1].Version)
	}

	// Get specific version
	v1, _ := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "social", Version: 1})
	if v1[0].Content != "v1" {
		t.Errorf("expected 'v1', got %q", v1[0].Content)
	}
}

func TestVersionsArePerDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "g"})
	loc, _ := s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "local/npc_1", Content: "l"})
	other, _ := s.PutSnapshot(ctx, PutParams{World: "w2", Doc: "global", Content: "g"})

	if loc.Version != 1 || other.Version != 1 {
		t.Errorf("expected independent versions, got %d and %d", loc.Version, other.Version)
	}
}

func TestGetMissingSnapshot(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSnapshot(context.Background(), GetParams{World: "nope", Doc: "global"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "a"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "social", Content: "b"})
	s.PutSnapshot(ctx, PutParams{World: "w2", Doc: "global", Content: "c"})

	// List all
	all, _ := s.ListSnapshots(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}

	// List by world
	w1, _ := s.ListSnapshots(ctx, ListParams{World: "w1"})
	if len(w1) != 2 {
		t.Errorf("expected 2, got %d", len(w1))
	}
}

func TestListShowsLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v1"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v2"})

	list, _ := s.ListSnapshots(ctx, ListParams{World: "w1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 (latest only), got %d", len(list))
	}
	if list[0].Content != "v2" {
		t.Errorf("expected latest 'v2', got %q", list[0].Content)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "data"})
	err := s.RmSnapshot(ctx, RmParams{World: "w1", Doc: "global"})
	if err != nil {
		t.Fatalf("rm: %v", err)
	}

	_, err = s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global"})
	if err == nil {
		t.Error("expected error after soft delete")
	}
}

func TestSoftDeleteRevealsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v1"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v2"})
	s.RmSnapshot(ctx, RmParams{World: "w1", Doc: "global"})

	got, err := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Content != "v1" {
		t.Errorf("expected 'v1' after removing latest, got %q", got[0].Content)
	}
}

func TestRmMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.RmSnapshot(context.Background(), RmParams{World: "w1", Doc: "global"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "data"})
	err := s.RmSnapshot(ctx, RmParams{World: "w1", Doc: "global", Hard: true})
	if err != nil {
		t.Fatalf("rm hard: %v", err)
	}

	_, err = s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global"})
	if err == nil {
		t.Error("expected error after hard delete")
	}

	st, _ := s.Stats(ctx, "")
	if st.TotalSnapshots != 0 {
		t.Errorf("expected row removed, got %d", st.TotalSnapshots)
	}
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v1"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "v2"})

	s.RmSnapshot(ctx, RmParams{World: "w1", Doc: "global", AllVersions: true})

	_, err := s.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global", History: true})
	if err == nil {
		t.Error("expected error after deleting all versions")
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"7d", true},
		{"24h", true},
		{"30m", true},
		{"60s", true},
		{"invalid", false},
		{"", false},
		{"7x", false},
	}
	for _, tt := range tests {
		_, err := parseAge(tt.input)
		if tt.ok && err != nil {
			t.Errorf("parseAge(%q) unexpected error: %v", tt.input, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("parseAge(%q) expected error", tt.input)
		}
	}
}
