package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestJournalSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.AppendJournal(ctx, JournalParams{World: "w1", Kind: KindResponse, Content: "The dragon circles the tower of Ashmoor."})
	s.AppendJournal(ctx, JournalParams{World: "w1", Kind: KindPrompt, EntityID: "npc_1", Content: "Bob asks about the dragon."})
	s.AppendJournal(ctx, JournalParams{World: "w2", Kind: KindResponse, Content: "A quiet harbour at dusk."})

	hits, err := s.SearchJournal(ctx, JournalSearchParams{Query: "dragon"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.MatchChunk == nil || !strings.Contains(h.MatchChunk.Text, "dragon") {
			t.Errorf("expected matching chunk, got %+v", h.MatchChunk)
		}
	}

	// Kind filter
	hits, _ = s.SearchJournal(ctx, JournalSearchParams{Query: "dragon", Kind: KindPrompt})
	if len(hits) != 1 || hits[0].EntityID != "npc_1" {
		t.Fatalf("expected the prompt entry, got %+v", hits)
	}

	// World filter
	hits, _ = s.SearchJournal(ctx, JournalSearchParams{Query: "harbour", World: "w1"})
	if len(hits) != 0 {
		t.Fatalf("expected 0 hits in w1, got %d", len(hits))
	}

	// No results
	hits, _ = s.SearchJournal(ctx, JournalSearchParams{Query: "spaceship"})
	if len(hits) != 0 {
		t.Fatalf("expected 0 hits, got %d", len(hits))
	}
}

func TestJournalSearchPartialWord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.AppendJournal(ctx, JournalParams{World: "w1", Content: "Ashmoor burns."})

	hits, err := s.SearchJournal(ctx, JournalSearchParams{Query: "Ashm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected substring fallback to find 1 hit, got %d", len(hits))
	}
}

func TestJournalSearchPunctuation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.AppendJournal(ctx, JournalParams{World: "w1", Content: "Who goes there? said the guard."})

	hits, err := s.SearchJournal(ctx, JournalSearchParams{Query: `there? "guard`})
	if err != nil {
		t.Fatalf("expected no error for punctuated query, got %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestJournalChunksLongEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var paras []string
	for i := 0; i < 6; i++ {
		paras = append(paras, strings.Repeat("The caravan moves on through the dunes. ", 6))
	}
	paras = append(paras, "At last the oasis appears.")
	e, err := s.AppendJournal(ctx, JournalParams{World: "w1", Content: strings.Join(paras, "\n\n")})
	if err != nil {
		t.Fatal(err)
	}
	if e.ChunkCount < 2 {
		t.Fatalf("expected several chunks, got %d", e.ChunkCount)
	}
	if e.Kind != KindNote {
		t.Errorf("expected default kind %q, got %q", KindNote, e.Kind)
	}

	hits, _ := s.SearchJournal(ctx, JournalSearchParams{Query: "oasis"})
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].MatchChunk.Seq == 0 {
		t.Error("expected the match to come from a later chunk")
	}
}

func TestPruneJournal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old, _ := s.AppendJournal(ctx, JournalParams{World: "w1", Content: "ancient history"})
	s.AppendJournal(ctx, JournalParams{World: "w1", Content: "fresh news"})
	s.db.Exec(`UPDATE journal SET created_at = '2020-01-01T00:00:00Z' WHERE id = ?`, old.ID)

	n, err := s.PruneJournal(ctx, "30d")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}

	hits, _ := s.SearchJournal(ctx, JournalSearchParams{Query: "ancient"})
	if len(hits) != 0 {
		t.Errorf("expected pruned entry chunks to be gone, got %d", len(hits))
	}

	if _, err := s.PruneJournal(ctx, "soon"); err == nil {
		t.Error("expected error for invalid age")
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "a"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "b"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "social", Content: "c"})
	s.AppendJournal(ctx, JournalParams{World: "w1", Content: "note"})

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSnapshots != 3 {
		t.Errorf("expected 3 snapshots, got %d", st.TotalSnapshots)
	}
	if st.JournalEntries != 1 || st.JournalChunks != 1 {
		t.Errorf("expected 1 entry and 1 chunk, got %d/%d", st.JournalEntries, st.JournalChunks)
	}
	if len(st.Worlds) != 1 || st.Worlds[0].Docs != 2 {
		t.Errorf("unexpected world stats %+v", st.Worlds)
	}
	if st.DBPath != dbPath {
		t.Errorf("expected db path %q, got %q", dbPath, st.DBPath)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "g1"})
	s.PutSnapshot(ctx, PutParams{World: "w1", Doc: "global", Content: "g2"})
	s.PutSnapshot(ctx, PutParams{World: "w2", Doc: "global", Content: "other"})
	s.AppendJournal(ctx, JournalParams{World: "w1", Kind: KindResponse, Content: "The gate opens."})

	ex, err := s.ExportAll(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ex.Snapshots) != 2 || len(ex.Journal) != 1 {
		t.Fatalf("expected 2 snapshots and 1 entry, got %d/%d", len(ex.Snapshots), len(ex.Journal))
	}

	s2 := newTestStore(t)
	n, err := s2.Import(ctx, ex)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 imported, got %d", n)
	}

	got, _ := s2.GetSnapshot(ctx, GetParams{World: "w1", Doc: "global"})
	if got[0].Content != "g2" || got[0].Version != 2 {
		t.Errorf("expected latest g2 at version 2, got %q v%d", got[0].Content, got[0].Version)
	}
	hits, _ := s2.SearchJournal(ctx, JournalSearchParams{Query: "gate"})
	if len(hits) != 1 || hits[0].Kind != KindResponse {
		t.Errorf("expected imported journal entry, got %+v", hits)
	}
}
