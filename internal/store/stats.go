package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string       `json:"db_path"`
	DBSizeBytes     int64        `json:"db_size_bytes"`
	TotalSnapshots  int          `json:"total_snapshots"`
	ActiveSnapshots int          `json:"active_snapshots"`
	JournalEntries  int          `json:"journal_entries"`
	JournalChunks   int          `json:"journal_chunks"`
	Worlds          []WorldStats `json:"worlds"`
}

// WorldStats holds per-world counts.
type WorldStats struct {
	World     string `json:"world"`
	Snapshots int    `json:"snapshots"`
	Docs      int    `json:"docs"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalSnapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE deleted_at IS NULL`).Scan(&st.ActiveSnapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal`).Scan(&st.JournalEntries)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_chunks`).Scan(&st.JournalChunks)

	rows, err := s.db.QueryContext(ctx, `
		SELECT world, COUNT(*) AS cnt, COUNT(DISTINCT doc) AS docs
		FROM snapshots WHERE deleted_at IS NULL
		GROUP BY world ORDER BY cnt DESC, world`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var w WorldStats
		rows.Scan(&w.World, &w.Snapshots, &w.Docs)
		st.Worlds = append(st.Worlds, w)
	}

	return st, rows.Err()
}
