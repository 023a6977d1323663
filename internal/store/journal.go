package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/lorekeeper/internal/chunker"
)

// JournalParams holds parameters for appending a journal entry.
type JournalParams struct {
	World    string
	EntityID string
	Kind     string
	Content  string
}

// JournalSearchParams holds parameters for searching the journal.
type JournalSearchParams struct {
	World string
	Query string
	Kind  string
	Limit int
}

// JournalHit wraps a journal entry with the chunk that matched.
type JournalHit struct {
	JournalEntry
	MatchChunk *Chunk `json:"match_chunk,omitempty"`
}

// AppendJournal stores a narration record and indexes its chunks for full-text search.
func (s *SQLiteStore) AppendJournal(ctx context.Context, p JournalParams) (*JournalEntry, error) {
	if p.World == "" {
		return nil, fmt.Errorf("world is required")
	}
	if p.Kind == "" {
		p.Kind = KindNote
	}
	now := time.Now().UTC()
	id := s.newID()

	var entity *string
	if p.EntityID != "" {
		entity = &p.EntityID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO journal (id, world, entity_id, kind, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.World, entity, p.Kind, p.Content, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	pieces := chunker.Split(p.Content, chunker.Options{})
	for i, pc := range pieces {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO journal_chunks (id, entry_id, seq, text, start_line, end_line) VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), id, i, pc.Text, pc.StartLine, pc.EndLine)
		if err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &JournalEntry{
		ID:         id,
		World:      p.World,
		EntityID:   p.EntityID,
		Kind:       p.Kind,
		Content:    p.Content,
		CreatedAt:  now,
		ChunkCount: len(pieces),
	}, nil
}

// SearchJournal ranks journal chunks against the query with FTS5 and returns
// one hit per entry. When FTS5 finds nothing (or cannot parse the query) it
// falls back to a substring scan, so partial words still match.
func (s *SQLiteStore) SearchJournal(ctx context.Context, p JournalSearchParams) ([]JournalHit, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	hits, err := s.searchFTS(ctx, p, limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}
	return s.searchLike(ctx, p, limit)
}

func (s *SQLiteStore) searchFTS(ctx context.Context, p JournalSearchParams, limit int) ([]JournalHit, error) {
	where, args := journalFilter(p)
	where = append([]string{"journal_fts MATCH ?"}, where...)
	args = append([]interface{}{ftsQuery(p.Query)}, args...)

	query := fmt.Sprintf(`
		SELECT j.id, j.world, j.entity_id, j.kind, j.content, j.created_at,
		       c.id, c.seq, c.text, c.start_line, c.end_line
		FROM journal_fts
		JOIN journal_chunks c ON c.rowid = journal_fts.rowid
		JOIN journal j ON j.id = c.entry_id
		WHERE %s
		ORDER BY bm25(journal_fts), j.created_at DESC`, strings.Join(where, " AND "))

	return s.collectHits(ctx, query, args, limit)
}

func (s *SQLiteStore) searchLike(ctx context.Context, p JournalSearchParams, limit int) ([]JournalHit, error) {
	where, args := journalFilter(p)
	where = append([]string{"c.text LIKE ?"}, where...)
	args = append([]interface{}{"%" + p.Query + "%"}, args...)

	query := fmt.Sprintf(`
		SELECT j.id, j.world, j.entity_id, j.kind, j.content, j.created_at,
		       c.id, c.seq, c.text, c.start_line, c.end_line
		FROM journal_chunks c
		JOIN journal j ON j.id = c.entry_id
		WHERE %s
		ORDER BY j.created_at DESC, c.seq`, strings.Join(where, " AND "))

	return s.collectHits(ctx, query, args, limit)
}

func journalFilter(p JournalSearchParams) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if p.World != "" {
		where = append(where, "j.world = ?")
		args = append(args, p.World)
	}
	if p.Kind != "" {
		where = append(where, "j.kind = ?")
		args = append(args, p.Kind)
	}
	return where, args
}

// ftsQuery quotes each term so punctuation in player text is not read as FTS syntax.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

func (s *SQLiteStore) collectHits(ctx context.Context, query string, args []interface{}, limit int) ([]JournalHit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []JournalHit
	seen := map[string]bool{}
	for rows.Next() {
		var h JournalHit
		var c Chunk
		var entity sql.NullString
		var createdAt string
		if err := rows.Scan(&h.ID, &h.World, &entity, &h.Kind, &h.Content, &createdAt,
			&c.ID, &c.Seq, &c.Text, &c.StartLine, &c.EndLine); err != nil {
			return nil, err
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		h.EntityID = entity.String
		h.CreatedAt = parseTime(createdAt)
		c.EntryID = h.ID
		h.MatchChunk = &c
		hits = append(hits, h)
		if len(hits) >= limit {
			break
		}
	}
	return hits, rows.Err()
}

// PruneJournal deletes journal entries older than the given age ("30d", "12h").
// Returns the number of entries removed.
func (s *SQLiteStore) PruneJournal(ctx context.Context, olderThan string) (int, error) {
	age, err := parseAge(olderThan)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
