package store

import (
	"context"
	"database/sql"
	"strings"
)

// Export is the portable form of an archive.
type Export struct {
	Snapshots []Snapshot     `json:"snapshots"`
	Journal   []JournalEntry `json:"journal"`
}

// ExportAll returns all live snapshot versions and journal entries,
// optionally filtered by world.
func (s *SQLiteStore) ExportAll(ctx context.Context, world string) (*Export, error) {
	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}

	if world != "" {
		where = append(where, "world = ?")
		args = append(args, world)
	}

	query := `SELECT ` + snapshotColumns + `
	          FROM snapshots WHERE ` + strings.Join(where, " AND ") + ` ORDER BY world, doc, version`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &Export{}
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out.Snapshots = append(out.Snapshots, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jq := `SELECT id, world, entity_id, kind, content, created_at FROM journal`
	var jargs []interface{}
	if world != "" {
		jq += ` WHERE world = ?`
		jargs = append(jargs, world)
	}
	jq += ` ORDER BY created_at`

	jrows, err := s.db.QueryContext(ctx, jq, jargs...)
	if err != nil {
		return nil, err
	}
	defer jrows.Close()

	for jrows.Next() {
		var e JournalEntry
		var entity sql.NullString
		var createdAt string
		if err := jrows.Scan(&e.ID, &e.World, &entity, &e.Kind, &e.Content, &createdAt); err != nil {
			return nil, err
		}
		e.EntityID = entity.String
		e.CreatedAt = parseTime(createdAt)
		out.Journal = append(out.Journal, e)
	}
	return out, jrows.Err()
}

// Import stores snapshots and journal entries from an export. Snapshots are
// re-versioned on top of whatever the archive already holds.
func (s *SQLiteStore) Import(ctx context.Context, ex *Export) (int, error) {
	imported := 0
	for _, sn := range ex.Snapshots {
		_, err := s.PutSnapshot(ctx, PutParams{
			World:   sn.World,
			Doc:     sn.Doc,
			Content: sn.Content,
			Label:   sn.Label,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	for _, e := range ex.Journal {
		_, err := s.AppendJournal(ctx, JournalParams{
			World:    e.World,
			EntityID: e.EntityID,
			Kind:     e.Kind,
			Content:  e.Content,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
