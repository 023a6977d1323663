package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		world       TEXT NOT NULL,
		doc         TEXT NOT NULL,
		content     TEXT NOT NULL,
		label       TEXT,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_world_doc ON snapshots(world, doc);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_deleted ON snapshots(deleted_at);

	CREATE TABLE IF NOT EXISTS journal (
		id          TEXT PRIMARY KEY,
		world       TEXT NOT NULL,
		entity_id   TEXT,
		kind        TEXT NOT NULL DEFAULT 'note',
		content     TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_world ON journal(world, created_at DESC);

	CREATE TABLE IF NOT EXISTS journal_chunks (
		id          TEXT PRIMARY KEY,
		entry_id    TEXT NOT NULL REFERENCES journal(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_journal_chunks_entry ON journal_chunks(entry_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS journal_fts USING fts5(
		text,
		content=journal_chunks,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers keep the index in sync with journal_chunks.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS journal_chunks_ai AFTER INSERT ON journal_chunks BEGIN
			INSERT INTO journal_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS journal_chunks_ad AFTER DELETE ON journal_chunks BEGIN
			INSERT INTO journal_fts(journal_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS journal_chunks_au AFTER UPDATE ON journal_chunks BEGIN
			INSERT INTO journal_fts(journal_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO journal_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) PutSnapshot(ctx context.Context, p PutParams) (*Snapshot, error) {
	if p.World == "" || p.Doc == "" {
		return nil, fmt.Errorf("world and doc are required")
	}
	now := time.Now().UTC()
	id := s.newID()

	var label *string
	if p.Label != "" {
		label = &p.Label
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM snapshots
		 WHERE world = ? AND doc = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, p.World, p.Doc).Scan(&prevID, &prevVersion)

	version := 1
	var supersedes *string
	switch {
	case err == nil:
		version = prevVersion + 1
		supersedes = &prevID
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("find previous version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, world, doc, content, label, version, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.World, p.Doc, p.Content, label, version, supersedes, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        id,
		World:     p.World,
		Doc:       p.Doc,
		Content:   p.Content,
		Label:     p.Label,
		Version:   version,
		CreatedAt: now,
	}
	if supersedes != nil {
		snap.Supersedes = *supersedes
	}
	return snap, nil
}

const snapshotColumns = `id, world, doc, content, label, version, supersedes, created_at, deleted_at`

func (s *SQLiteStore) GetSnapshot(ctx context.Context, p GetParams) ([]Snapshot, error) {
	var query string
	var args []interface{}

	switch {
	case p.History:
		query = `SELECT ` + snapshotColumns + ` FROM snapshots
				 WHERE world = ? AND doc = ? AND deleted_at IS NULL
				 ORDER BY version DESC`
		args = []interface{}{p.World, p.Doc}
	case p.Version > 0:
		query = `SELECT ` + snapshotColumns + ` FROM snapshots
				 WHERE world = ? AND doc = ? AND version = ? AND deleted_at IS NULL
				 LIMIT 1`
		args = []interface{}{p.World, p.Doc, p.Version}
	default:
		query = `SELECT ` + snapshotColumns + ` FROM snapshots
				 WHERE world = ? AND doc = ? AND deleted_at IS NULL
				 ORDER BY version DESC LIMIT 1`
		args = []interface{}{p.World, p.Doc}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(snaps) == 0 {
		return nil, fmt.Errorf("snapshot %s/%s: %w", p.World, p.Doc, ErrNotFound)
	}
	return snaps, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, p ListParams) ([]Snapshot, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	// Only the latest version of each world+doc
	where := []string{"s.deleted_at IS NULL"}
	var args []interface{}
	if p.World != "" {
		where = append(where, "s.world = ?")
		args = append(args, p.World)
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.world, s.doc, s.content, s.label, s.version, s.supersedes, s.created_at, s.deleted_at
		FROM snapshots s
		INNER JOIN (
			SELECT world, doc, MAX(version) AS max_ver
			FROM snapshots WHERE deleted_at IS NULL
			GROUP BY world, doc
		) latest ON s.world = latest.world AND s.doc = latest.doc AND s.version = latest.max_ver
		WHERE %s
		ORDER BY s.world, s.doc
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) RmSnapshot(ctx context.Context, p RmParams) error {
	if p.Hard {
		var err error
		if p.AllVersions {
			_, err = s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE world = ? AND doc = ?`, p.World, p.Doc)
		} else {
			_, err = s.db.ExecContext(ctx,
				`DELETE FROM snapshots WHERE id = (
					SELECT id FROM snapshots WHERE world = ? AND doc = ? AND deleted_at IS NULL
					ORDER BY version DESC LIMIT 1)`, p.World, p.Doc)
		}
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if p.AllVersions {
		_, err := s.db.ExecContext(ctx,
			`UPDATE snapshots SET deleted_at = ? WHERE world = ? AND doc = ? AND deleted_at IS NULL`,
			now, p.World, p.Doc)
		return err
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM snapshots WHERE world = ? AND doc = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, p.World, p.Doc).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("snapshot %s/%s: %w", p.World, p.Doc, ErrNotFound)
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE snapshots SET deleted_at = ? WHERE id = ?`, now, id)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var sn Snapshot
	var label, supersedes, deletedAt sql.NullString
	var createdAt string

	err := row.Scan(&sn.ID, &sn.World, &sn.Doc, &sn.Content, &label,
		&sn.Version, &supersedes, &createdAt, &deletedAt)
	if err != nil {
		return sn, err
	}

	sn.CreatedAt = parseTime(createdAt)
	if label.Valid {
		sn.Label = label.String
	}
	if supersedes.Valid {
		sn.Supersedes = supersedes.String
	}
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		sn.DeletedAt = &t
	}
	return sn, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// parseAge parses an age string like "30d", "24h", "30m" into a time.Duration.
var ageRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

func parseAge(s string) (time.Duration, error) {
	m := ageRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 30d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
