// Package store archives world snapshots and the narration journal in SQLite.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live snapshot matches a lookup.
var ErrNotFound = errors.New("not found")

// Snapshot is one stored version of a world document.
type Snapshot struct {
	ID         string     `json:"id"`
	World      string     `json:"world"`
	Doc        string     `json:"doc"`
	Content    string     `json:"content"`
	Label      string     `json:"label,omitempty"`
	Version    int        `json:"version"`
	Supersedes string     `json:"supersedes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// JournalEntry is one narration record: a prompt sent to a model or its response.
type JournalEntry struct {
	ID         string    `json:"id"`
	World      string    `json:"world"`
	EntityID   string    `json:"entity_id,omitempty"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count,omitempty"`
}

// Journal entry kinds.
const (
	KindPrompt   = "prompt"
	KindResponse = "response"
	KindNote     = "note"
)

// Chunk is an indexed piece of a journal entry.
type Chunk struct {
	ID        string `json:"id"`
	EntryID   string `json:"entry_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// PutParams holds parameters for storing a snapshot.
type PutParams struct {
	World   string
	Doc     string // global, social, or local/<entity id>
	Content string
	Label   string
}

// GetParams holds parameters for retrieving a snapshot.
type GetParams struct {
	World   string
	Doc     string
	History bool
	Version int // 0 means latest
}

// ListParams holds parameters for listing snapshots.
type ListParams struct {
	World string
	Limit int
}

// RmParams holds parameters for deleting a snapshot.
type RmParams struct {
	World       string
	Doc         string
	AllVersions bool
	Hard        bool
}

// Store defines the archive interface.
type Store interface {
	// PutSnapshot stores a new version of a document. Returns the created snapshot.
	PutSnapshot(ctx context.Context, p PutParams) (*Snapshot, error)

	// GetSnapshot retrieves a document version.
	// Returns a slice (single element normally, multiple with History=true).
	GetSnapshot(ctx context.Context, p GetParams) ([]Snapshot, error)

	// ListSnapshots lists the latest version of every document.
	ListSnapshots(ctx context.Context, p ListParams) ([]Snapshot, error)

	// RmSnapshot soft-deletes (or hard-deletes) a document.
	RmSnapshot(ctx context.Context, p RmParams) error

	// AppendJournal stores and indexes a narration record.
	AppendJournal(ctx context.Context, p JournalParams) (*JournalEntry, error)

	// SearchJournal finds narration records matching a full-text query.
	SearchJournal(ctx context.Context, p JournalSearchParams) ([]JournalHit, error)

	// Close closes the store.
	Close() error
}
