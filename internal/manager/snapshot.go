package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/social"
	"github.com/rcliao/lorekeeper/internal/store"
)

// Archive documents of a world.
const (
	DocGlobal      = "global"
	DocSocial      = "social"
	DocLocalPrefix = "local/"
)

// Archive is the part of the snapshot store the manager needs.
type Archive interface {
	PutSnapshot(ctx context.Context, p store.PutParams) (*store.Snapshot, error)
	GetSnapshot(ctx context.Context, p store.GetParams) ([]store.Snapshot, error)
	ListSnapshots(ctx context.Context, p store.ListParams) ([]store.Snapshot, error)
}

// Snapshot stores the current state of every memory as a new version of
// its archive document. It returns the created snapshots, global first.
func (m *Manager) Snapshot(ctx context.Context, a Archive, label string) ([]store.Snapshot, error) {
	m.mu.Lock()
	docs := map[string][]byte{}
	var err error
	if docs[DocGlobal], err = json.Marshal(m.global); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("encode global memory: %w", err)
	}
	if docs[DocSocial], err = json.Marshal(m.social); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("encode social memory: %w", err)
	}
	for id, lm := range m.locals {
		b, err := json.Marshal(lm)
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("encode local memory %s: %w", id, err)
		}
		docs[DocLocalPrefix+id] = b
	}
	m.mu.Unlock()

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return docOrder(names[i], names[j]) })

	out := make([]store.Snapshot, 0, len(names))
	for _, name := range names {
		sn, err := a.PutSnapshot(ctx, store.PutParams{
			World:   m.worldID,
			Doc:     name,
			Content: string(docs[name]),
			Label:   label,
		})
		if err != nil {
			return out, fmt.Errorf("archive %s: %w", name, err)
		}
		out = append(out, *sn)
	}
	logger.Info("world archived", "world", m.worldID, "docs", len(out), "label", label)
	return out, nil
}

// docOrder sorts global before social before locals.
func docOrder(a, b string) bool {
	rank := func(d string) int {
		switch d {
		case DocGlobal:
			return 0
		case DocSocial:
			return 1
		}
		return 2
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra < rb
	}
	return a < b
}

// Restore rebuilds a manager from the latest archived version of each of
// a world's documents. Local documents that fail to decode are skipped.
func Restore(ctx context.Context, a Archive, worldID, worldName string, opts ...Option) (*Manager, error) {
	snaps, err := a.ListSnapshots(ctx, store.ListParams{World: worldID, Limit: 100000})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	byDoc := map[string]store.Snapshot{}
	for _, sn := range snaps {
		byDoc[sn.Doc] = sn
	}
	gs, ok := byDoc[DocGlobal]
	if !ok {
		return nil, fmt.Errorf("world %s: %w", worldID, ErrWorldNotFound)
	}

	m := newManager(worldID, worldName, opts)
	if m.global, err = global.Decode([]byte(gs.Content), global.WithClock(m.now)); err != nil {
		return nil, fmt.Errorf("decode global memory: %w", err)
	}
	if m.worldName == "" {
		m.worldName = m.global.WorldName()
	}

	if ss, ok := byDoc[DocSocial]; ok {
		if m.social, err = social.Decode([]byte(ss.Content), m.socialOpts()...); err != nil {
			return nil, fmt.Errorf("decode social memory: %w", err)
		}
	} else {
		m.social = social.New(worldID, m.socialOpts()...)
	}

	for doc, sn := range byDoc {
		id, ok := strings.CutPrefix(doc, DocLocalPrefix)
		if !ok {
			continue
		}
		lm, err := local.Decode([]byte(sn.Content), m.localOpts()...)
		if err != nil {
			logger.Warn("skipping unreadable archived local memory", "world", worldID, "doc", doc, "error", err)
			continue
		}
		m.locals[id] = lm
	}
	return m, nil
}

// GlobalHistory lists the archived versions of a world's global memory, newest first.
func GlobalHistory(ctx context.Context, a Archive, worldID string) ([]store.Snapshot, error) {
	snaps, err := a.GetSnapshot(ctx, store.GetParams{World: worldID, Doc: DocGlobal, History: true})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("world %s: %w", worldID, ErrWorldNotFound)
	}
	return snaps, err
}
