package social

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/lorekeeper/internal/model"
)

type snapshot struct {
	WorldID       string                                    `json:"world_id"`
	Interactions  []*model.Interaction                      `json:"interactions"`
	Relationships map[string]map[string]*model.Relationship `json:"relationships"`
	Meta          Meta                                      `json:"meta"`
}

// MarshalJSON encodes the log, relationships and counters. The taxonomy is
// configuration and is not persisted.
func (m *Memory) MarshalJSON() ([]byte, error) {
	s := snapshot{
		WorldID:       m.worldID,
		Interactions:  m.interactions,
		Relationships: m.relationships,
		Meta:          m.meta,
	}
	if s.Interactions == nil {
		s.Interactions = []*model.Interaction{}
	}
	return json.Marshal(s)
}

// Decode rebuilds a social memory from its JSON encoding.
func Decode(data []byte, opts ...Option) (*Memory, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	m := New(s.WorldID, opts...)
	for _, i := range s.Interactions {
		if i == nil {
			continue
		}
		if i.Witnesses == nil {
			i.Witnesses = []string{}
		}
		if i.Context == nil {
			i.Context = map[string]any{}
		}
		m.interactions = append(m.interactions, i)
	}
	for from, rels := range s.Relationships {
		m.relationships[from] = map[string]*model.Relationship{}
		for to, r := range rels {
			if r == nil {
				continue
			}
			if r.InteractionTypes == nil {
				r.InteractionTypes = map[string]int{}
			}
			m.relationships[from][to] = r
		}
	}
	if !s.Meta.CreatedAt.IsZero() {
		m.meta = s.Meta
	}
	m.meta.InteractionCount = len(m.interactions)
	m.meta.RelationshipCount = m.countRelationships()
	return m, nil
}

// SaveFile writes the memory as indented JSON, creating parent directories.
func (m *Memory) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadFile reads a memory written by SaveFile.
func LoadFile(path string, opts ...Option) (*Memory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(b, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return m, nil
}
