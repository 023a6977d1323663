package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rcliao/lorekeeper/internal/model"
)

type snapshot struct {
	EntityID      string                                       `json:"entity_id"`
	EntityType    string                                       `json:"entity_type"`
	EntityName    string                                       `json:"entity_name"`
	MaxMemorySize int                                          `json:"max_memory_size"`
	Memories      []*model.Recollection                        `json:"memories"`
	Knowledge     map[string]map[string]*model.KnowledgeEntry `json:"knowledge"`
	KnownEntities map[string]map[string]int                    `json:"known_entities"`
	LastUpdated   time.Time                                    `json:"last_updated"`
}

// MarshalJSON encodes the full state of the memory.
func (m *Memory) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		EntityID:      m.entityID,
		EntityType:    m.entityType,
		EntityName:    m.entityName,
		MaxMemorySize: m.maxSize,
		Memories:      m.memories,
		Knowledge:     m.knowledge,
		KnownEntities: m.known,
		LastUpdated:   m.lastUpdated,
	})
}

// Decode rebuilds a memory from its JSON encoding.
func Decode(data []byte, opts ...Option) (*Memory, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.EntityID == "" {
		return nil, errors.New("local memory: missing entity_id")
	}

	m := New(s.EntityID, s.EntityType, s.EntityName, s.MaxMemorySize, opts...)
	for _, r := range s.Memories {
		if r == nil {
			continue
		}
		if r.InvolvedEntities == nil {
			r.InvolvedEntities = map[string]string{}
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
		m.memories = append(m.memories, r)
	}
	m.sortCanonical()
	for cat, entries := range s.Knowledge {
		m.knowledge[cat] = map[string]*model.KnowledgeEntry{}
		for key, e := range entries {
			if e != nil {
				m.knowledge[cat][key] = e
			}
		}
	}
	for typ, entities := range s.KnownEntities {
		if !model.ValidEntityTypes[typ] {
			continue
		}
		bucket := map[string]int{}
		for id, level := range entities {
			bucket[id] = level
		}
		m.known[typ] = bucket
	}
	if !s.LastUpdated.IsZero() {
		m.lastUpdated = s.LastUpdated
	}
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
