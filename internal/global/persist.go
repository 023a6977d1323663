package global

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
	WorldID            string                        `json:"world_id"`
	WorldName          string                        `json:"world_name"`
	Events             []*model.GlobalEvent          `json:"events"`
	WorldFacts         map[string][]*model.WorldFact `json:"world_facts"`
	Quests             map[string]*model.Quest       `json:"quests"`
	NarrativeDecisions []*model.NarrativeDecision    `json:"narrative_decisions"`
	WorldStateChanges  []*model.WorldStateChange     `json:"world_state_changes"`
	TrackedEntities    map[string][]string           `json:"tracked_entities"`
	LastUpdated        time.Time                     `json:"last_updated"`
}

// MarshalJSON encodes the full ledger. Tracked entity sets become sorted lists.
func (m *Memory) MarshalJSON() ([]byte, error) {
	s := snapshot{
		WorldID:            m.worldID,
		WorldName:          m.worldName,
		Events:             m.events,
		WorldFacts:         m.facts,
		Quests:             m.quests,
		NarrativeDecisions: m.decisions,
		WorldStateChanges:  m.changes,
		TrackedEntities:    m.Tracked(""),
		LastUpdated:        m.lastUpdated,
	}
	if s.Events == nil {
		s.Events = []*model.GlobalEvent{}
	}
	if s.NarrativeDecisions == nil {
		s.NarrativeDecisions = []*model.NarrativeDecision{}
	}
	if s.WorldStateChanges == nil {
		s.WorldStateChanges = []*model.WorldStateChange{}
	}
	return json.Marshal(s)
}

// Decode rebuilds a global memory from its JSON encoding.
func Decode(data []byte, opts ...Option) (*Memory, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.WorldID == "" {
		return nil, errors.New("global memory: missing world_id")
	}

	m := New(s.WorldID, s.WorldName, opts...)
	for _, e := range s.Events {
		if e == nil {
			continue
		}
		if e.InvolvedEntities == nil {
			e.InvolvedEntities = []string{}
		}
		m.events = append(m.events, e)
	}
	sortEvents(m.events)
	for cat, facts := range s.WorldFacts {
		for _, f := range facts {
			if f != nil {
				m.facts[cat] = append(m.facts[cat], f)
			}
		}
	}
	for id, q := range s.Quests {
		if q == nil {
			continue
		}
		if q.ID == "" {
			q.ID = id
		}
		if q.Updates == nil {
			q.Updates = []model.QuestUpdate{}
		}
		if q.LocationIDs == nil {
			q.LocationIDs = []string{}
		}
		if q.InvolvedEntities == nil {
			q.InvolvedEntities = []string{}
		}
		m.quests[id] = q
	}
	for _, d := range s.NarrativeDecisions {
		if d != nil {
			if d.Alternatives == nil {
				d.Alternatives = []string{}
			}
			m.decisions = append(m.decisions, d)
		}
	}
	for _, c := range s.WorldStateChanges {
		if c != nil {
			m.changes = append(m.changes, c)
		}
	}
	for typ, ids := range s.TrackedEntities {
		set, ok := m.tracked[typ]
		if !ok {
			continue
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	if !s.LastUpdated.IsZero() {
		m.lastUpdated = s.LastUpdated
	}
	return m, nil
}

// SaveFile writes the ledger as indented JSON, creating parent directories.
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

// LoadFile reads a ledger written by SaveFile.
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
