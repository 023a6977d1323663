// Package global implements the world-wide ledger: events, established facts,
// quests, narrative decisions, an audit trail of state changes, and the set of
// entities worth summarizing preferentially.
//
// A Memory is not safe for concurrent use; the manager serializes access.
package global

import (
	"sort"
	"time"

	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/model"
)

// DefaultEventType is used when an event is added without a type.
const DefaultEventType = "world_event"

// Memory is the global memory of one world.
type Memory struct {
	worldID   string
	worldName string

	events    []*model.GlobalEvent
	facts     map[string][]*model.WorldFact
	quests    map[string]*model.Quest
	decisions []*model.NarrativeDecision
	changes   []*model.WorldStateChange
	tracked   map[string]map[string]struct{}

	lastUpdated time.Time
	now         func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// New creates an empty global memory for a world.
func New(worldID, worldName string, opts ...Option) *Memory {
	m := &Memory{
		worldID:   worldID,
		worldName: worldName,
		facts:     map[string][]*model.WorldFact{},
		quests:    map[string]*model.Quest{},
		tracked:   newTracked(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.lastUpdated = m.now()
	return m
}

func newTracked() map[string]map[string]struct{} {
	t := make(map[string]map[string]struct{}, len(model.EntityTypes))
	for _, typ := range model.EntityTypes {
		t[typ] = map[string]struct{}{}
	}
	return t
}

func (m *Memory) WorldID() string        { return m.worldID }
func (m *Memory) WorldName() string      { return m.worldName }
func (m *Memory) LastUpdated() time.Time { return m.lastUpdated }

// SetClock replaces the time source, used after decoding a saved memory.
func (m *Memory) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// EventParams holds parameters for adding an event.
type EventParams struct {
	Description      string
	Importance       int
	EventType        string // default: world_event
	LocationID       string
	InvolvedEntities []string
	Timestamp        time.Time // zero means now
}

// AddEvent appends an event and keeps the ledger ordered by importance,
// then timestamp, both descending. The ledger is never capped.
func (m *Memory) AddEvent(p EventParams) model.GlobalEvent {
	now := m.now()
	eventType := p.EventType
	if eventType == "" {
		eventType = DefaultEventType
	}
	ts := p.Timestamp
	if ts.IsZero() {
		ts = now
	}
	e := &model.GlobalEvent{
		ID:               model.NewID(model.PrefixEvent),
		Description:      p.Description,
		Importance:       model.ClampImportance(p.Importance),
		EventType:        eventType,
		LocationID:       p.LocationID,
		InvolvedEntities: append([]string{}, p.InvolvedEntities...),
		Timestamp:        ts,
		CreatedAt:        now,
	}
	m.events = append(m.events, e)
	sortEvents(m.events)
	m.lastUpdated = now
	logger.Debug("global event added", "world", m.worldID, "id", e.ID, "type", eventType, "importance", e.Importance)
	return cloneEvent(e)
}

func sortEvents(events []*model.GlobalEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		return a.Timestamp.After(b.Timestamp)
	})
}

// EventFilter selects events in Events.
type EventFilter struct {
	EventType     string
	MinImportance int
	LocationID    string
	EntityID      string
	TimeRange     *model.TimeRange
	Limit         int // 0 means 10, negative means no limit
}

// Events returns matching events in ledger order.
func (m *Memory) Events(f EventFilter) []model.GlobalEvent {
	limit := f.Limit
	if limit == 0 {
		limit = 10
	}
	out := []model.GlobalEvent{}
	for _, e := range m.events {
		if limit > 0 && len(out) >= limit {
			break
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if e.Importance < f.MinImportance {
			continue
		}
		if f.LocationID != "" && e.LocationID != f.LocationID {
			continue
		}
		if f.EntityID != "" && !e.Involves(f.EntityID) {
			continue
		}
		if f.TimeRange != nil && !f.TimeRange.Contains(e.Timestamp) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	return out
}

// EventCount returns the total number of events in the ledger.
func (m *Memory) EventCount() int { return len(m.events) }

// AddFact records a fact under category. A fact already present in the
// category only has its importance raised; it is never duplicated or lowered.
func (m *Memory) AddFact(category, fact string, importance int) {
	importance = model.ClampImportance(importance)
	for _, existing := range m.facts[category] {
		if existing.Fact == fact {
			existing.Importance = max(existing.Importance, importance)
			return
		}
	}
	now := m.now()
	m.facts[category] = append(m.facts[category], &model.WorldFact{
		Fact:          fact,
		Importance:    importance,
		EstablishedAt: now,
	})
	m.lastUpdated = now
}

// Facts returns facts with at least minImportance grouped by category. With a
// category given the result holds only that category, possibly empty.
func (m *Memory) Facts(category string, minImportance int) map[string][]model.WorldFact {
	out := map[string][]model.WorldFact{}
	cats := m.FactCategories()
	if category != "" {
		cats = []string{category}
	}
	for _, cat := range cats {
		facts := []model.WorldFact{}
		for _, f := range m.facts[cat] {
			if f.Importance >= minImportance {
				facts = append(facts, *f)
			}
		}
		out[cat] = facts
	}
	return out
}

// FactCategories returns the fact categories in sorted order.
func (m *Memory) FactCategories() []string {
	out := make([]string, 0, len(m.facts))
	for c := range m.facts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Track marks an entity as worth following. Unknown entity types are ignored.
func (m *Memory) Track(entityID, entityType string) {
	set, ok := m.tracked[entityType]
	if !ok {
		return
	}
	set[entityID] = struct{}{}
	m.lastUpdated = m.now()
}

// Untrack removes an entity and reports whether it was tracked.
func (m *Memory) Untrack(entityID, entityType string) bool {
	set, ok := m.tracked[entityType]
	if !ok {
		return false
	}
	if _, ok := set[entityID]; !ok {
		return false
	}
	delete(set, entityID)
	m.lastUpdated = m.now()
	return true
}

// Tracked returns tracked ids per type in sorted order. An empty entityType
// means every type; an unknown one yields an empty list.
func (m *Memory) Tracked(entityType string) map[string][]string {
	types := model.EntityTypes
	if entityType != "" {
		types = []string{entityType}
	}
	out := make(map[string][]string, len(types))
	for _, t := range types {
		ids := make([]string, 0, len(m.tracked[t]))
		for id := range m.tracked[t] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[t] = ids
	}
	return out
}

func (m *Memory) trackedCounts() map[string]int {
	out := make(map[string]int, len(m.tracked))
	for t, set := range m.tracked {
		out[t] = len(set)
	}
	return out
}

func cloneEvent(e *model.GlobalEvent) model.GlobalEvent {
	c := *e
	c.InvolvedEntities = append([]string{}, e.InvolvedEntities...)
	return c
}
