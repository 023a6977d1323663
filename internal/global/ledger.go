package global

import (
	"sort"

	"github.com/rcliao/lorekeeper/internal/model"
)

// DefaultDecisionType is used when a decision is recorded without a type.
const DefaultDecisionType = "world_building"

// DecisionParams holds parameters for recording a narrative decision.
type DecisionParams struct {
	Description  string
	Type         string
	Rationale    string
	Alternatives []string
	ImpactLevel  int
}

// AddDecision appends a narrative decision to the audit log.
func (m *Memory) AddDecision(p DecisionParams) model.NarrativeDecision {
	now := m.now()
	typ := p.Type
	if typ == "" {
		typ = DefaultDecisionType
	}
	d := &model.NarrativeDecision{
		ID:           model.NewID(model.PrefixDecision),
		Description:  p.Description,
		Type:         typ,
		Rationale:    p.Rationale,
		Alternatives: append([]string{}, p.Alternatives...),
		ImpactLevel:  model.ClampImportance(p.ImpactLevel),
		Timestamp:    now,
	}
	m.decisions = append(m.decisions, d)
	m.lastUpdated = now
	return cloneDecision(d)
}

// Decisions returns decisions of at least minImpact, optionally of one type,
// ordered by impact then timestamp, both descending. A limit of 0 means 10.
func (m *Memory) Decisions(decisionType string, minImpact, limit int) []model.NarrativeDecision {
	if limit == 0 {
		limit = 10
	}
	out := []model.NarrativeDecision{}
	for _, d := range m.decisions {
		if decisionType != "" && d.Type != decisionType {
			continue
		}
		if d.ImpactLevel < minImpact {
			continue
		}
		out = append(out, cloneDecision(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ImpactLevel != out[j].ImpactLevel {
			return out[i].ImpactLevel > out[j].ImpactLevel
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ChangeParams holds parameters for recording a state change.
type ChangeParams struct {
	EntityID   string
	EntityType string
	Property   string
	OldValue   any
	NewValue   any
	Reason     string
}

// AddStateChange appends a property change to the audit trail.
func (m *Memory) AddStateChange(p ChangeParams) model.WorldStateChange {
	now := m.now()
	c := &model.WorldStateChange{
		ID:         model.NewID(model.PrefixChange),
		EntityID:   p.EntityID,
		EntityType: p.EntityType,
		Property:   p.Property,
		OldValue:   p.OldValue,
		NewValue:   p.NewValue,
		Reason:     p.Reason,
		Timestamp:  now,
	}
	m.changes = append(m.changes, c)
	m.lastUpdated = now
	return *c
}

// ChangeFilter selects state changes in StateChanges.
type ChangeFilter struct {
	EntityID   string
	EntityType string
	Property   string
	Limit      int // 0 means 20, negative means no limit
}

// StateChanges returns matching changes, newest first.
func (m *Memory) StateChanges(f ChangeFilter) []model.WorldStateChange {
	limit := f.Limit
	if limit == 0 {
		limit = 20
	}
	out := []model.WorldStateChange{}
	for i := len(m.changes) - 1; i >= 0; i-- {
		c := m.changes[i]
		if f.EntityID != "" && c.EntityID != f.EntityID {
			continue
		}
		if f.EntityType != "" && c.EntityType != f.EntityType {
			continue
		}
		if f.Property != "" && c.Property != f.Property {
			continue
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneDecision(d *model.NarrativeDecision) model.NarrativeDecision {
	c := *d
	c.Alternatives = append([]string{}, d.Alternatives...)
	return c
}
