package manager

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/model"
	"github.com/rcliao/lorekeeper/internal/social"
)

// entityRefType is the ref type used for entities in recollections written by the manager.
const entityRefType = "entity"

// Thresholds and defaults of the fan-out writes.
const (
	defaultImportance       = 5
	defaultStateImportance  = 3
	globalMirrorThreshold   = 4
	selfChangeImportanceCap = 7
)

// GlobalEventParams holds parameters for MemorizeGlobalEvent.
type GlobalEventParams struct {
	Description      string
	Importance       int // 0 means 5
	EventType        string
	LocationID       string
	InvolvedEntities []string

	// LocalImportanceModifier is added to Importance for the local copies.
	LocalImportanceModifier int
	// GlobalOnly skips the local copies.
	GlobalOnly bool
}

// MemorizeGlobalEvent records an event in the global ledger and, unless
// GlobalOnly is set, a copy in the local memory of every registered
// involved entity, naming the other participants.
func (m *Manager) MemorizeGlobalEvent(p GlobalEventParams) model.GlobalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()

	importance := p.Importance
	if importance == 0 {
		importance = defaultImportance
	}
	e := m.global.AddEvent(global.EventParams{
		Description:      p.Description,
		Importance:       importance,
		EventType:        p.EventType,
		LocationID:       p.LocationID,
		InvolvedEntities: p.InvolvedEntities,
	})

	if p.GlobalOnly {
		return e
	}
	localImportance := model.ClampImportance(importance + p.LocalImportanceModifier)
	for _, id := range p.InvolvedEntities {
		lm, ok := m.locals[id]
		if !ok {
			continue
		}
		involved := map[string]string{}
		for _, other := range p.InvolvedEntities {
			if other != id {
				involved[model.Ref(entityRefType, other)] = "participant"
			}
		}
		lm.Add(local.AddParams{
			Description:      p.Description,
			Importance:       localImportance,
			MemoryType:       model.MemoryGlobalEvent,
			LocationID:       p.LocationID,
			InvolvedEntities: involved,
			Timestamp:        e.Timestamp,
			Tags:             []string{e.EventType},
		})
	}
	return e
}

// FactKey derives the knowledge key under which a synced fact is filed.
func FactKey(fact string) string {
	h := fnv.New32a()
	h.Write([]byte(fact))
	return fmt.Sprintf("fact_%d", h.Sum32()%10000)
}

// SyncWorldFact establishes a world fact and files it as knowledge of every
// registered entity in entityIDs. An empty knowledgeCategory reuses category.
func (m *Manager) SyncWorldFact(category, fact string, importance int, entityIDs []string, knowledgeCategory string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()

	if importance == 0 {
		importance = defaultImportance
	}
	m.global.AddFact(category, fact, importance)

	if knowledgeCategory == "" {
		knowledgeCategory = category
	}
	key := FactKey(fact)
	for _, id := range entityIDs {
		if lm, ok := m.locals[id]; ok {
			lm.AddKnowledge(knowledgeCategory, key, fact, importance)
		}
	}
}

// InteractionParams holds parameters for RecordInteraction.
type InteractionParams struct {
	Entity1ID   string
	Entity2ID   string
	Type        string
	Description string
	Impact      int
	LocationID  string
	Witnesses   []string
	Context     map[string]any

	// GlobalImportance of 4 or more mirrors the interaction as a global event. 0 means 5.
	GlobalImportance int
}

// RecordInteraction records an interaction in the social memory, gives both
// principals a recollection of it, gives every other registered witness an
// observation, and mirrors important interactions into the global ledger.
// It returns the interaction id.
func (m *Manager) RecordInteraction(p InteractionParams) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()

	name1, ok := m.nameOf(p.Entity1ID)
	if !ok {
		name1 = "Entity 1"
	}
	name2, ok := m.nameOf(p.Entity2ID)
	if !ok {
		name2 = "Entity 2"
	}

	in := m.social.AddInteraction(social.InteractionParams{
		Entity1ID:   p.Entity1ID,
		Entity1Name: name1,
		Entity2ID:   p.Entity2ID,
		Entity2Name: name2,
		Type:        p.Type,
		Description: p.Description,
		Impact:      p.Impact,
		LocationID:  p.LocationID,
		Witnesses:   p.Witnesses,
		Context:     p.Context,
	})

	magnitude := in.Impact
	if magnitude < 0 {
		magnitude = -magnitude
	}

	principals := []struct{ self, other, role string }{
		{p.Entity1ID, p.Entity2ID, "target"},
		{p.Entity2ID, p.Entity1ID, "initiator"},
	}
	for _, pr := range principals {
		lm, ok := m.locals[pr.self]
		if !ok {
			continue
		}
		lm.Add(local.AddParams{
			Description:      p.Description,
			Importance:       max(3, magnitude+3),
			MemoryType:       model.MemoryInteraction,
			LocationID:       p.LocationID,
			InvolvedEntities: map[string]string{model.Ref(entityRefType, pr.other): pr.role},
			Tags:             []string{p.Type},
		})
		lm.UpdateFamiliarity(pr.other, model.EntityNPCs, 1)
	}

	for _, w := range p.Witnesses {
		if w == p.Entity1ID || w == p.Entity2ID {
			continue
		}
		lm, ok := m.locals[w]
		if !ok {
			continue
		}
		lm.Add(local.AddParams{
			Description: "I witnessed: " + p.Description,
			Importance:  max(2, magnitude+1),
			MemoryType:  model.MemoryObservation,
			LocationID:  p.LocationID,
			InvolvedEntities: map[string]string{
				model.Ref(entityRefType, p.Entity1ID): "initiator",
				model.Ref(entityRefType, p.Entity2ID): "target",
			},
			Tags: []string{"witnessed", p.Type},
		})
	}

	gi := p.GlobalImportance
	if gi == 0 {
		gi = defaultImportance
	}
	if gi >= globalMirrorThreshold {
		m.global.AddEvent(global.EventParams{
			Description:      "Interaction: " + p.Description,
			Importance:       gi,
			EventType:        "interaction_" + p.Type,
			LocationID:       p.LocationID,
			InvolvedEntities: []string{p.Entity1ID, p.Entity2ID},
		})
	}

	logger.Debug("interaction recorded", "world", m.worldID, "id", in.ID, "type", p.Type, "impact", in.Impact)
	return in.ID
}

// StateParams holds parameters for UpdateEntityState.
type StateParams struct {
	EntityID   string
	EntityType string
	Property   string
	OldValue   any
	NewValue   any
	Reason     string

	// GlobalImportance of 4 or more also records a global event. 0 means 3.
	GlobalImportance int
}

// UpdateEntityState audits a property change in the global memory, records
// significant changes as events, and lets a registered entity remember the
// change to itself.
func (m *Manager) UpdateEntityState(p StateParams) model.WorldStateChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()

	ch := m.global.AddStateChange(global.ChangeParams{
		EntityID:   p.EntityID,
		EntityType: p.EntityType,
		Property:   p.Property,
		OldValue:   p.OldValue,
		NewValue:   p.NewValue,
		Reason:     p.Reason,
	})

	gi := p.GlobalImportance
	if gi == 0 {
		gi = defaultStateImportance
	}
	if gi >= globalMirrorThreshold {
		name, ok := m.nameOf(p.EntityID)
		if !ok {
			name = model.Ref(p.EntityType, p.EntityID)
		}
		m.global.AddEvent(global.EventParams{
			Description: strings.TrimSpace(fmt.Sprintf("State change: %s - %s changed from %v to %v. %s",
				name, p.Property, p.OldValue, p.NewValue, p.Reason)),
			Importance:       gi,
			EventType:        "state_change",
			InvolvedEntities: []string{p.EntityID},
		})
	}

	if lm, ok := m.locals[p.EntityID]; ok {
		lm.Add(local.AddParams{
			Description: strings.TrimSpace(fmt.Sprintf("My attribute %s changed from %v to %v. %s",
				p.Property, p.OldValue, p.NewValue, p.Reason)),
			Importance: min(selfChangeImportanceCap, gi+2),
			MemoryType: model.MemorySelfChange,
			Tags:       []string{"state_change", p.Property},
		})
	}
	return ch
}

// AddQuest creates or updates a quest.
func (m *Manager) AddQuest(p global.QuestParams) model.Quest {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()
	return m.global.AddQuest(p)
}

// AddQuestUpdate appends to a quest's history. It reports false for an unknown quest.
func (m *Manager) AddQuestUpdate(questID, description, updateType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()
	return m.global.AddQuestUpdate(questID, description, updateType)
}

// UpdateQuestStatus changes a quest's status. It reports false for an unknown quest.
func (m *Manager) UpdateQuestStatus(questID string, status model.QuestStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()
	return m.global.UpdateQuestStatus(questID, status)
}

// AddDecision records a narrative decision.
func (m *Manager) AddDecision(p global.DecisionParams) model.NarrativeDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()
	return m.global.AddDecision(p)
}

// Track marks an entity as worth summarizing preferentially.
func (m *Manager) Track(entityID, entityType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()
	m.global.Track(entityID, entityType)
}

// Forget applies the forgetting policy to every local memory and returns
// the number of recollections removed per entity. Entities that forgot
// nothing are omitted.
func (m *Manager) Forget(p local.ForgetPolicy) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cache.invalidate()

	out := map[string]int{}
	for id, lm := range m.locals {
		if n := lm.Forget(p); n > 0 {
			out[id] = n
		}
	}
	return out
}
