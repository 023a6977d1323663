package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/model"
	"github.com/rcliao/lorekeeper/internal/social"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: epoch}
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return New("w1", "Eldoria", opts...), clock
}

// memories returns every recollection of an entity, strongest first.
func memories(t *testing.T, m *Manager, id string) []local.Ranked {
	t.Helper()
	var out []local.Ranked
	require.NoError(t, m.WithLocal(id, func(lm *local.Memory) {
		out = lm.Get(local.Filter{Limit: 1000, IgnoreDecay: true})
	}))
	return out
}

func events(m *Manager, f global.EventFilter) []model.GlobalEvent {
	var out []model.GlobalEvent
	m.WithGlobal(func(g *global.Memory) { out = g.Events(f) })
	return out
}

func TestRegisterAndEntities(t *testing.T) {
	m, _ := newTestManager(t)

	info := m.Register("npc_2", "npc", "Bob", 0)
	m.Register("npc_1", "npc", "Alice", 5)

	assert.Equal(t, local.EntityInfo{ID: "npc_2", Type: "npc", Name: "Bob"}, info)
	assert.True(t, m.Registered("npc_1"))
	assert.False(t, m.Registered("ghost"))

	ents := m.Entities()
	require.Len(t, ents, 2)
	assert.Equal(t, "npc_1", ents[0].ID)
	assert.Equal(t, "npc_2", ents[1].ID)

	require.NoError(t, m.WithLocal("npc_2", func(lm *local.Memory) {
		assert.Equal(t, DefaultMaxMemorySize, lm.MaxSize())
	}))
	assert.ErrorIs(t, m.WithLocal("ghost", func(*local.Memory) {}), ErrUnknownEntity)
}

func TestRecordInteractionFanOut(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	m.Register("B", "npc", "Bob", 10)

	id := m.RecordInteraction(InteractionParams{
		Entity1ID: "A", Entity2ID: "B", Type: "agression",
		Description: "A attacks B", Impact: 6, GlobalImportance: 5,
	})
	assert.Regexp(t, `^[0-9a-f-]{36}$`, id)

	m.WithSocial(func(s *social.Memory) {
		assert.Equal(t, 6, s.Affinity("A", "B"))
		assert.Equal(t, -6, s.Affinity("B", "A"))
		in := s.EntityInteractions("A", 1)
		require.Len(t, in, 1)
		assert.Equal(t, "Alice", in[0].Entity1Name)
		assert.Equal(t, "Bob", in[0].Entity2Name)
	})

	evs := events(m, global.EventFilter{Limit: -1})
	require.Len(t, evs, 1)
	assert.Equal(t, "Interaction: A attacks B", evs[0].Description)
	assert.Equal(t, "interaction_agression", evs[0].EventType)
	assert.Equal(t, 5, evs[0].Importance)
	assert.Equal(t, []string{"A", "B"}, evs[0].InvolvedEntities)

	a := memories(t, m, "A")
	require.Len(t, a, 1)
	assert.Equal(t, 9, a[0].Importance)
	assert.Equal(t, model.MemoryInteraction, a[0].MemoryType)
	assert.Equal(t, map[string]string{"entity:B": "target"}, a[0].InvolvedEntities)
	assert.Equal(t, []string{"agression"}, a[0].Tags)

	b := memories(t, m, "B")
	require.Len(t, b, 1)
	assert.Equal(t, map[string]string{"entity:A": "initiator"}, b[0].InvolvedEntities)

	require.NoError(t, m.WithLocal("A", func(lm *local.Memory) {
		assert.Equal(t, 1, lm.Familiarity("B", model.EntityNPCs))
	}))
}

func TestRecordInteractionWitnesses(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	m.Register("W", "npc", "Wendy", 10)

	m.RecordInteraction(InteractionParams{
		Entity1ID: "A", Entity2ID: "B", Type: "gift",
		Description: "A hands B a ring", Impact: -2,
		Witnesses: []string{"A", "W", "nobody"},
	})

	assert.Len(t, memories(t, m, "A"), 1, "a principal listed as witness gets no observation")

	w := memories(t, m, "W")
	require.Len(t, w, 1)
	assert.Equal(t, "I witnessed: A hands B a ring", w[0].Description)
	assert.Equal(t, 3, w[0].Importance)
	assert.Equal(t, model.MemoryObservation, w[0].MemoryType)
	assert.Equal(t, []string{"witnessed", "gift"}, w[0].Tags)
	assert.Equal(t, map[string]string{"entity:A": "initiator", "entity:B": "target"}, w[0].InvolvedEntities)

	m.WithSocial(func(s *social.Memory) {
		in := s.EntityInteractions("B", 1)
		require.Len(t, in, 1)
		assert.Equal(t, "Entity 2", in[0].Entity2Name)
	})
}

func TestRecordInteractionImportanceFloors(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	m.Register("W", "npc", "Wendy", 10)

	m.RecordInteraction(InteractionParams{
		Entity1ID: "A", Entity2ID: "B", Type: "chat", Description: "small talk",
		Witnesses: []string{"W"}, GlobalImportance: 3,
	})

	assert.Equal(t, 3, memories(t, m, "A")[0].Importance)
	assert.Equal(t, 2, memories(t, m, "W")[0].Importance)
	assert.Empty(t, events(m, global.EventFilter{Limit: -1}), "importance 3 is not mirrored")
}

func TestRecordInteractionDefaultMirrors(t *testing.T) {
	m, _ := newTestManager(t)
	m.RecordInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "chat", Description: "hello"})
	evs := events(m, global.EventFilter{Limit: -1})
	require.Len(t, evs, 1)
	assert.Equal(t, 5, evs[0].Importance)
}

func TestMemorizeGlobalEvent(t *testing.T) {
	m, clock := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	m.Register("B", "npc", "Bob", 10)
	clock.advance(time.Hour)

	e := m.MemorizeGlobalEvent(GlobalEventParams{
		Description: "The bridge collapses", Importance: 6,
		InvolvedEntities:        []string{"A", "B", "C"},
		LocalImportanceModifier: -2,
		LocationID:              "loc_bridge",
	})
	assert.Equal(t, global.DefaultEventType, e.EventType)
	assert.Equal(t, 6, e.Importance)

	a := memories(t, m, "A")
	require.Len(t, a, 1)
	assert.Equal(t, 4, a[0].Importance)
	assert.Equal(t, model.MemoryGlobalEvent, a[0].MemoryType)
	assert.Equal(t, "loc_bridge", a[0].LocationID)
	assert.Equal(t, e.Timestamp, a[0].Timestamp)
	assert.Equal(t, []string{global.DefaultEventType}, a[0].Tags)
	assert.Equal(t, map[string]string{"entity:B": "participant", "entity:C": "participant"}, a[0].InvolvedEntities)
	assert.Len(t, memories(t, m, "B"), 1)
}

func TestMemorizeGlobalEventClampsAndSkips(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)

	m.MemorizeGlobalEvent(GlobalEventParams{
		Description: "Comet", Importance: 9, LocalImportanceModifier: 5, InvolvedEntities: []string{"A"},
	})
	assert.Equal(t, 10, memories(t, m, "A")[0].Importance)

	m.MemorizeGlobalEvent(GlobalEventParams{
		Description: "Rumor", InvolvedEntities: []string{"A"}, GlobalOnly: true,
	})
	assert.Len(t, memories(t, m, "A"), 1)

	evs := events(m, global.EventFilter{Limit: -1})
	require.Len(t, evs, 2)
	assert.Equal(t, 5, evs[1].Importance, "zero importance defaults to 5")
}

func TestSyncWorldFact(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)

	fact := "The old king died in winter"
	m.SyncWorldFact("history", fact, 7, []string{"A", "ghost"}, "")
	m.SyncWorldFact("history", fact, 7, nil, "")
	m.SyncWorldFact("geography", "The river runs east", 4, []string{"A"}, "rumors")

	m.WithGlobal(func(g *global.Memory) {
		facts := g.Facts("history", 0)
		require.Len(t, facts["history"], 1)
		assert.Equal(t, 7, facts["history"][0].Importance)
	})
	require.NoError(t, m.WithLocal("A", func(lm *local.Memory) {
		v, ok := lm.Knowledge("history", FactKey(fact), 0)
		require.True(t, ok)
		assert.Equal(t, fact, v)
		_, ok = lm.Knowledge("rumors", FactKey("The river runs east"), 0)
		assert.True(t, ok)
	}))
}

func TestFactKeyIsStable(t *testing.T) {
	assert.Equal(t, FactKey("x"), FactKey("x"))
	assert.Regexp(t, `^fact_\d{1,4}$`, FactKey("The old king died in winter"))
}

func TestUpdateEntityState(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)

	ch := m.UpdateEntityState(StateParams{
		EntityID: "A", EntityType: "npc", Property: "health",
		OldValue: 10, NewValue: 5, Reason: "ambush", GlobalImportance: 5,
	})
	assert.Equal(t, "health", ch.Property)

	evs := events(m, global.EventFilter{Limit: -1})
	require.Len(t, evs, 1)
	assert.Equal(t, "State change: Alice - health changed from 10 to 5. ambush", evs[0].Description)
	assert.Equal(t, "state_change", evs[0].EventType)

	a := memories(t, m, "A")
	require.Len(t, a, 1)
	assert.Equal(t, "My attribute health changed from 10 to 5. ambush", a[0].Description)
	assert.Equal(t, 7, a[0].Importance)
	assert.Equal(t, model.MemorySelfChange, a[0].MemoryType)
	assert.Equal(t, []string{"state_change", "health"}, a[0].Tags)
}

func TestUpdateEntityStateLowImportance(t *testing.T) {
	m, _ := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)

	m.UpdateEntityState(StateParams{EntityID: "A", EntityType: "npc", Property: "mood", OldValue: "calm", NewValue: "tense"})

	assert.Empty(t, events(m, global.EventFilter{Limit: -1}))
	assert.Equal(t, 5, memories(t, m, "A")[0].Importance)
	m.WithGlobal(func(g *global.Memory) {
		assert.Len(t, g.StateChanges(global.ChangeFilter{}), 1)
	})
}

func TestUpdateEntityStateUnregistered(t *testing.T) {
	m, _ := newTestManager(t)
	m.UpdateEntityState(StateParams{
		EntityID: "Z", EntityType: "npc", Property: "mood",
		OldValue: "calm", NewValue: "angry", GlobalImportance: 4,
	})
	evs := events(m, global.EventFilter{Limit: -1})
	require.Len(t, evs, 1)
	assert.Equal(t, "State change: npc:Z - mood changed from calm to angry.", evs[0].Description)
}

func TestQuestAndDecisionPassThrough(t *testing.T) {
	m, _ := newTestManager(t)

	m.AddQuest(global.QuestParams{ID: "q1", Title: "Find the relic", Importance: 6})
	assert.True(t, m.UpdateQuestStatus("q1", model.QuestActive))
	assert.True(t, m.AddQuestUpdate("q1", "Found a map", ""))
	assert.False(t, m.AddQuestUpdate("missing", "nothing", ""))

	d := m.AddDecision(global.DecisionParams{Description: "Introduce a rival", ImpactLevel: 12})
	assert.Equal(t, 10, d.ImpactLevel)

	m.Track("A", model.EntityNPCs)
	m.WithGlobal(func(g *global.Memory) {
		q, ok := g.Quest("q1")
		require.True(t, ok)
		assert.Equal(t, model.QuestActive, q.Status)
		assert.Len(t, q.Updates, 2)
		assert.Equal(t, []string{"A"}, g.Tracked(model.EntityNPCs)[model.EntityNPCs])
	})
}

func TestForgetAcrossEntities(t *testing.T) {
	m, clock := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	m.Register("B", "npc", "Bob", 10)

	require.NoError(t, m.WithLocal("A", func(lm *local.Memory) {
		lm.Add(local.AddParams{Description: "trivial", Importance: 2})
		lm.Add(local.AddParams{Description: "vital", Importance: 9})
	}))
	clock.advance(40 * 24 * time.Hour)

	got := m.Forget(local.DefaultForgetPolicy())
	assert.Equal(t, map[string]int{"A": 1}, got)
	a := memories(t, m, "A")
	require.Len(t, a, 1)
	assert.Equal(t, "vital", a[0].Description)
}
