package social

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(t *testing.T, opts ...Option) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: epoch}
	return New("w1", append([]Option{WithClock(clock.now)}, opts...)...), clock
}

func interact(m *Memory, from, to, typ string, impact int) {
	m.AddInteraction(InteractionParams{Entity1ID: from, Entity1Name: from, Entity2ID: to, Entity2Name: to,
		Type: typ, Description: from + " " + typ + " " + to, Impact: impact})
}

func TestHostileInteractionIsAsymmetric(t *testing.T) {
	m, _ := newTestMemory(t)
	interact(m, "A", "B", "agression", 5)

	assert.Equal(t, 5, m.Affinity("A", "B"))
	assert.Equal(t, -5, m.Affinity("B", "A"))
}

func TestBenevolentInteractionForcesPositive(t *testing.T) {
	m, _ := newTestMemory(t)
	interact(m, "A", "B", "cadeau", -4)

	assert.Equal(t, -4, m.Affinity("A", "B"))
	assert.Equal(t, 4, m.Affinity("B", "A"))
}

func TestNeutralInteractionIsSymmetric(t *testing.T) {
	m, _ := newTestMemory(t)
	interact(m, "A", "B", "conversation", -3)

	assert.Equal(t, -3, m.Affinity("A", "B"))
	assert.Equal(t, -3, m.Affinity("B", "A"))
}

func TestCustomTaxonomy(t *testing.T) {
	m, _ := newTestMemory(t, WithTaxonomy(Taxonomy{Hostile: []string{"insult"}}))
	interact(m, "A", "B", "insult", 3)
	interact(m, "C", "D", "agression", 3)

	assert.Equal(t, -3, m.Affinity("B", "A"))
	assert.Equal(t, 3, m.Affinity("D", "C"), "agression is neutral under a custom taxonomy")
}

func TestImpactAndAffinityClamped(t *testing.T) {
	m, _ := newTestMemory(t)
	var last int
	for i := 0; i < 30; i++ {
		last = m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "aide", Impact: 50}).Impact
	}
	assert.Equal(t, 10, last)
	assert.Equal(t, 100, m.Affinity("A", "B"))
	assert.Equal(t, 100, m.Affinity("B", "A"))

	for i := 0; i < 30; i++ {
		m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "menace", Impact: -99})
	}
	assert.Equal(t, -100, m.Affinity("A", "B"))
	assert.Equal(t, -100, m.Affinity("B", "A"))
}

func TestRelationshipBookkeeping(t *testing.T) {
	m, clock := newTestMemory(t)
	interact(m, "A", "B", "trade", 2)
	clock.advance(time.Hour)
	interact(m, "B", "A", "trade", 1)
	interact(m, "A", "B", "vol", 3)

	r, ok := m.Relationship("A", "B")
	require.True(t, ok)
	assert.Equal(t, 3, r.InteractionCount)
	assert.Equal(t, map[string]int{"trade": 2, "vol": 1}, r.InteractionTypes)
	assert.True(t, r.LastInteraction.Equal(clock.t))

	_, ok = m.Relationship("A", "Z")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Affinity("A", "Z"))
	assert.Len(t, m.Relationships("A"), 1)
	assert.Empty(t, m.Relationships("Z"))

	meta := m.Meta()
	assert.Equal(t, 3, meta.InteractionCount)
	assert.Equal(t, 2, meta.RelationshipCount)
}

func TestInteractionQueriesNewestFirst(t *testing.T) {
	m, clock := newTestMemory(t)
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk", Description: "first", LocationID: "inn", Witnesses: []string{"W"}})
	clock.advance(time.Minute)
	m.AddInteraction(InteractionParams{Entity1ID: "C", Entity2ID: "A", Type: "talk", Description: "second", LocationID: "inn"})
	clock.advance(time.Minute)
	m.AddInteraction(InteractionParams{Entity1ID: "C", Entity2ID: "D", Type: "talk", Description: "third", Witnesses: []string{"W"}})

	got := m.EntityInteractions("A", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Description)
	assert.Equal(t, "first", got[1].Description)

	assert.Len(t, m.EntityInteractions("A", 1), 1)
	assert.Len(t, m.WitnessInteractions("W", 0), 2)
	assert.Equal(t, "third", m.WitnessInteractions("W", 0)[0].Description)
	assert.Len(t, m.LocationInteractions("inn", 0), 2)
	assert.Empty(t, m.LocationInteractions("castle", 0))
}

func TestClearAndReset(t *testing.T) {
	m, _ := newTestMemory(t)
	interact(m, "A", "B", "talk", 1)
	interact(m, "A", "C", "talk", 1)

	assert.Equal(t, 2, m.ClearInteractions())
	assert.Empty(t, m.EntityInteractions("A", 0))
	assert.Equal(t, 1, m.Affinity("A", "B"), "relationships survive clearing")

	m.Reset()
	assert.Equal(t, 0, m.Affinity("A", "B"))
	assert.Equal(t, 0, m.Meta().RelationshipCount)
}

func TestRoundTrip(t *testing.T) {
	m, clock := newTestMemory(t)
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity1Name: "Alice", Entity2ID: "B", Entity2Name: "Bob",
		Type: "agression", Description: "punch", Impact: 6, LocationID: "inn", Witnesses: []string{"C"},
		Context: map[string]any{"weapon": "fist"}})
	clock.advance(time.Minute)
	interact(m, "B", "C", "aide", 2)

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	back, err := Decode(data, WithClock(clock.now))
	require.NoError(t, err)

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, m.Relationships(id), back.Relationships(id))
		assert.Equal(t, m.EntityInteractions(id, -1), back.EntityInteractions(id, -1))
	}
	assert.Equal(t, m.Meta().InteractionCount, back.Meta().InteractionCount)
	assert.Equal(t, m.Meta().RelationshipCount, back.Meta().RelationshipCount)
	assert.True(t, m.Meta().CreatedAt.Equal(back.Meta().CreatedAt))
}

func TestSaveAndLoadFile(t *testing.T) {
	m, _ := newTestMemory(t)
	interact(m, "A", "B", "talk", 3)
	path := t.TempDir() + "/w1/social_memory.json"
	require.NoError(t, m.SaveFile(path))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Affinity("B", "A"))

	_, err = Decode([]byte("[]"))
	assert.Error(t, err)
}
