package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupsAreConnectedComponents(t *testing.T) {
	m, _ := newTestMemory(t)
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk", Impact: 10})
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk", Impact: 10})
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk", Impact: 10})
	for i := 0; i < 3; i++ {
		m.AddInteraction(InteractionParams{Entity1ID: "C", Entity2ID: "B", Type: "aide", Impact: 9})
	}
	m.AddInteraction(InteractionParams{Entity1ID: "D", Entity2ID: "B", Type: "agression", Impact: 4})

	assert.Equal(t, 30, m.Affinity("A", "B"))
	assert.Equal(t, 27, m.Affinity("B", "C"))

	groups := m.Groups(20)
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"D"}}, groups)
}

func TestGroupsIgnoreEdgeDirection(t *testing.T) {
	m, _ := newTestMemory(t)
	// B likes A but A resents B: still one group at threshold 5.
	m.AddInteraction(InteractionParams{Entity1ID: "B", Entity2ID: "A", Type: "vol", Impact: 6})

	assert.Equal(t, [][]string{{"A", "B"}}, m.Groups(5))
	assert.Equal(t, [][]string{{"A"}, {"B"}}, m.Groups(50))
}

func TestNetwork(t *testing.T) {
	m, _ := newTestMemory(t)
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk"})
	m.AddInteraction(InteractionParams{Entity1ID: "A", Entity2ID: "B", Type: "talk"})
	m.AddInteraction(InteractionParams{Entity1ID: "B", Entity2ID: "C", Type: "talk"})

	assert.Equal(t, map[string][]string{
		"A": {"B"},
		"B": {"A", "C"},
		"C": {"B"},
	}, m.Network(1))
	assert.Equal(t, map[string][]string{
		"A": {"B"},
		"B": {"A"},
		"C": {},
	}, m.Network(2))
}

func TestInfluential(t *testing.T) {
	m, _ := newTestMemory(t)
	for i := 0; i < 4; i++ {
		m.AddInteraction(InteractionParams{Entity1ID: "hub", Entity2ID: "a", Type: "talk"})
	}
	m.AddInteraction(InteractionParams{Entity1ID: "hub", Entity2ID: "b", Type: "talk"})
	m.AddInteraction(InteractionParams{Entity1ID: "hub", Entity2ID: "c", Type: "talk"})

	got := m.Influential(2)
	assert.Equal(t, []Influence{{EntityID: "hub", Score: 5}, {EntityID: "a", Score: 3}}, got)
	assert.Len(t, m.Influential(0), 4)
}
