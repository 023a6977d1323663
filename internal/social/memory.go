// Package social keeps the interaction log between entities and the
// directional relationships derived from it.
//
// A Memory is not safe for concurrent use; the manager serializes access.
package social

import (
	"slices"
	"sort"
	"time"

	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/model"
)

// Taxonomy classifies interaction types for the reverse direction of a
// relationship update. The receiving side of a hostile interaction always
// loses affinity and the receiving side of a benevolent one always gains it.
type Taxonomy struct {
	Hostile    []string `yaml:"hostile_types" json:"hostile_types"`
	Benevolent []string `yaml:"benevolent_types" json:"benevolent_types"`
}

// DefaultTaxonomy returns the built-in hostile and benevolent type names.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Hostile:    []string{"agression", "vol", "menace", "aggression", "attack", "theft", "threat"},
		Benevolent: []string{"aide", "cadeau", "soin", "help", "gift", "healing"},
	}
}

// reverseImpact returns the impact applied to the receiving side.
func (t Taxonomy) reverseImpact(interactionType string, impact int) int {
	switch {
	case slices.Contains(t.Hostile, interactionType):
		return -abs(impact)
	case slices.Contains(t.Benevolent, interactionType):
		return abs(impact)
	default:
		return impact
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Meta carries bookkeeping counters.
type Meta struct {
	CreatedAt         time.Time `json:"created_at"`
	LastUpdated       time.Time `json:"last_updated"`
	InteractionCount  int       `json:"interaction_count"`
	RelationshipCount int       `json:"relationship_count"`
}

// Memory is the social memory of one world.
type Memory struct {
	worldID       string
	interactions  []*model.Interaction
	relationships map[string]map[string]*model.Relationship
	meta          Meta
	taxonomy      Taxonomy
	now           func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithTaxonomy replaces the default hostile and benevolent type lists.
func WithTaxonomy(t Taxonomy) Option {
	return func(m *Memory) { m.taxonomy = t }
}

// New creates an empty social memory.
func New(worldID string, opts ...Option) *Memory {
	m := &Memory{
		worldID:       worldID,
		relationships: map[string]map[string]*model.Relationship{},
		taxonomy:      DefaultTaxonomy(),
		now:           time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	now := m.now()
	m.meta = Meta{CreatedAt: now, LastUpdated: now}
	return m
}

func (m *Memory) WorldID() string    { return m.worldID }
func (m *Memory) Meta() Meta         { return m.meta }
func (m *Memory) Taxonomy() Taxonomy { return m.taxonomy }

// SetClock replaces the time source, used after decoding a saved memory.
func (m *Memory) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// InteractionParams holds parameters for recording an interaction.
type InteractionParams struct {
	Entity1ID   string
	Entity1Name string
	Entity2ID   string
	Entity2Name string
	Type        string
	Description string
	Impact      int
	LocationID  string
	Witnesses   []string
	Context     map[string]any
}

// AddInteraction appends an interaction and updates the relationship in both
// directions. Impact is clamped to [-10,10].
func (m *Memory) AddInteraction(p InteractionParams) model.Interaction {
	now := m.now()
	i := &model.Interaction{
		ID:          model.NewInteractionID(),
		Entity1ID:   p.Entity1ID,
		Entity1Name: p.Entity1Name,
		Entity2ID:   p.Entity2ID,
		Entity2Name: p.Entity2Name,
		Type:        p.Type,
		Description: p.Description,
		Impact:      model.Clamp(p.Impact, -10, 10),
		Timestamp:   now,
		LocationID:  p.LocationID,
		Witnesses:   append([]string{}, p.Witnesses...),
		Context:     map[string]any{},
	}
	for k, v := range p.Context {
		i.Context[k] = v
	}
	m.interactions = append(m.interactions, i)

	m.updateRelationship(i.Entity1ID, i.Entity2ID, i.Type, i.Impact, now)
	m.updateRelationship(i.Entity2ID, i.Entity1ID, i.Type, m.taxonomy.reverseImpact(i.Type, i.Impact), now)

	m.meta.LastUpdated = now
	m.meta.InteractionCount = len(m.interactions)
	m.meta.RelationshipCount = m.countRelationships()
	logger.Debug("interaction added", "from", i.Entity1ID, "to", i.Entity2ID, "type", i.Type, "impact", i.Impact)
	return cloneInteraction(i)
}

func (m *Memory) updateRelationship(from, to, interactionType string, impact int, now time.Time) {
	rels, ok := m.relationships[from]
	if !ok {
		rels = map[string]*model.Relationship{}
		m.relationships[from] = rels
	}
	r, ok := rels[to]
	if !ok {
		rels[to] = &model.Relationship{
			Affinity:         model.Clamp(impact, -100, 100),
			InteractionCount: 1,
			LastInteraction:  now,
			InteractionTypes: map[string]int{interactionType: 1},
		}
		return
	}
	r.Affinity = model.Clamp(r.Affinity+impact, -100, 100)
	r.InteractionCount++
	r.LastInteraction = now
	r.InteractionTypes[interactionType]++
}

func (m *Memory) countRelationships() int {
	n := 0
	for _, rels := range m.relationships {
		n += len(rels)
	}
	return n
}

// Relationship returns from's relationship toward to.
func (m *Memory) Relationship(from, to string) (model.Relationship, bool) {
	r, ok := m.relationships[from][to]
	if !ok {
		return model.Relationship{}, false
	}
	return cloneRelationship(r), true
}

// Affinity returns from's affinity toward to, 0 when they never interacted.
func (m *Memory) Affinity(from, to string) int {
	if r, ok := m.relationships[from][to]; ok {
		return r.Affinity
	}
	return 0
}

// Relationships returns every relationship held by entityID, keyed by the other entity.
func (m *Memory) Relationships(entityID string) map[string]model.Relationship {
	out := map[string]model.Relationship{}
	for other, r := range m.relationships[entityID] {
		out[other] = cloneRelationship(r)
	}
	return out
}

// EntityInteractions returns interactions with entityID as either party, newest first.
func (m *Memory) EntityInteractions(entityID string, limit int) []model.Interaction {
	return m.latest(limit, func(i *model.Interaction) bool { return i.Involves(entityID) })
}

// WitnessInteractions returns interactions witnessed by witnessID, newest first.
func (m *Memory) WitnessInteractions(witnessID string, limit int) []model.Interaction {
	return m.latest(limit, func(i *model.Interaction) bool { return i.WitnessedBy(witnessID) })
}

// LocationInteractions returns interactions at locationID, newest first.
func (m *Memory) LocationInteractions(locationID string, limit int) []model.Interaction {
	return m.latest(limit, func(i *model.Interaction) bool { return i.LocationID == locationID })
}

// latest walks the log backwards so that equal timestamps keep insertion
// order reversed. A limit of 0 means 10.
func (m *Memory) latest(limit int, match func(*model.Interaction) bool) []model.Interaction {
	if limit == 0 {
		limit = 10
	}
	out := []model.Interaction{}
	for idx := len(m.interactions) - 1; idx >= 0; idx-- {
		if i := m.interactions[idx]; match(i) {
			out = append(out, cloneInteraction(i))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ClearInteractions drops the interaction log but keeps relationships.
// It returns the number of interactions removed.
func (m *Memory) ClearInteractions() int {
	n := len(m.interactions)
	m.interactions = nil
	m.meta.InteractionCount = 0
	m.meta.LastUpdated = m.now()
	return n
}

// Reset drops both interactions and relationships.
func (m *Memory) Reset() {
	m.interactions = nil
	m.relationships = map[string]map[string]*model.Relationship{}
	m.meta.InteractionCount = 0
	m.meta.RelationshipCount = 0
	m.meta.LastUpdated = m.now()
}

func cloneInteraction(i *model.Interaction) model.Interaction {
	c := *i
	c.Witnesses = append([]string{}, i.Witnesses...)
	c.Context = make(map[string]any, len(i.Context))
	for k, v := range i.Context {
		c.Context[k] = v
	}
	return c
}

func cloneRelationship(r *model.Relationship) model.Relationship {
	c := *r
	c.InteractionTypes = make(map[string]int, len(r.InteractionTypes))
	for k, v := range r.InteractionTypes {
		c.InteractionTypes[k] = v
	}
	return c
}
