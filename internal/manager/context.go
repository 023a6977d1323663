package manager

import (
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/lorekeeper/internal/budget"
	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/model"
)

// Default character budgets of the context builders.
const (
	DefaultEntityContextSize    = 1500
	DefaultWorldSummarySize     = 2000
	DefaultLastEventsSize       = 1000
	DefaultLastEventsCount      = 5
	DefaultNarrativeContextSize = 3000
)

// RelationEntry is one relationship of an entity, named from the other side's local memory.
type RelationEntry struct {
	EntityID         string `json:"-"`
	Entity           string `json:"entity"`
	Affinity         int    `json:"affinity"`
	InteractionCount int    `json:"interaction_count"`
}

// EntityContext is what an entity knows and feels, bounded for a prompt.
type EntityContext struct {
	Entity        local.EntityInfo             `json:"entity"`
	Memories      []local.MemoryEntry          `json:"memories"`
	Knowledge     map[string]map[string]string `json:"knowledge"`
	Relationships []RelationEntry              `json:"relationships"`
	GlobalContext []global.EventEntry          `json:"global_context"`
}

// EntityContextParams holds parameters for EntityContext.
type EntityContextParams struct {
	EntityID         string
	MaxSize          int // 0 means DefaultEntityContextSize
	SkipKnowledge    bool
	SkipGlobalEvents bool
}

// EntityContext merges an entity's important and recent recollections, its
// knowledge, its relationships and the world events around it.
func (m *Manager) EntityContext(p EntityContextParams) (EntityContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entityContext(p)
}

func (m *Manager) entityContext(p EntityContextParams) (EntityContext, error) {
	lm, ok := m.locals[p.EntityID]
	if !ok {
		return EntityContext{}, fmt.Errorf("entity %s: %w", p.EntityID, ErrUnknownEntity)
	}
	maxSize := p.MaxSize
	if maxSize == 0 {
		maxSize = DefaultEntityContextSize
	}

	c := EntityContext{
		Entity:        lm.Info(),
		Memories:      []local.MemoryEntry{},
		Knowledge:     map[string]map[string]string{},
		Relationships: []RelationEntry{},
		GlobalContext: []global.EventEntry{},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(c))

	important := lm.Get(local.Filter{MinImportance: 7, Limit: 3})
	recent := lm.Recent(5)
	seen := map[string]bool{}
	for _, r := range append(important, recent...) {
		if seen[r.ID] {
			continue
		}
		entry := local.EntryOf(r)
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		seen[r.ID] = true
		c.Memories = append(c.Memories, entry)
	}

	if !p.SkipKnowledge && acc.Open() {
		all := lm.AllKnowledge(0)
		for _, cat := range lm.KnowledgeCategories() {
			items, ok := all[cat]
			if !ok {
				continue
			}
			keys := make([]string, 0, len(items))
			for k := range items {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			// A category is opened together with its first entry.
			kept := map[string]string{}
			for i, k := range keys {
				n := budget.Size(map[string]string{k: items[k]})
				if i == 0 {
					n += budget.KeyOverhead(cat)
				}
				if !acc.Take(n) {
					break
				}
				kept[k] = items[k]
			}
			if len(kept) > 0 {
				c.Knowledge[cat] = kept
			}
		}
	}

	for _, rel := range m.relationEntries(p.EntityID) {
		if !acc.Open() || !acc.TakeElem(rel) {
			break
		}
		c.Relationships = append(c.Relationships, rel)
	}

	if !p.SkipGlobalEvents && acc.Open() {
		events := m.global.Events(global.EventFilter{MinImportance: 6, EntityID: p.EntityID, Limit: 3})
		events = append(events, m.global.Events(global.EventFilter{MinImportance: 8, Limit: 2})...)
		seenEvents := map[string]bool{}
		for _, e := range events {
			if seenEvents[e.ID] {
				continue
			}
			entry := global.EventEntry{Description: e.Description, Importance: e.Importance}
			if !acc.Open() || !acc.TakeElem(entry) {
				break
			}
			seenEvents[e.ID] = true
			c.GlobalContext = append(c.GlobalContext, entry)
		}
	}
	return c, nil
}

// relationEntries lists an entity's relationships, strongest feelings first.
func (m *Manager) relationEntries(entityID string) []RelationEntry {
	rels := m.social.Relationships(entityID)
	out := make([]RelationEntry, 0, len(rels))
	for other, r := range rels {
		name, ok := m.nameOf(other)
		if !ok {
			name = "Entity " + other
		}
		out = append(out, RelationEntry{
			EntityID:         other,
			Entity:           name,
			Affinity:         r.Affinity,
			InteractionCount: r.InteractionCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Affinity), abs(out[j].Affinity)
		if ai != aj {
			return ai > aj
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// WorldRef identifies the world in summaries.
type WorldRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QuestBrief is an active quest in a world summary.
type QuestBrief struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// KeyEntity is an influential registered entity.
type KeyEntity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Influence int    `json:"influence"`
}

// WorldSummary is a compact view of the world for a narrator.
type WorldSummary struct {
	World        WorldRef            `json:"world"`
	GlobalFacts  map[string][]string `json:"global_facts"`
	RecentEvents []global.EventEntry `json:"recent_events"`
	ActiveQuests []QuestBrief        `json:"active_quests"`
	KeyEntities  []KeyEntity         `json:"key_entities"`
}

// WorldSummary packs facts of importance 6 or more, up to five events of
// importance 7 or more, active quests of importance 5 or more and the five
// most influential registered entities into maxSize characters.
// The result is cached.
func (m *Manager) WorldSummary(maxSize int) WorldSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worldSummary(maxSize)
}

func (m *Manager) worldSummary(maxSize int) WorldSummary {
	if maxSize == 0 {
		maxSize = DefaultWorldSummarySize
	}
	if s, ok := cached[WorldSummary](m.cache, cacheWorldSummary, maxSize, nil); ok {
		return s
	}

	s := WorldSummary{
		World:        WorldRef{ID: m.worldID, Name: m.worldName},
		GlobalFacts:  map[string][]string{},
		RecentEvents: []global.EventEntry{},
		ActiveQuests: []QuestBrief{},
		KeyEntities:  []KeyEntity{},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(s))

	texts := map[string][]string{}
	for cat, facts := range m.global.Facts("", 6) {
		for _, f := range facts {
			texts[cat] = append(texts[cat], f.Fact)
		}
	}
	s.GlobalFacts = budget.FillGroups(acc, m.global.FactCategories(), texts)

	for _, e := range m.global.Events(global.EventFilter{MinImportance: 7, Limit: 5}) {
		entry := global.EventEntry{Description: e.Description, Importance: e.Importance}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		s.RecentEvents = append(s.RecentEvents, entry)
	}

	for _, q := range m.global.Quests(global.QuestFilter{Status: model.QuestActive, MinImportance: 5}) {
		entry := QuestBrief{Title: q.Title, Description: q.Description}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		s.ActiveQuests = append(s.ActiveQuests, entry)
	}

	for _, inf := range m.social.Influential(5) {
		lm, ok := m.locals[inf.EntityID]
		if !ok {
			continue
		}
		entry := KeyEntity{ID: inf.EntityID, Name: lm.EntityName(), Type: lm.EntityType(), Influence: inf.Score}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		s.KeyEntities = append(s.KeyEntities, entry)
	}

	m.cache.put(cacheWorldSummary, s)
	return s
}

// EventBrief is an event with the names of its registered participants.
type EventBrief struct {
	Description string   `json:"description"`
	Importance  int      `json:"importance"`
	Type        string   `json:"type"`
	Involved    []string `json:"involved,omitempty"`
}

// LastEvents explains the latest notable events.
type LastEvents struct {
	Timestamp time.Time    `json:"timestamp"`
	Events    []EventBrief `json:"events"`
}

// LastEvents packs up to maxEvents events of importance 4 or more into
// maxSize characters. The result is cached.
func (m *Manager) LastEvents(maxEvents, maxSize int) LastEvents {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxEvents <= 0 {
		maxEvents = DefaultLastEventsCount
	}
	if maxSize == 0 {
		maxSize = DefaultLastEventsSize
	}
	fits := func(l LastEvents) bool { return len(l.Events) <= maxEvents }
	if l, ok := cached[LastEvents](m.cache, cacheLastEvents, maxSize, fits); ok {
		return l
	}

	l := LastEvents{Timestamp: m.now(), Events: []EventBrief{}}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(l))

	for _, e := range m.global.Events(global.EventFilter{MinImportance: 4, Limit: maxEvents * 2}) {
		if len(l.Events) >= maxEvents {
			break
		}
		entry := EventBrief{Description: e.Description, Importance: e.Importance, Type: e.EventType}
		for _, id := range e.InvolvedEntities {
			if name, ok := m.nameOf(id); ok {
				entry.Involved = append(entry.Involved, name)
			}
		}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		l.Events = append(l.Events, entry)
	}

	m.cache.put(cacheLastEvents, l)
	return l
}

// NarrativeElements are the storytelling threads of a narrative context.
type NarrativeElements struct {
	RecentDecisions []global.DecisionEntry `json:"recent_decisions"`
	Themes          []string               `json:"themes"`
	Tensions        []string               `json:"tensions"`
}

// GroupEntry is a social group named by its registered members.
type GroupEntry struct {
	Members []string `json:"members"`
}

// SocialDynamics describes the social structure of the world.
type SocialDynamics struct {
	Groups []GroupEntry `json:"groups"`
}

// NarrativeContext is everything a narrator needs for the next turn.
type NarrativeContext struct {
	WorldState        WorldSummary      `json:"world_state"`
	NarrativeElements NarrativeElements `json:"narrative_elements"`
	SocialDynamics    SocialDynamics    `json:"social_dynamics"`
}

// groupAffinity is the affinity threshold for social groups in narrative context.
const groupAffinity = 30

// NarrativeContext combines a world summary sized to a third of maxSize,
// up to three decisions of impact 5 or more and up to three social groups.
// The result is cached.
func (m *Manager) NarrativeContext(maxSize int) NarrativeContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.narrativeContext(maxSize)
}

func (m *Manager) narrativeContext(maxSize int) NarrativeContext {
	if maxSize == 0 {
		maxSize = DefaultNarrativeContextSize
	}
	if c, ok := cached[NarrativeContext](m.cache, cacheNarrativeContext, maxSize, nil); ok {
		return c
	}

	c := NarrativeContext{
		WorldState: m.worldSummary(maxSize / 3),
		NarrativeElements: NarrativeElements{
			RecentDecisions: []global.DecisionEntry{},
			Themes:          []string{},
			Tensions:        []string{},
		},
		SocialDynamics: SocialDynamics{Groups: []GroupEntry{}},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(c))

	for _, d := range m.global.Decisions("", 5, 3) {
		entry := global.DecisionEntry{Description: d.Description, Rationale: d.Rationale}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		c.NarrativeElements.RecentDecisions = append(c.NarrativeElements.RecentDecisions, entry)
	}

	groups := m.social.Groups(groupAffinity)
	if len(groups) > 3 {
		groups = groups[:3]
	}
	for _, g := range groups {
		var members []string
		for _, id := range g {
			if name, ok := m.nameOf(id); ok {
				members = append(members, name)
			}
		}
		if len(members) == 0 {
			continue
		}
		entry := GroupEntry{Members: members}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		c.SocialDynamics.Groups = append(c.SocialDynamics.Groups, entry)
	}

	m.cache.put(cacheNarrativeContext, c)
	return c
}
