package global

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/lorekeeper/internal/budget"
	"github.com/rcliao/lorekeeper/internal/model"
)

// WorldState is the unbounded aggregate view of a world.
type WorldState struct {
	WorldID               string                    `json:"world_id"`
	WorldName             string                    `json:"world_name"`
	LastUpdated           time.Time                 `json:"last_updated"`
	TotalEvents           int                       `json:"total_events"`
	TotalQuests           int                       `json:"total_quests"`
	QuestStats            map[model.QuestStatus]int `json:"quest_stats"`
	FactCategories        []string                  `json:"fact_categories"`
	TrackedEntitiesCount  map[string]int            `json:"tracked_entities_count"`
	RecentImportantEvents []model.GlobalEvent       `json:"recent_important_events"`
	RecentStateChanges    []model.WorldStateChange  `json:"recent_state_changes"`
	ImportantDecisions    []model.NarrativeDecision `json:"important_decisions"`
}

// Summarize returns counts plus the top five events of importance 7 or more,
// the ten latest state changes and the top three decisions of impact 8 or more.
func (m *Memory) Summarize() WorldState {
	return WorldState{
		WorldID:               m.worldID,
		WorldName:             m.worldName,
		LastUpdated:           m.lastUpdated,
		TotalEvents:           len(m.events),
		TotalQuests:           len(m.quests),
		QuestStats:            m.QuestStats(),
		FactCategories:        m.FactCategories(),
		TrackedEntitiesCount:  m.trackedCounts(),
		RecentImportantEvents: m.Events(EventFilter{MinImportance: 7, Limit: 5}),
		RecentStateChanges:    m.StateChanges(ChangeFilter{Limit: 10}),
		ImportantDecisions:    m.Decisions("", 8, 3),
	}
}

// WorldInfo identifies the world in summaries.
type WorldInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LastUpdated time.Time `json:"last_updated"`
}

// EventEntry is the compact form of an event.
type EventEntry struct {
	Description string `json:"description"`
	Importance  int    `json:"importance"`
}

// QuestEntry is the compact form of a quest.
type QuestEntry struct {
	Title       string            `json:"title"`
	Status      model.QuestStatus `json:"status"`
	Description string            `json:"description,omitempty"`
}

// StateCounts are the synthetic statistics closing a concise summary.
type StateCounts struct {
	TotalEvents     int            `json:"total_events"`
	ActiveQuests    int            `json:"active_quests"`
	CompletedQuests int            `json:"completed_quests"`
	TrackedEntities map[string]int `json:"tracked_entities"`
}

// ConciseSummary is a size-bounded digest of the world.
type ConciseSummary struct {
	World  WorldInfo           `json:"world"`
	Events []EventEntry        `json:"events"`
	Facts  map[string][]string `json:"facts"`
	Quests []QuestEntry        `json:"quests"`
	State  StateCounts         `json:"state"`
}

// ConciseSummary packs, within maxSize characters, up to three events of
// importance 7 or more, facts of importance 6 or more per category, and
// active quests of importance 5 or more. State counts are always included.
func (m *Memory) ConciseSummary(maxSize int) ConciseSummary {
	stats := m.QuestStats()
	s := ConciseSummary{
		World:  WorldInfo{ID: m.worldID, Name: m.worldName, LastUpdated: m.lastUpdated},
		Events: []EventEntry{},
		Facts:  map[string][]string{},
		Quests: []QuestEntry{},
		State: StateCounts{
			TotalEvents:     len(m.events),
			ActiveQuests:    stats[model.QuestActive],
			CompletedQuests: stats[model.QuestCompleted],
			TrackedEntities: m.trackedCounts(),
		},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(s))

	for _, e := range m.Events(EventFilter{MinImportance: 7, Limit: 3}) {
		entry := EventEntry{Description: e.Description, Importance: e.Importance}
		if !acc.Open() || !acc.TakeElem(entry) {
			break
		}
		s.Events = append(s.Events, entry)
	}

	texts := map[string][]string{}
	for cat, facts := range m.Facts("", 6) {
		for _, f := range facts {
			texts[cat] = append(texts[cat], f.Fact)
		}
	}
	s.Facts = budget.FillGroups(acc, m.FactCategories(), texts)

	for _, q := range m.Quests(QuestFilter{Status: model.QuestActive, MinImportance: 5}) {
		if !acc.Open() {
			break
		}
		entry := QuestEntry{Title: q.Title, Status: q.Status}
		if q.Description != "" && acc.Fits(len(q.Description)) {
			entry.Description = q.Description
			acc.Reserve(len(q.Description))
		}
		if !acc.TakeElem(entry) {
			break
		}
		s.Quests = append(s.Quests, entry)
	}
	return s
}

// WorldContext renders a concise summary of maxTokens as markdown text.
func (m *Memory) WorldContext(maxTokens int) string {
	s := m.ConciseSummary(budget.Chars(maxTokens))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.World.Name)

	if len(s.Events) > 0 {
		b.WriteString("## Recent major events\n")
		for _, e := range s.Events {
			fmt.Fprintf(&b, "- %s\n", e.Description)
		}
		b.WriteString("\n")
	}
	if len(s.Facts) > 0 {
		b.WriteString("## Established facts\n")
		for _, cat := range m.FactCategories() {
			facts, ok := s.Facts[cat]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "### %s\n", capitalize(cat))
			for _, f := range facts {
				fmt.Fprintf(&b, "- %s\n", f)
			}
			b.WriteString("\n")
		}
	}
	if len(s.Quests) > 0 {
		b.WriteString("## Active quests\n")
		writeQuests(&b, s.Quests)
		b.WriteString("\n")
	}

	b.WriteString("## Current world state\n")
	fmt.Fprintf(&b, "- Total events: %d\n", s.State.TotalEvents)
	fmt.Fprintf(&b, "- Active quests: %d\n", s.State.ActiveQuests)
	fmt.Fprintf(&b, "- Completed quests: %d\n", s.State.CompletedQuests)
	b.WriteString("- Tracked entities:\n")
	for _, t := range model.EntityTypes {
		if n := s.State.TrackedEntities[t]; n > 0 {
			fmt.Fprintf(&b, "  • %s: %d\n", t, n)
		}
	}
	return b.String()
}

func writeQuests(b *strings.Builder, quests []QuestEntry) {
	for _, q := range quests {
		if q.Description != "" {
			fmt.Fprintf(b, "- %s: %s\n", q.Title, q.Description)
		} else {
			fmt.Fprintf(b, "- %s\n", q.Title)
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// QuestHeader identifies the quest in a quest context.
type QuestHeader struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Status      model.QuestStatus `json:"status"`
	Importance  int               `json:"importance"`
	Description string            `json:"description,omitempty"`
}

// UpdateEntry is the compact form of a quest update.
type UpdateEntry struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// EntityRef names an entity involved in a quest.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// QuestContext explains one quest within a size budget.
type QuestContext struct {
	Quest            QuestHeader   `json:"quest"`
	History          []UpdateEntry `json:"history"`
	RelatedEvents    []EventEntry  `json:"related_events"`
	InvolvedEntities []EntityRef   `json:"involved_entities"`
}

// QuestContext packs a quest's header, its history newest first, up to five
// events of type "quest_<id>" and its involved entities into maxSize
// characters. It reports false for an unknown quest.
func (m *Memory) QuestContext(questID string, maxSize int) (QuestContext, bool) {
	q, ok := m.quests[questID]
	if !ok {
		return QuestContext{}, false
	}
	c := QuestContext{
		Quest:            QuestHeader{ID: q.ID, Title: q.Title, Status: q.Status, Importance: q.Importance},
		History:          []UpdateEntry{},
		RelatedEvents:    []EventEntry{},
		InvolvedEntities: []EntityRef{},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(c.Quest))

	if q.Description != "" && acc.Fits(len(q.Description)) {
		c.Quest.Description = q.Description
		acc.Reserve(len(q.Description))
	}

	history := make([]UpdateEntry, 0, len(q.Updates))
	for i := len(q.Updates) - 1; i >= 0; i-- {
		history = append(history, UpdateEntry{Description: q.Updates[i].Description, Type: q.Updates[i].Type})
	}
	c.History = budget.Fill(acc, history)

	var events []EventEntry
	for _, e := range m.Events(EventFilter{EventType: QuestEventType(questID), Limit: 5}) {
		events = append(events, EventEntry{Description: e.Description, Importance: e.Importance})
	}
	c.RelatedEvents = budget.Fill(acc, events)

	refs := make([]EntityRef, len(q.InvolvedEntities))
	for i, id := range q.InvolvedEntities {
		refs[i] = EntityRef{ID: id}
	}
	c.InvolvedEntities = budget.Fill(acc, refs)
	return c, true
}

// QuestEventType is the event type under which quest-specific events are filed.
func QuestEventType(questID string) string {
	return "quest_" + questID
}

// DecisionEntry is the compact form of a narrative decision.
type DecisionEntry struct {
	Description string `json:"description"`
	Rationale   string `json:"rationale,omitempty"`
}

// ArcState summarizes quest pressure in a narrative arc.
type ArcState struct {
	ActiveQuests       int `json:"active_quests"`
	PendingResolutions int `json:"pending_resolutions"`
}

// NarrativeArc is the recent storyline of a world.
type NarrativeArc struct {
	Title              string          `json:"title"`
	Timestamp          time.Time       `json:"timestamp"`
	KeyEvents          []EventEntry    `json:"key_events"`
	NarrativeDecisions []DecisionEntry `json:"narrative_decisions"`
	CurrentState       ArcState        `json:"current_state"`
	EmergingThemes     []string        `json:"emerging_themes"`
}

// defaultThemes stands in until themes are derived from the ledger.
var defaultThemes = []string{"conflict", "exploration", "mystery"}

// NarrativeArc packs up to maxEvents events of importance 6 or more and up
// to three decisions of impact 6 or more into maxSize characters.
func (m *Memory) NarrativeArc(maxEvents, maxSize int) NarrativeArc {
	if maxEvents <= 0 {
		maxEvents = 5
	}
	arc := NarrativeArc{
		Title:              "Recent narrative arc - " + m.worldName,
		Timestamp:          m.now(),
		KeyEvents:          []EventEntry{},
		NarrativeDecisions: []DecisionEntry{},
		EmergingThemes:     append([]string{}, defaultThemes...),
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(arc.Title) + 50)

	for _, e := range m.Events(EventFilter{MinImportance: 6, Limit: maxEvents * 2}) {
		if len(arc.KeyEvents) >= maxEvents {
			break
		}
		entry := EventEntry{Description: e.Description, Importance: e.Importance}
		if !acc.Open() || !acc.TakeJSON(entry) {
			break
		}
		arc.KeyEvents = append(arc.KeyEvents, entry)
	}

	for _, d := range m.Decisions("", 6, 3) {
		if !acc.Open() {
			break
		}
		entry := DecisionEntry{Description: d.Description}
		if d.Rationale != "" && acc.Fits(len(d.Rationale)) {
			entry.Rationale = d.Rationale
			acc.Reserve(len(d.Rationale))
		}
		if !acc.TakeJSON(entry) {
			break
		}
		arc.NarrativeDecisions = append(arc.NarrativeDecisions, entry)
	}

	arc.CurrentState = ArcState{
		ActiveQuests:       len(m.Quests(QuestFilter{Status: model.QuestActive})),
		PendingResolutions: len(m.Quests(QuestFilter{Status: model.QuestActive, MinImportance: 7})),
	}
	return arc
}
