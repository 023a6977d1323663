package local

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/lorekeeper/internal/budget"
	"github.com/rcliao/lorekeeper/internal/model"
)

// EntityInfo identifies the owner of a memory in summaries.
type EntityInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// MemoryEntry is the compact form of a recollection used in summaries.
type MemoryEntry struct {
	ID          string `json:"-"`
	Description string `json:"description"`
	Importance  int    `json:"importance"`
	Type        string `json:"type"`
}

// FamiliarityEntry is a well-known entity listed in a summary.
type FamiliarityEntry struct {
	EntityID    string `json:"entity_id"`
	EntityType  string `json:"entity_type"`
	Familiarity int    `json:"familiarity"`
}

// Summary is a size-bounded digest of a local memory.
type Summary struct {
	Entity              EntityInfo         `json:"entity"`
	Memories            []MemoryEntry      `json:"memories"`
	KnowledgeCategories []string           `json:"knowledge_categories"`
	Relationships       []FamiliarityEntry `json:"relationships"`
}

// Info returns the owner description.
func (m *Memory) Info() EntityInfo {
	return EntityInfo{ID: m.entityID, Type: m.entityType, Name: m.entityName}
}

// EntryOf converts a ranked recollection to its summary form.
func EntryOf(r Ranked) MemoryEntry {
	return MemoryEntry{ID: r.ID, Description: r.Description, Importance: r.Importance, Type: r.MemoryType}
}

// Summarize builds a digest within maxSize characters: up to five important
// recollections, up to three recent ones not already listed, entities with
// familiarity of at least 5, then knowledge category names.
func (m *Memory) Summarize(maxSize int, includeRecent, includeImportant bool) Summary {
	s := Summary{
		Entity:              m.Info(),
		Memories:            []MemoryEntry{},
		KnowledgeCategories: []string{},
		Relationships:       []FamiliarityEntry{},
	}
	acc := budget.New(maxSize)
	acc.Reserve(budget.Size(s))

	seen := map[string]bool{}
	if includeImportant {
		for _, r := range m.Get(Filter{MinImportance: 7, Limit: 5}) {
			entry := EntryOf(r)
			if !acc.Open() || !acc.TakeElem(entry) {
				break
			}
			s.Memories = append(s.Memories, entry)
			seen[entry.ID] = true
		}
	}

	if includeRecent {
		for _, r := range m.Recent(3) {
			if seen[r.ID] {
				continue
			}
			entry := EntryOf(r)
			if !acc.Open() || !acc.TakeElem(entry) {
				break
			}
			s.Memories = append(s.Memories, entry)
			seen[entry.ID] = true
		}
	}

	for _, typ := range model.EntityTypes {
		ids := make([]string, 0, len(m.known[typ]))
		for id := range m.known[typ] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			level := m.known[typ][id]
			if level < 5 {
				continue
			}
			rel := FamiliarityEntry{EntityID: id, EntityType: typ, Familiarity: level}
			if !acc.Open() || !acc.TakeElem(rel) {
				break
			}
			s.Relationships = append(s.Relationships, rel)
		}
	}

	s.KnowledgeCategories = budget.Fill(acc, m.KnowledgeCategories())
	return s
}

// ResponseContext renders the summary as second-person prompt text for the
// entity, within maxTokens.
func (m *Memory) ResponseContext(maxTokens int) string {
	s := m.Summarize(budget.Chars(maxTokens), true, true)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", s.Entity.Name)

	if len(s.Memories) > 0 {
		b.WriteString("\n\nYour notable memories:\n")
		for _, mem := range s.Memories {
			fmt.Fprintf(&b, "- %s\n", mem.Description)
		}
	}
	if len(s.KnowledgeCategories) > 0 {
		b.WriteString("\n\nYou know about: " + strings.Join(s.KnowledgeCategories, ", "))
	}
	if len(s.Relationships) > 0 {
		b.WriteString("\n\nYour important relationships:\n")
		for _, rel := range s.Relationships {
			fmt.Fprintf(&b, "- You know %s a %s entity (ID: %s)\n",
				familiarityLevel(rel.Familiarity), rel.EntityType, rel.EntityID)
		}
	}
	return b.String()
}

func familiarityLevel(f int) string {
	switch {
	case f >= 8:
		return "very well"
	case f >= 5:
		return "well"
	default:
		return "fairly well"
	}
}

// Explanation is a recollection described for prompt use.
type Explanation struct {
	Description string   `json:"description"`
	When        string   `json:"when"`
	Importance  int      `json:"importance"`
	Type        string   `json:"type"`
	Involved    []string `json:"involved,omitempty"`
	Where       string   `json:"where,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Explain searches for recollections related to query (importance at least
// 2) and describes each with a relative time.
func (m *Memory) Explain(query string, maxResults int) []Explanation {
	if maxResults <= 0 {
		maxResults = 3
	}
	now := m.now()
	out := []Explanation{}
	for _, r := range m.Search(SearchParams{Query: query, MinImportance: 2, Limit: maxResults}) {
		e := Explanation{
			Description: r.Description,
			When:        RelativeTime(now, r.Timestamp),
			Importance:  r.Importance,
			Type:        r.MemoryType,
			Where:       r.LocationID,
		}
		for ref, role := range r.InvolvedEntities {
			e.Involved = append(e.Involved, fmt.Sprintf("%s (%s)", ref, role))
		}
		sort.Strings(e.Involved)
		if len(r.Tags) > 0 {
			e.Tags = r.Tags
		}
		out = append(out, e)
	}
	return out
}

// RelativeTime describes how long before now t was.
func RelativeTime(now, t time.Time) string {
	delta := now.Sub(t)
	day := 24 * time.Hour
	switch {
	case delta < time.Hour:
		return "just now"
	case delta < day:
		return "today"
	case delta < 7*day:
		return "this week"
	case delta < 30*day:
		return "this month"
	case delta < 365*day:
		return "this year"
	default:
		return "long ago"
	}
}
