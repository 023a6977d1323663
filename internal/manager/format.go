package manager

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/lorekeeper/internal/budget"
)

// Context kinds accepted by PromptContext.
const (
	ContextNarrative = "narrative"
	ContextEntity    = "entity"
	ContextSummary   = "summary"
)

// ContextKinds lists the supported prompt context kinds.
var ContextKinds = []string{ContextNarrative, ContextEntity, ContextSummary}

// InvalidContextText is returned alongside ErrUnknownContextType.
const InvalidContextText = "Invalid context type."

// DefaultPromptTokens is the token budget used when none is given.
const DefaultPromptTokens = 1000

// PromptContext renders a context as prompt text within maxTokens tokens
// (four characters per token). The entity kind needs an entity id.
func (m *Manager) PromptContext(kind, entityID string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultPromptTokens
	}
	maxSize := budget.Chars(maxTokens)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case kind == ContextNarrative:
		return FormatNarrative(m.narrativeContext(maxSize)), nil
	case kind == ContextEntity && entityID != "":
		c, err := m.entityContext(EntityContextParams{EntityID: entityID, MaxSize: maxSize})
		if err != nil {
			return "", err
		}
		return FormatEntity(c), nil
	case kind == ContextSummary:
		return FormatWorldSummary(m.worldSummary(maxSize)), nil
	}
	return InvalidContextText, fmt.Errorf("%q: %w", kind, ErrUnknownContextType)
}

// FormatNarrative renders a narrative context as markdown.
func FormatNarrative(c NarrativeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# World: %s\n\n", c.WorldState.World.Name)
	writeWorldSections(&b, c.WorldState)

	if ds := c.NarrativeElements.RecentDecisions; len(ds) > 0 {
		b.WriteString("## Recent narrative decisions\n")
		for _, d := range ds {
			fmt.Fprintf(&b, "- %s\n", d.Description)
			if d.Rationale != "" {
				fmt.Fprintf(&b, "  Reason: %s\n", d.Rationale)
			}
		}
		b.WriteString("\n")
	}

	if gs := c.SocialDynamics.Groups; len(gs) > 0 {
		b.WriteString("## Social groups\n")
		for i, g := range gs {
			fmt.Fprintf(&b, "### Group %d\n", i+1)
			b.WriteString("Members: " + strings.Join(g.Members, ", ") + "\n\n")
		}
	}
	return b.String()
}

// FormatEntity renders an entity context as markdown.
func FormatEntity(c EntityContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", c.Entity.Name)
	fmt.Fprintf(&b, "Type: %s\n\n", c.Entity.Type)

	if len(c.Memories) > 0 {
		b.WriteString("## Memories\n")
		for _, mem := range c.Memories {
			fmt.Fprintf(&b, "- %s\n", mem.Description)
		}
		b.WriteString("\n")
	}

	if len(c.Knowledge) > 0 {
		b.WriteString("## Knowledge\n")
		for _, cat := range sortedKeys(c.Knowledge) {
			fmt.Fprintf(&b, "### %s\n", cat)
			items := c.Knowledge[cat]
			for _, k := range sortedKeys(items) {
				fmt.Fprintf(&b, "- %s\n", items[k])
			}
		}
		b.WriteString("\n")
	}

	if len(c.Relationships) > 0 {
		b.WriteString("## Relationships\n")
		for _, r := range c.Relationships {
			fmt.Fprintf(&b, "- %s: %s relationship (%d)\n", r.Entity, affect(r.Affinity), r.Affinity)
		}
		b.WriteString("\n")
	}

	if len(c.GlobalContext) > 0 {
		b.WriteString("## Relevant world events\n")
		for _, e := range c.GlobalContext {
			fmt.Fprintf(&b, "- %s\n", e.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatWorldSummary renders a world summary as markdown.
func FormatWorldSummary(s WorldSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# World summary: %s\n\n", s.World.Name)
	writeWorldSections(&b, s)

	if len(s.KeyEntities) > 0 {
		b.WriteString("## Key characters\n")
		for _, e := range s.KeyEntities {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.Type)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeWorldSections(b *strings.Builder, s WorldSummary) {
	if len(s.GlobalFacts) > 0 {
		b.WriteString("## Established facts\n")
		for _, cat := range sortedKeys(s.GlobalFacts) {
			fmt.Fprintf(b, "### %s\n", cat)
			for _, f := range s.GlobalFacts[cat] {
				fmt.Fprintf(b, "- %s\n", f)
			}
		}
		b.WriteString("\n")
	}

	if len(s.RecentEvents) > 0 {
		b.WriteString("## Recent events\n")
		for _, e := range s.RecentEvents {
			fmt.Fprintf(b, "- %s\n", e.Description)
		}
		b.WriteString("\n")
	}

	if len(s.ActiveQuests) > 0 {
		b.WriteString("## Active quests\n")
		for _, q := range s.ActiveQuests {
			fmt.Fprintf(b, "- %s: %s\n", q.Title, q.Description)
		}
		b.WriteString("\n")
	}
}

func affect(affinity int) string {
	switch {
	case affinity > 20:
		return "positive"
	case affinity < -20:
		return "negative"
	}
	return "neutral"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PromptTemplate returns the global prompt template of the given kind.
func (m *Manager) PromptTemplate(kind string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global.PromptTemplate(kind)
}
