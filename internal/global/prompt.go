package global

import (
	"fmt"
	"strings"
)

// Prompt template kinds.
const (
	TemplateNarrative     = "narrative_continuation"
	TemplateQuest         = "quest_generation"
	TemplateWorldBuilding = "world_building"
)

// Templates lists the supported prompt template kinds.
var Templates = []string{TemplateNarrative, TemplateQuest, TemplateWorldBuilding}

// PromptTemplate builds a ready-to-use prompt from the ledger. Unknown kinds
// fall back to narrative continuation.
func (m *Memory) PromptTemplate(kind string) string {
	switch kind {
	case TemplateQuest:
		return m.questTemplate()
	case TemplateWorldBuilding:
		return m.worldBuildingTemplate()
	default:
		return m.narrativeTemplate()
	}
}

func (m *Memory) narrativeTemplate() string {
	s := m.ConciseSummary(1200)

	var b strings.Builder
	fmt.Fprintf(&b, "You are the game master of a world called %q.\n\n", m.worldName)
	b.WriteString("Here is the current state of the world:\n")
	if len(s.Events) > 0 {
		b.WriteString("\nRecent major events:\n")
		for _, e := range s.Events {
			fmt.Fprintf(&b, "- %s\n", e.Description)
		}
	}
	if len(s.Quests) > 0 {
		b.WriteString("\nActive quests:\n")
		writeQuests(&b, s.Quests)
	}
	b.WriteString("\nBuilding on these elements, continue the story coherently.\n")
	b.WriteString("You may introduce new elements, but they must fit logically with the established facts.\n\n")
	b.WriteString("What happens next:\n")
	return b.String()
}

func (m *Memory) questTemplate() string {
	facts := m.Facts("", 7)
	var examples []string
	for _, cat := range m.FactCategories() {
		for i, f := range facts[cat] {
			if i == 2 {
				break
			}
			examples = append(examples, "- "+f.Fact)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a new quest for the world %q based on these established facts:\n\n", m.worldName)
	b.WriteString(strings.Join(examples, "\n"))
	b.WriteString("\n\nThe quest must include:\n")
	b.WriteString("1. A catchy title\n")
	b.WriteString("2. A description of the problem or goal\n")
	b.WriteString("3. The main steps to complete it\n")
	b.WriteString("4. Potential rewards\n\n")
	b.WriteString("New quest:\n")
	return b.String()
}

func (m *Memory) worldBuildingTemplate() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Develop a new aspect of the world %q that has not been explored yet.\n", m.worldName)
	b.WriteString("It can be a region, a tradition, a faction, or a cultural trait.\n\n")
	b.WriteString("Your development must:\n")
	b.WriteString("1. Stay consistent with the existing universe\n")
	b.WriteString("2. Add depth to the world\n")
	b.WriteString("3. Offer opportunities for intrigue\n")
	b.WriteString("4. Be memorable and unique\n\n")
	b.WriteString("New world element:\n")
	return b.String()
}
