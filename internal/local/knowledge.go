package local

import (
	"sort"

	"github.com/rcliao/lorekeeper/internal/model"
)

// AddKnowledge files value under category/key.
//
// Re-adding an existing key replaces the value and keeps the higher of the
// two importances. LearnedAt keeps the time of first insertion.
func (m *Memory) AddKnowledge(category, key, value string, importance int) {
	now := m.now()
	importance = model.ClampImportance(importance)

	cat, ok := m.knowledge[category]
	if !ok {
		cat = map[string]*model.KnowledgeEntry{}
		m.knowledge[category] = cat
	}
	if existing, ok := cat[key]; ok {
		existing.Value = value
		existing.Importance = max(existing.Importance, importance)
	} else {
		cat[key] = &model.KnowledgeEntry{
			Value:        value,
			Importance:   importance,
			LearnedAt:    now,
			LastAccessed: now,
		}
	}
	m.lastUpdated = now
}

// Knowledge returns a single value if it exists with at least minImportance.
// A successful read refreshes LastAccessed.
func (m *Memory) Knowledge(category, key string, minImportance int) (string, bool) {
	entry, ok := m.knowledge[category][key]
	if !ok || entry.Importance < minImportance {
		return "", false
	}
	entry.LastAccessed = m.now()
	return entry.Value, true
}

// KnowledgeIn returns every value in category with at least minImportance.
func (m *Memory) KnowledgeIn(category string, minImportance int) map[string]string {
	out := map[string]string{}
	now := m.now()
	for key, entry := range m.knowledge[category] {
		if entry.Importance >= minImportance {
			entry.LastAccessed = now
			out[key] = entry.Value
		}
	}
	return out
}

// AllKnowledge returns every category that has values with at least minImportance.
func (m *Memory) AllKnowledge(minImportance int) map[string]map[string]string {
	out := map[string]map[string]string{}
	for category := range m.knowledge {
		if values := m.KnowledgeIn(category, minImportance); len(values) > 0 {
			out[category] = values
		}
	}
	return out
}

// KnowledgeEntry returns the full entry without touching LastAccessed.
func (m *Memory) KnowledgeEntry(category, key string) (model.KnowledgeEntry, bool) {
	entry, ok := m.knowledge[category][key]
	if !ok {
		return model.KnowledgeEntry{}, false
	}
	return *entry, true
}

// KnowledgeCategories returns the category names in sorted order.
func (m *Memory) KnowledgeCategories() []string {
	out := make([]string, 0, len(m.knowledge))
	for c := range m.knowledge {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
