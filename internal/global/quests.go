package global

import (
	"fmt"
	"slices"
	"sort"

	"github.com/rcliao/lorekeeper/internal/model"
)

// QuestParams holds parameters for creating or replacing a quest.
type QuestParams struct {
	ID               string
	Title            string
	Description      string
	Status           model.QuestStatus // default: inactive
	Importance       int
	LocationIDs      []string
	InvolvedEntities []string
}

// AddQuest creates a quest or replaces the fields of an existing one.
// On replace, empty location and entity lists keep the stored values and
// the update history is preserved.
func (m *Memory) AddQuest(p QuestParams) model.Quest {
	now := m.now()
	status := p.Status
	if status == "" {
		status = model.QuestInactive
	}
	q, ok := m.quests[p.ID]
	if ok {
		q.Title = p.Title
		q.Description = p.Description
		q.Status = status
		q.Importance = model.ClampImportance(p.Importance)
		if len(p.LocationIDs) > 0 {
			q.LocationIDs = append([]string{}, p.LocationIDs...)
		}
		if len(p.InvolvedEntities) > 0 {
			q.InvolvedEntities = append([]string{}, p.InvolvedEntities...)
		}
		q.LastUpdated = now
	} else {
		q = &model.Quest{
			ID:               p.ID,
			Title:            p.Title,
			Description:      p.Description,
			Status:           status,
			Importance:       model.ClampImportance(p.Importance),
			LocationIDs:      append([]string{}, p.LocationIDs...),
			InvolvedEntities: append([]string{}, p.InvolvedEntities...),
			Updates:          []model.QuestUpdate{},
			CreatedAt:        now,
			LastUpdated:      now,
		}
		m.quests[p.ID] = q
	}
	m.lastUpdated = now
	return cloneQuest(q)
}

// AddQuestUpdate appends to a quest's history. It reports false for an
// unknown quest.
func (m *Memory) AddQuestUpdate(questID, description, updateType string) bool {
	q, ok := m.quests[questID]
	if !ok {
		return false
	}
	if updateType == "" {
		updateType = model.UpdateProgress
	}
	now := m.now()
	q.Updates = append(q.Updates, model.QuestUpdate{Description: description, Type: updateType, Timestamp: now})
	q.LastUpdated = now
	m.lastUpdated = now
	return true
}

// UpdateQuestStatus sets a quest's status and appends a status_change
// update. It reports false for an unknown quest.
func (m *Memory) UpdateQuestStatus(questID string, status model.QuestStatus) bool {
	q, ok := m.quests[questID]
	if !ok {
		return false
	}
	now := m.now()
	q.Status = status
	q.Updates = append(q.Updates, model.QuestUpdate{
		Description: fmt.Sprintf("The quest is now '%s'.", status),
		Type:        model.UpdateStatusChange,
		Timestamp:   now,
	})
	q.LastUpdated = now
	m.lastUpdated = now
	return true
}

// Quest returns a copy of a quest by id.
func (m *Memory) Quest(id string) (model.Quest, bool) {
	q, ok := m.quests[id]
	if !ok {
		return model.Quest{}, false
	}
	return cloneQuest(q), true
}

// QuestFilter selects quests in Quests.
type QuestFilter struct {
	Status        model.QuestStatus
	MinImportance int
	LocationID    string
	EntityID      string
}

// Quests returns matching quests ordered by importance descending.
func (m *Memory) Quests(f QuestFilter) []model.Quest {
	out := []model.Quest{}
	for _, q := range m.quests {
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		if q.Importance < f.MinImportance {
			continue
		}
		if f.LocationID != "" && !slices.Contains(q.LocationIDs, f.LocationID) {
			continue
		}
		if f.EntityID != "" && !slices.Contains(q.InvolvedEntities, f.EntityID) {
			continue
		}
		out = append(out, cloneQuest(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// QuestStats counts quests per status.
func (m *Memory) QuestStats() map[model.QuestStatus]int {
	out := make(map[model.QuestStatus]int, len(model.QuestStatuses))
	for _, s := range model.QuestStatuses {
		out[s] = 0
	}
	for _, q := range m.quests {
		if _, ok := out[q.Status]; ok {
			out[q.Status]++
		}
	}
	return out
}

func cloneQuest(q *model.Quest) model.Quest {
	c := *q
	c.LocationIDs = append([]string{}, q.LocationIDs...)
	c.InvolvedEntities = append([]string{}, q.InvolvedEntities...)
	c.Updates = append([]model.QuestUpdate{}, q.Updates...)
	return c
}
