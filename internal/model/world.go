package model

import "time"

// GlobalEvent is an entry in the world-wide event ledger.
type GlobalEvent struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	Importance       int       `json:"importance"`
	EventType        string    `json:"event_type"`
	LocationID       string    `json:"location_id,omitempty"`
	InvolvedEntities []string  `json:"involved_entities"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// Involves reports whether entityID took part in the event.
func (e *GlobalEvent) Involves(entityID string) bool {
	for _, id := range e.InvolvedEntities {
		if id == entityID {
			return true
		}
	}
	return false
}

// WorldFact is an established fact, unique by text within its category.
type WorldFact struct {
	Fact          string    `json:"fact"`
	Importance    int       `json:"importance"`
	EstablishedAt time.Time `json:"established_at"`
}

// QuestStatus is the lifecycle state of a quest.
type QuestStatus string

const (
	QuestInactive  QuestStatus = "inactive"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// QuestStatuses lists every status in reporting order.
var QuestStatuses = []QuestStatus{QuestActive, QuestCompleted, QuestFailed, QuestInactive}

// ValidQuestStatuses are the statuses a quest may hold.
var ValidQuestStatuses = map[QuestStatus]bool{
	QuestInactive:  true,
	QuestActive:    true,
	QuestCompleted: true,
	QuestFailed:    true,
}

// Quest is a tracked storyline keyed by a caller-supplied id.
type Quest struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Status           QuestStatus   `json:"status"`
	Importance       int           `json:"importance"`
	LocationIDs      []string      `json:"location_ids"`
	InvolvedEntities []string      `json:"involved_entities"`
	Updates          []QuestUpdate `json:"updates"`
	CreatedAt        time.Time     `json:"created_at"`
	LastUpdated      time.Time     `json:"last_updated"`
}

// QuestUpdate is one entry in a quest's history.
type QuestUpdate struct {
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
}

// Quest update types.
const (
	UpdateProgress     = "progress"
	UpdateObstacle     = "obstacle"
	UpdateResolution   = "resolution"
	UpdateStatusChange = "status_change"
)

// NarrativeDecision records a choice made by the narrator about the story.
type NarrativeDecision struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	Rationale    string    `json:"rationale"`
	Alternatives []string  `json:"alternatives"`
	ImpactLevel  int       `json:"impact_level"`
	Timestamp    time.Time `json:"timestamp"`
}

// WorldStateChange is an audit record of one property change on an entity.
type WorldStateChange struct {
	ID         string    `json:"id"`
	EntityID   string    `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	Property   string    `json:"property"`
	OldValue   any       `json:"old_value"`
	NewValue   any       `json:"new_value"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// TimeRange bounds a query by timestamp, both ends inclusive.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r *TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
