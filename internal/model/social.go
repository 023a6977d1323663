package model

import "time"

// Interaction is one recorded exchange between two entities.
type Interaction struct {
	ID          string         `json:"id"`
	Entity1ID   string         `json:"entity1_id"`
	Entity1Name string         `json:"entity1_name"`
	Entity2ID   string         `json:"entity2_id"`
	Entity2Name string         `json:"entity2_name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Impact      int            `json:"impact"`
	Timestamp   time.Time      `json:"timestamp"`
	LocationID  string         `json:"location_id,omitempty"`
	Witnesses   []string       `json:"witnesses"`
	Context     map[string]any `json:"context"`
}

// Involves reports whether entityID is one of the two principals.
func (i *Interaction) Involves(entityID string) bool {
	return i.Entity1ID == entityID || i.Entity2ID == entityID
}

// WitnessedBy reports whether entityID is listed as a witness.
func (i *Interaction) WitnessedBy(entityID string) bool {
	for _, w := range i.Witnesses {
		if w == entityID {
			return true
		}
	}
	return false
}

// Relationship is one entity's directional view of another.
type Relationship struct {
	Affinity         int            `json:"affinity"`
	InteractionCount int            `json:"interaction_count"`
	LastInteraction  time.Time      `json:"last_interaction"`
	InteractionTypes map[string]int `json:"interaction_types"`
}
