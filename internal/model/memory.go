// Package model defines the record types shared by the local, global and social memory stores.
package model

import (
	"strings"
	"time"
)

// Entity type buckets used for familiarity and tracking.
const (
	EntityNPCs      = "npcs"
	EntityLocations = "locations"
	EntityItems     = "items"
)

// EntityTypes lists the known entity buckets in a stable order.
var EntityTypes = []string{EntityNPCs, EntityLocations, EntityItems}

// ValidEntityTypes are the buckets familiarity and tracking accept.
var ValidEntityTypes = map[string]bool{
	EntityNPCs:      true,
	EntityLocations: true,
	EntityItems:     true,
}

// Recollection kinds written by the memory manager.
const (
	MemoryEvent       = "event"
	MemoryInteraction = "interaction"
	MemoryObservation = "observation"
	MemoryGlobalEvent = "global_event"
	MemorySelfChange  = "self_change"
)

// DefaultDecayRate is the per-day decay applied to new recollections.
const DefaultDecayRate = 0.1

// Recollection is a single memory owned by one entity.
type Recollection struct {
	ID               string            `json:"id"`
	Description      string            `json:"description"`
	Importance       int               `json:"importance"`
	MemoryType       string            `json:"memory_type"`
	LocationID       string            `json:"location_id,omitempty"`
	InvolvedEntities map[string]string `json:"involved_entities"`
	Timestamp        time.Time         `json:"timestamp"`
	CreatedAt        time.Time         `json:"created_at"`
	Tags             []string          `json:"tags"`
	DecayRate        float64           `json:"decay_rate"`
	RecallCount      int               `json:"recall_count"`
}

// HasTag reports whether the recollection carries tag.
func (r *Recollection) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// KnowledgeEntry is a piece of knowledge filed under a category and key.
type KnowledgeEntry struct {
	Value        string    `json:"value"`
	Importance   int       `json:"importance"`
	LearnedAt    time.Time `json:"learned_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Ref formats an entity reference of the form "type:id".
func Ref(entityType, id string) string {
	return entityType + ":" + id
}

// ParseRef splits a "type:id" reference. ok is false when there is no separator.
func ParseRef(ref string) (entityType, id string, ok bool) {
	entityType, id, ok = strings.Cut(ref, ":")
	return entityType, id, ok
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampImportance limits an importance score to [1, 10].
func ClampImportance(v int) int {
	return Clamp(v, 1, 10)
}
