// Package local implements per-entity memory: a bounded list of recollections
// ranked by decay-adjusted importance, a category/key knowledge map, and
// familiarity scores toward other entities.
//
// A Memory is not safe for concurrent use; the manager serializes access.
package local

import (
	"sort"
	"strings"
	"time"

	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/model"
)

// DefaultMaxSize is the recollection capacity used when none is given.
const DefaultMaxSize = 100

// Memory is the local memory of a single entity.
type Memory struct {
	entityID   string
	entityType string
	entityName string
	maxSize    int

	memories  []*model.Recollection
	knowledge map[string]map[string]*model.KnowledgeEntry
	known     map[string]map[string]int

	lastUpdated time.Time
	decayRate   float64
	now         func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithDecayRate sets the per-day decay rate stamped on new recollections.
func WithDecayRate(rate float64) Option {
	return func(m *Memory) { m.decayRate = rate }
}

// New creates an empty local memory. A non-positive maxSize means DefaultMaxSize.
func New(entityID, entityType, entityName string, maxSize int, opts ...Option) *Memory {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	m := &Memory{
		entityID:   entityID,
		entityType: entityType,
		entityName: entityName,
		maxSize:    maxSize,
		knowledge:  map[string]map[string]*model.KnowledgeEntry{},
		known:      newKnown(),
		decayRate:  model.DefaultDecayRate,
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.lastUpdated = m.now()
	return m
}

func newKnown() map[string]map[string]int {
	known := make(map[string]map[string]int, len(model.EntityTypes))
	for _, t := range model.EntityTypes {
		known[t] = map[string]int{}
	}
	return known
}

func (m *Memory) EntityID() string       { return m.entityID }
func (m *Memory) EntityType() string     { return m.entityType }
func (m *Memory) EntityName() string     { return m.entityName }
func (m *Memory) MaxSize() int           { return m.maxSize }
func (m *Memory) Len() int               { return len(m.memories) }
func (m *Memory) LastUpdated() time.Time { return m.lastUpdated }

// SetClock replaces the time source, used after decoding a saved memory.
func (m *Memory) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// AddParams holds parameters for adding a recollection.
type AddParams struct {
	Description      string
	Importance       int
	MemoryType       string // default: event
	LocationID       string
	InvolvedEntities map[string]string // ref -> role
	Timestamp        time.Time         // zero means now
	Tags             []string
}

// Add stores a recollection and returns a copy of it.
//
// Importance is clamped to [1,10]. When the memory exceeds its capacity the
// recollections with the lowest decay-adjusted importance are evicted.
// Involved refs of the form "type:id" raise familiarity with that entity by one.
func (m *Memory) Add(p AddParams) model.Recollection {
	now := m.now()
	memType := p.MemoryType
	if memType == "" {
		memType = model.MemoryEvent
	}
	ts := p.Timestamp
	if ts.IsZero() {
		ts = now
	}
	involved := make(map[string]string, len(p.InvolvedEntities))
	for ref, role := range p.InvolvedEntities {
		involved[ref] = role
	}
	tags := append([]string{}, p.Tags...)

	rec := &model.Recollection{
		ID:               model.NewID(model.PrefixMemory),
		Description:      p.Description,
		Importance:       model.ClampImportance(p.Importance),
		MemoryType:       memType,
		LocationID:       p.LocationID,
		InvolvedEntities: involved,
		Timestamp:        ts,
		CreatedAt:        now,
		Tags:             tags,
		DecayRate:        m.decayRate,
	}

	m.memories = append(m.memories, rec)
	m.sortCanonical()

	if len(m.memories) > m.maxSize {
		ranked := m.ranked(now)
		kept := make([]*model.Recollection, 0, m.maxSize)
		for _, r := range ranked[:m.maxSize] {
			kept = append(kept, r.rec)
		}
		logger.Debug("local memory evicted recollections",
			"entity", m.entityID, "evicted", len(m.memories)-m.maxSize)
		m.memories = kept
		m.sortCanonical()
	}
	m.lastUpdated = now

	refs := make([]string, 0, len(involved))
	for ref := range involved {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if typ, id, ok := model.ParseRef(ref); ok {
			m.UpdateFamiliarity(id, typ, 1)
		}
	}

	return cloneRecollection(rec)
}

// sortCanonical orders recollections by (importance, timestamp) descending.
func (m *Memory) sortCanonical() {
	sort.SliceStable(m.memories, func(i, j int) bool {
		a, b := m.memories[i], m.memories[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		return a.Timestamp.After(b.Timestamp)
	})
}

// Recall reinforces a recollection by bumping its recall count.
func (m *Memory) Recall(id string) (model.Recollection, bool) {
	for _, r := range m.memories {
		if r.ID == id {
			r.RecallCount++
			m.lastUpdated = m.now()
			return cloneRecollection(r), true
		}
	}
	return model.Recollection{}, false
}

// Ranked is a recollection paired with its decay-adjusted importance.
type Ranked struct {
	model.Recollection
	AdjustedImportance float64 `json:"adjusted_importance"`
}

// score returns the importance used for filtering and ranking.
func (r Ranked) score(ignoreDecay bool) float64 {
	if ignoreDecay {
		return float64(r.Importance)
	}
	return r.AdjustedImportance
}

// Filter selects recollections in Get.
type Filter struct {
	MemoryType    string
	MinImportance float64
	LocationID    string
	EntityRef     string // key of InvolvedEntities
	Tags          []string
	TimeRange     *model.TimeRange
	Limit         int  // default 10
	IgnoreDecay   bool // filter and order by raw importance
}

// Get returns recollections matching f. With decay applied (the default)
// results are ordered by adjusted importance, otherwise by raw importance
// and recency.
func (m *Memory) Get(f Filter) []Ranked {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	candidates := m.candidates(f.IgnoreDecay)

	out := []Ranked{}
	for _, r := range candidates {
		if len(out) >= limit {
			break
		}
		if f.MemoryType != "" && r.MemoryType != f.MemoryType {
			continue
		}
		if r.score(f.IgnoreDecay) < f.MinImportance {
			continue
		}
		if f.LocationID != "" && r.LocationID != f.LocationID {
			continue
		}
		if f.EntityRef != "" {
			if _, ok := r.InvolvedEntities[f.EntityRef]; !ok {
				continue
			}
		}
		if !hasAllTags(&r.Recollection, f.Tags) {
			continue
		}
		if f.TimeRange != nil && !f.TimeRange.Contains(r.Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Recent returns up to n recollections, newest first.
func (m *Memory) Recent(n int) []Ranked {
	all := m.candidates(false)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func (m *Memory) candidates(ignoreDecay bool) []Ranked {
	now := m.now()
	if !ignoreDecay {
		ranked := m.ranked(now)
		out := make([]Ranked, len(ranked))
		for i, r := range ranked {
			out[i] = Ranked{Recollection: cloneRecollection(r.rec), AdjustedImportance: r.adjusted}
		}
		return out
	}
	out := make([]Ranked, len(m.memories))
	for i, r := range m.memories {
		out[i] = Ranked{Recollection: cloneRecollection(r), AdjustedImportance: AdjustedImportance(r, now)}
	}
	return out
}

func hasAllTags(r *model.Recollection, tags []string) bool {
	for _, t := range tags {
		if !r.HasTag(t) {
			return false
		}
	}
	return true
}

// SearchParams holds parameters for keyword search.
type SearchParams struct {
	Query         string
	MinImportance float64
	IgnoreDecay   bool
	Limit         int // default 10
}

// Search matches whitespace-separated query terms, case-insensitively, as
// substrings of the description or tags. Results are ranked by the number
// of matching terms, then by importance.
func (m *Memory) Search(p SearchParams) []Ranked {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	keywords := strings.Fields(strings.ToLower(p.Query))
	if len(keywords) == 0 {
		return []Ranked{}
	}

	type hit struct {
		r    Ranked
		hits int
	}
	var matches []hit
	for _, r := range m.candidates(p.IgnoreDecay) {
		n := keywordHits(&r.Recollection, keywords)
		if n == 0 || r.score(p.IgnoreDecay) < p.MinImportance {
			continue
		}
		matches = append(matches, hit{r: r, hits: n})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].hits != matches[j].hits {
			return matches[i].hits > matches[j].hits
		}
		return matches[i].r.score(p.IgnoreDecay) > matches[j].r.score(p.IgnoreDecay)
	})

	out := make([]Ranked, 0, limit)
	for _, h := range matches {
		if len(out) >= limit {
			break
		}
		out = append(out, h.r)
	}
	return out
}

func keywordHits(r *model.Recollection, keywords []string) int {
	desc := strings.ToLower(r.Description)
	tags := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		tags[i] = strings.ToLower(t)
	}
	n := 0
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			n++
			continue
		}
		for _, t := range tags {
			if strings.Contains(t, kw) {
				n++
				break
			}
		}
	}
	return n
}

// ForgetPolicy controls which old recollections may be dropped.
type ForgetPolicy struct {
	ThresholdDays int // only recollections older than this
	MinImportance int // only recollections with raw importance below this
	MaxToForget   int
}

// DefaultForgetPolicy returns the standard forgetting thresholds.
func DefaultForgetPolicy() ForgetPolicy {
	return ForgetPolicy{ThresholdDays: 30, MinImportance: 8, MaxToForget: 10}
}

// Forget removes up to MaxToForget recollections that are older than the
// threshold and below MinImportance, weakest adjusted importance first.
// It returns the number removed.
func (m *Memory) Forget(p ForgetPolicy) int {
	now := m.now()
	cutoff := now.Add(-time.Duration(p.ThresholdDays) * 24 * time.Hour)

	type candidate struct {
		rec      *model.Recollection
		adjusted float64
	}
	var candidates []candidate
	for _, r := range m.memories {
		if r.Timestamp.Before(cutoff) && r.Importance < p.MinImportance {
			candidates = append(candidates, candidate{rec: r, adjusted: AdjustedImportance(r, now)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].adjusted < candidates[j].adjusted
	})
	if len(candidates) > p.MaxToForget {
		candidates = candidates[:max(p.MaxToForget, 0)]
	}
	if len(candidates) == 0 {
		return 0
	}

	drop := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		drop[c.rec.ID] = true
	}
	kept := m.memories[:0]
	for _, r := range m.memories {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.memories = kept
	m.lastUpdated = now
	return len(drop)
}

// UpdateFamiliarity adds delta to the familiarity with an entity, clamped to
// [0,10]. Unknown entity types are ignored and report 0.
func (m *Memory) UpdateFamiliarity(entityID, entityType string, delta int) int {
	bucket, ok := m.known[entityType]
	if !ok {
		return 0
	}
	bucket[entityID] = model.Clamp(bucket[entityID]+delta, 0, 10)
	m.lastUpdated = m.now()
	return bucket[entityID]
}

// Familiarity returns the familiarity with an entity, 0 if unknown.
func (m *Memory) Familiarity(entityID, entityType string) int {
	return m.known[entityType][entityID]
}

// KnownEntities returns familiarity levels of at least minFamiliarity,
// grouped by entity type. An empty entityType means all types.
func (m *Memory) KnownEntities(entityType string, minFamiliarity int) map[string]map[string]int {
	types := model.EntityTypes
	if entityType != "" {
		types = []string{entityType}
	}
	out := map[string]map[string]int{}
	for _, t := range types {
		bucket, ok := m.known[t]
		if !ok {
			continue
		}
		entities := map[string]int{}
		for id, level := range bucket {
			if level >= minFamiliarity {
				entities[id] = level
			}
		}
		if len(entities) > 0 {
			out[t] = entities
		}
	}
	return out
}

func cloneRecollection(r *model.Recollection) model.Recollection {
	c := *r
	c.InvolvedEntities = make(map[string]string, len(r.InvolvedEntities))
	for k, v := range r.InvolvedEntities {
		c.InvolvedEntities[k] = v
	}
	c.Tags = append([]string{}, r.Tags...)
	return c
}
