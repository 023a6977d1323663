// Package manager is the single façade over one world's local, global and
// social memories. It fans writes out to every store a logical event
// touches, builds budget-bounded context for narration, caches world-level
// summaries, and persists the whole world to disk or to the SQLite archive.
//
// A Manager is safe for concurrent use. One mutex covers all three stores
// and the cache, so a fan-out write is never observed half applied.
package manager

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/social"
)

var (
	// ErrWorldNotFound is returned by Load and Restore when nothing was saved for the world.
	ErrWorldNotFound = errors.New("world not found")
	// ErrUnknownContextType is returned by PromptContext for an unsupported kind.
	ErrUnknownContextType = errors.New("unknown context type")
	// ErrUnknownEntity is returned when an entity has no registered local memory.
	ErrUnknownEntity = errors.New("unknown entity")
)

const (
	// DefaultMaxMemorySize caps a registered entity's local memory.
	DefaultMaxMemorySize = 100
	// DefaultCacheTTL is how long a cached summary stays valid without writes.
	DefaultCacheTTL = 60 * time.Second
)

// Manager coordinates the memories of one world.
type Manager struct {
	mu sync.Mutex

	worldID   string
	worldName string

	global *global.Memory
	social *social.Memory
	locals map[string]*local.Memory

	cache *summaryCache

	cacheTTL  time.Duration
	decayRate float64
	taxonomy  social.Taxonomy
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source of the manager and every store it owns.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCacheTTL sets the summary cache lifetime. Zero or less disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(m *Manager) { m.cacheTTL = d }
}

// WithTaxonomy sets the hostile and benevolent interaction types.
func WithTaxonomy(t social.Taxonomy) Option {
	return func(m *Manager) { m.taxonomy = t }
}

// WithDecayRate sets the decay rate given to new recollections.
func WithDecayRate(rate float64) Option {
	return func(m *Manager) { m.decayRate = rate }
}

func newManager(worldID, worldName string, opts []Option) *Manager {
	m := &Manager{
		worldID:   worldID,
		worldName: worldName,
		locals:    map[string]*local.Memory{},
		cacheTTL:  DefaultCacheTTL,
		taxonomy:  social.DefaultTaxonomy(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.cache = newSummaryCache(m.cacheTTL, m.now)
	return m
}

// New creates a manager with empty memories for a world.
func New(worldID, worldName string, opts ...Option) *Manager {
	m := newManager(worldID, worldName, opts)
	m.global = global.New(worldID, worldName, global.WithClock(m.now))
	m.social = social.New(worldID, m.socialOpts()...)
	return m
}

func (m *Manager) socialOpts() []social.Option {
	return []social.Option{social.WithClock(m.now), social.WithTaxonomy(m.taxonomy)}
}

func (m *Manager) localOpts() []local.Option {
	opts := []local.Option{local.WithClock(m.now)}
	if m.decayRate > 0 {
		opts = append(opts, local.WithDecayRate(m.decayRate))
	}
	return opts
}

// WorldID returns the world id.
func (m *Manager) WorldID() string { return m.worldID }

// WorldName returns the world name.
func (m *Manager) WorldName() string { return m.worldName }

// Register creates the local memory of an entity, replacing any previous one.
// A maxSize of zero or less uses DefaultMaxMemorySize.
func (m *Manager) Register(entityID, entityType, entityName string, maxSize int) local.EntityInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxSize <= 0 {
		maxSize = DefaultMaxMemorySize
	}
	lm := local.New(entityID, entityType, entityName, maxSize, m.localOpts()...)
	m.locals[entityID] = lm
	m.cache.invalidate()
	logger.Debug("entity registered", "world", m.worldID, "entity", entityID, "type", entityType)
	return lm.Info()
}

// Registered reports whether an entity has a local memory.
func (m *Manager) Registered(entityID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locals[entityID]
	return ok
}

// Entities lists the registered entities ordered by id.
func (m *Manager) Entities() []local.EntityInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]local.EntityInfo, 0, len(m.locals))
	for _, lm := range m.locals {
		out = append(out, lm.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithLocal runs fn on an entity's local memory under the manager lock.
func (m *Manager) WithLocal(entityID string, fn func(*local.Memory)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lm, ok := m.locals[entityID]
	if !ok {
		return ErrUnknownEntity
	}
	fn(lm)
	m.cache.invalidate()
	return nil
}

// WithGlobal runs fn on the global memory under the manager lock.
func (m *Manager) WithGlobal(fn func(*global.Memory)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.global)
	m.cache.invalidate()
}

// WithSocial runs fn on the social memory under the manager lock.
func (m *Manager) WithSocial(fn func(*social.Memory)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.social)
	m.cache.invalidate()
}

// nameOf returns the registered name of an entity.
// EntityName returns the registered name of an entity.
func (m *Manager) EntityName(entityID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nameOf(entityID)
}

func (m *Manager) nameOf(entityID string) (string, bool) {
	if lm, ok := m.locals[entityID]; ok {
		return lm.EntityName(), true
	}
	return "", false
}
