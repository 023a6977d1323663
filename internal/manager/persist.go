package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/social"
)

// On-disk layout under <base>/<world id>/.
const (
	GlobalFile = "global_memory.json"
	SocialFile = "social_memory.json"
	LocalDir   = "local"
)

// WorldDir returns the directory holding a world's files.
func WorldDir(baseDir, worldID string) string {
	return filepath.Join(baseDir, worldID)
}

// SaveAll writes the global memory, the social memory and every local
// memory as indented JSON under baseDir/<world id>.
func (m *Manager) SaveAll(baseDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := WorldDir(baseDir, m.worldID)
	if err := os.MkdirAll(filepath.Join(dir, LocalDir), 0o755); err != nil {
		return fmt.Errorf("create world dir: %w", err)
	}
	if err := m.global.SaveFile(filepath.Join(dir, GlobalFile)); err != nil {
		return fmt.Errorf("save global memory: %w", err)
	}
	if err := m.social.SaveFile(filepath.Join(dir, SocialFile)); err != nil {
		return fmt.Errorf("save social memory: %w", err)
	}
	for id, lm := range m.locals {
		if err := lm.SaveFile(filepath.Join(dir, LocalDir, id+".json")); err != nil {
			return fmt.Errorf("save local memory %s: %w", id, err)
		}
	}
	logger.Info("world saved", "world", m.worldID, "dir", dir, "entities", len(m.locals))
	return nil
}

// Load rebuilds a manager from the files written by SaveAll. Missing files
// leave the matching memory empty. Local memory files that cannot be read
// are skipped with a warning. An empty worldName takes the saved name.
func Load(baseDir, worldID, worldName string, opts ...Option) (*Manager, error) {
	dir := WorldDir(baseDir, worldID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("world %s: %w", worldID, ErrWorldNotFound)
		}
		return nil, err
	}

	m := newManager(worldID, worldName, opts)

	gm, err := global.LoadFile(filepath.Join(dir, GlobalFile), global.WithClock(m.now))
	switch {
	case err == nil:
		m.global = gm
		if m.worldName == "" {
			m.worldName = gm.WorldName()
		}
	case errors.Is(err, fs.ErrNotExist):
		m.global = global.New(worldID, worldName, global.WithClock(m.now))
	default:
		return nil, fmt.Errorf("load global memory: %w", err)
	}

	sm, err := social.LoadFile(filepath.Join(dir, SocialFile), m.socialOpts()...)
	switch {
	case err == nil:
		m.social = sm
	case errors.Is(err, fs.ErrNotExist):
		m.social = social.New(worldID, m.socialOpts()...)
	default:
		return nil, fmt.Errorf("load social memory: %w", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, LocalDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read local dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		lm, err := local.LoadFile(filepath.Join(dir, LocalDir, e.Name()), m.localOpts()...)
		if err != nil {
			logger.Warn("skipping unreadable local memory", "world", worldID, "file", e.Name(), "error", err)
			continue
		}
		m.locals[id] = lm
	}

	logger.Info("world loaded", "world", worldID, "entities", len(m.locals))
	return m, nil
}

// Open loads a saved world, or creates an empty one when none was saved.
func Open(baseDir, worldID, worldName string, opts ...Option) (*Manager, error) {
	m, err := Load(baseDir, worldID, worldName, opts...)
	if errors.Is(err, ErrWorldNotFound) {
		return New(worldID, worldName, opts...), nil
	}
	return m, err
}

// Worlds lists the world ids saved under baseDir.
func Worlds(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(baseDir, e.Name(), GlobalFile)); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
