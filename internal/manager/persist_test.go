package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/social"
	"github.com/rcliao/lorekeeper/internal/store"
)

func TestSaveAllAndLoad(t *testing.T) {
	m, clock := populated(t)
	dir := t.TempDir()
	require.NoError(t, m.SaveAll(dir))

	for _, f := range []string{GlobalFile, SocialFile, "local/A.json", "local/B.json", "local/C.json"} {
		assert.FileExists(t, filepath.Join(dir, "w1", f))
	}

	back, err := Load(dir, "w1", "", WithClock(clock.now))
	require.NoError(t, err)
	assert.Equal(t, "Eldoria", back.WorldName())
	assert.Equal(t, m.Entities(), back.Entities())
	assert.Equal(t, m.WorldSummary(2000), back.WorldSummary(2000))
	assert.Equal(t, memories(t, m, "A"), memories(t, back, "A"))

	back.WithSocial(func(s *social.Memory) {
		assert.Equal(t, 30, s.Affinity("A", "B"))
	})
}

func TestLoadSkipsCorruptLocalFiles(t *testing.T) {
	m, clock := populated(t)
	dir := t.TempDir()
	require.NoError(t, m.SaveAll(dir))

	localDir := filepath.Join(dir, "w1", LocalDir)
	require.NoError(t, os.WriteFile(filepath.Join(localDir, "B.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(localDir, "notes.txt"), []byte("ignored"), 0o644))

	back, err := Load(dir, "w1", "Eldoria", WithClock(clock.now))
	require.NoError(t, err)
	assert.True(t, back.Registered("A"))
	assert.False(t, back.Registered("B"))
	assert.True(t, back.Registered("C"))
}

func TestLoadFailsOnCorruptGlobal(t *testing.T) {
	m, _ := populated(t)
	dir := t.TempDir()
	require.NoError(t, m.SaveAll(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "w1", GlobalFile), []byte("[]"), 0o644))

	_, err := Load(dir, "w1", "Eldoria")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWorldNotFound)
}

func TestLoadMissingWorld(t *testing.T) {
	_, err := Load(t.TempDir(), "nowhere", "")
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestLoadEmptyWorldDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "w1"), 0o755))

	m, err := Load(dir, "w1", "Eldoria")
	require.NoError(t, err)
	assert.Empty(t, m.Entities())
	assert.Equal(t, "Eldoria", m.WorldSummary(0).World.Name)
}

func TestOpenCreatesMissingWorld(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "w1", "Eldoria")
	require.NoError(t, err)
	assert.Equal(t, "w1", m.WorldID())

	worlds, err := Worlds(dir)
	require.NoError(t, err)
	assert.Empty(t, worlds)

	require.NoError(t, m.SaveAll(dir))
	worlds, err = Worlds(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, worlds)
}

func newTestArchive(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotAndRestore(t *testing.T) {
	ctx := context.Background()
	m, clock := populated(t)
	a := newTestArchive(t)

	snaps, err := m.Snapshot(ctx, a, "chapter one")
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	assert.Equal(t, DocGlobal, snaps[0].Doc)
	assert.Equal(t, DocSocial, snaps[1].Doc)
	assert.Equal(t, "local/A", snaps[2].Doc)
	assert.Equal(t, "chapter one", snaps[0].Label)

	m.MemorizeGlobalEvent(GlobalEventParams{Description: "The harbor is rebuilt", Importance: 8})
	_, err = m.Snapshot(ctx, a, "chapter two")
	require.NoError(t, err)

	back, err := Restore(ctx, a, "w1", "", WithClock(clock.now))
	require.NoError(t, err)
	assert.Equal(t, "Eldoria", back.WorldName())
	assert.Equal(t, m.Entities(), back.Entities())
	assert.Equal(t, m.WorldSummary(2000), back.WorldSummary(2000))

	hist, err := GlobalHistory(ctx, a, "w1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "chapter two", hist[0].Label)
}

func TestRestoreSkipsCorruptLocal(t *testing.T) {
	ctx := context.Background()
	m, _ := populated(t)
	a := newTestArchive(t)
	_, err := m.Snapshot(ctx, a, "")
	require.NoError(t, err)

	_, err = a.PutSnapshot(ctx, store.PutParams{World: "w1", Doc: "local/B", Content: "garbage"})
	require.NoError(t, err)

	back, err := Restore(ctx, a, "w1", "Eldoria")
	require.NoError(t, err)
	assert.True(t, back.Registered("A"))
	assert.False(t, back.Registered("B"))
}

func TestRestoreMissingWorld(t *testing.T) {
	ctx := context.Background()
	a := newTestArchive(t)

	_, err := Restore(ctx, a, "nowhere", "")
	assert.ErrorIs(t, err, ErrWorldNotFound)
	_, err = GlobalHistory(ctx, a, "nowhere")
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestMaintainerRunOnce(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)
	m.Register("A", "npc", "Alice", 10)
	require.NoError(t, m.WithLocal("A", func(lm *local.Memory) {
		lm.Add(local.AddParams{Description: "trivial", Importance: 2})
	}))
	clock.advance(45 * 24 * time.Hour)

	dir := t.TempDir()
	a := newTestArchive(t)
	mt, err := NewMaintainer(m, MaintenanceConfig{Forget: local.DefaultForgetPolicy(), SaveDir: dir, Archive: a})
	require.NoError(t, err)

	r, err := mt.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1}, r.Forgotten)
	assert.True(t, r.Saved)
	assert.Equal(t, 3, r.Archived)
	assert.FileExists(t, filepath.Join(dir, "w1", GlobalFile))
}

func TestMaintainerSchedule(t *testing.T) {
	m, _ := newTestManager(t)

	mt, err := NewMaintainer(m, MaintenanceConfig{})
	require.NoError(t, err)
	assert.WithinDuration(t, epoch.Add(10*time.Minute), mt.Next(epoch), 0)

	mt, err = NewMaintainer(m, MaintenanceConfig{Schedule: "0 3 * * *"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC), mt.Next(epoch), 0)

	_, err = NewMaintainer(m, MaintenanceConfig{Schedule: "whenever"})
	assert.Error(t, err)
}

func TestMaintainerRunStopsOnCancel(t *testing.T) {
	m, _ := newTestManager(t)
	mt, err := NewMaintainer(m, MaintenanceConfig{Schedule: "@every 1h"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mt.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("maintainer did not stop")
	}
}
