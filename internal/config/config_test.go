package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray .env is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Memory.DecayRate)
	assert.Equal(t, 50, cfg.Memory.MaxMemoryItems)
	assert.Equal(t, 60*time.Second, cfg.Memory.CacheTTL)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.Equal(t, uint32(3), cfg.LLM.Breaker.MaxFailures)
	assert.Equal(t, "saves", cfg.Game.SaveDir)
	assert.True(t, cfg.Logging.NarrativeLog)
	assert.Equal(t, "@every 10m", cfg.Maintenance.Schedule)
	assert.Contains(t, cfg.Social.Hostile, "agression")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := chdir(t)
	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "lorekeeper.yaml")
	yml := `
memory:
  cache_ttl: 5s
  decay_rate: 0.2
llm:
  provider: openai
  model: gpt-4o-mini
  rate:
    per_second: 4
social:
  hostile_types: [ambush]
  benevolent_types: [bless]
maintenance:
  schedule: "@hourly"
  forget:
    threshold_days: 7
logging:
  narrative_log: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Memory.CacheTTL)
	assert.Equal(t, 0.2, cfg.Memory.DecayRate)
	assert.Equal(t, 50, cfg.Memory.MaxMemoryItems, "unset keys keep defaults")
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 4.0, cfg.LLM.Rate.PerSecond)
	assert.Equal(t, 3, cfg.LLM.Rate.Burst)
	assert.Equal(t, []string{"ambush"}, cfg.Social.Hostile)
	assert.Equal(t, "@hourly", cfg.Maintenance.Schedule)
	assert.Equal(t, 7, cfg.Maintenance.Forget.Policy().ThresholdDays)
	assert.Equal(t, 8, cfg.Maintenance.Forget.Policy().MinImportance)
	assert.False(t, cfg.Logging.NarrativeLog)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("LOREKEEPER_SAVE_DIR", "/tmp/worlds")
	t.Setenv("LOREKEEPER_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LOREKEEPER_NARRATIVE_LOG", "false")
	t.Setenv("LOREKEEPER_CACHE_TTL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/worlds", cfg.Game.SaveDir)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.False(t, cfg.Logging.NarrativeLog)
	assert.Equal(t, 2*time.Minute, cfg.Memory.CacheTTL)
}

func TestEnvInvalidBool(t *testing.T) {
	chdir(t)
	t.Setenv("LOREKEEPER_NARRATIVE_LOG", "sometimes")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDotEnvFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOREKEEPER_DB=from-dotenv.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LOREKEEPER_DB") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.DB)
}
