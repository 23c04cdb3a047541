package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"caddy-data", "caddy-config", "redis-data", "searxng-data"}, cfg.Volumes)
	assert.Equal(t, []string{"searxng", "redis", "caddy"}, cfg.Containers)
	assert.Equal(t, 5, cfg.KeepSnapshots)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no containers", func(c *Config) { c.Containers = nil }, "container"},
		{"zero keep", func(c *Config) { c.KeepSnapshots = 0 }, "keep_snapshots"},
		{"zero attempts", func(c *Config) { c.Ready.Attempts = 0 }, "ready.attempts"},
		{"disk threshold too high", func(c *Config) { c.Health.DiskThreshold = 120 }, "disk_threshold"},
		{"memory threshold zero", func(c *Config) { c.Health.MemoryThreshold = 0 }, "memory_threshold"},
		{"empty volume", func(c *Config) { c.Volumes = []string{"a", ""} }, "volume"},
		{"no compose file", func(c *Config) { c.ComposeFile = "" }, "compose_file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "searxops.toml")
	content := `
stack_dir = "/srv/searxng"
volumes = ["redis-data", "searxng-data"]
keep_snapshots = 3

[ready]
attempts = 10
interval = "500ms"

[health]
app_url = "http://127.0.0.1:9090"
ci_mode = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cm, err := NewConfigManager(path)
	require.NoError(t, err)
	cfg := cm.GetConfig()

	assert.Equal(t, "/srv/searxng", cfg.StackDir)
	assert.Equal(t, []string{"redis-data", "searxng-data"}, cfg.Volumes)
	assert.Equal(t, 3, cfg.KeepSnapshots)
	assert.Equal(t, 10, cfg.Ready.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Ready.Interval)
	assert.Equal(t, "http://127.0.0.1:9090", cfg.Health.AppURL)
	assert.True(t, cfg.Health.CIMode)

	// untouched keys keep their defaults
	assert.Equal(t, "docker-compose.yaml", cfg.ComposeFile)
	assert.Equal(t, []string{"searxng", "redis", "caddy"}, cfg.Containers)
}

func TestMissingConfig(t *testing.T) {
	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := NewConfigManager(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("implicit path falls back to defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cm, err := NewConfigManager("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cm.GetConfig())
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "searxops.toml")
	cm := NewDefaultManager(path)
	cm.config.KeepSnapshots = 7
	require.NoError(t, cm.Save())

	loaded, err := NewConfigManager(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.GetConfig().KeepSnapshots)
	assert.Equal(t, Default().Ready.Interval, loaded.GetConfig().Ready.Interval)
}

func TestApplyEnv(t *testing.T) {
	cm := &ConfigManager{config: Default()}
	err := cm.ApplyEnv(envLookup(map[string]string{
		"SEARXOPS_STACK_DIR":  "/opt/stack",
		"SEARXOPS_BACKUP_DIR": "/var/backups/searxng",
		"SEARXOPS_LOG_LEVEL":  "debug",
		"CI_MODE":             "true",
	}))
	require.NoError(t, err)

	cfg := cm.GetConfig()
	assert.Equal(t, "/opt/stack", cfg.StackDir)
	assert.Equal(t, "/var/backups/searxng", cfg.BackupDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Health.CIMode)

	err = cm.ApplyEnv(envLookup(map[string]string{"CI_MODE": "maybe"}))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.StackDir = dir
	require.NoError(t, cfg.Resolve())

	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir)
	assert.Equal(t, filepath.Join(dir, "docker-compose.yaml"), cfg.ComposePath())
	assert.Equal(t, "/etc/caddy/Caddyfile", cfg.StackPath("/etc/caddy/Caddyfile"))

	cfg.BackupDir = "/abs/backups"
	require.NoError(t, cfg.Resolve())
	assert.Equal(t, "/abs/backups", cfg.BackupDir)
}

func TestStackEnv(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.StackDir = dir

	env, err := cfg.StackEnv()
	require.NoError(t, err)
	assert.Empty(t, env)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEARXNG_HOSTNAME=search.example.org\nLETSENCRYPT_EMAIL=ops@example.org\n"), 0600))
	env, err = cfg.StackEnv()
	require.NoError(t, err)
	assert.Equal(t, "search.example.org", env["SEARXNG_HOSTNAME"])
}
