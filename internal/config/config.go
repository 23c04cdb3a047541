package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aelpxy/searxops/internal/constants"
	"github.com/joho/godotenv"
)

type Config struct {
	StackDir    string `toml:"stack_dir"`
	BackupDir   string `toml:"backup_dir"`
	ComposeFile string `toml:"compose_file"`
	Caddyfile   string `toml:"caddyfile"`
	EnvFile     string `toml:"env_file"`
	SettingsDir string `toml:"settings_dir"`
	HelperImage string `toml:"helper_image"`

	Volumes    []string `toml:"volumes"`
	Containers []string `toml:"containers"`

	KeepSnapshots int           `toml:"keep_snapshots"`
	LockTimeout   time.Duration `toml:"lock_timeout"`

	Ready  ReadyConfig  `toml:"ready"`
	Git    GitConfig    `toml:"git"`
	Health HealthConfig `toml:"health"`
	Log    LogConfig    `toml:"log"`
}

type ReadyConfig struct {
	Attempts int           `toml:"attempts"`
	Interval time.Duration `toml:"interval"`
}

type GitConfig struct {
	Branch string `toml:"branch"`
	Remote string `toml:"remote"`
}

type HealthConfig struct {
	AppURL           string   `toml:"app_url"`
	CacheContainer   string   `toml:"cache_container"`
	CachePingCommand []string `toml:"cache_ping_command"`
	// CacheAddr switches the cache check from docker exec to a direct PING.
	CacheAddr       string   `toml:"cache_addr"`
	CachePassword   string   `toml:"cache_password"`
	ProxyPorts      []string `toml:"proxy_ports"`
	DiskThreshold   float64  `toml:"disk_threshold"`
	MemoryThreshold float64  `toml:"memory_threshold"`
	LogTail         int      `toml:"log_tail"`
	LogThreshold    int      `toml:"log_threshold"`
	LogKeywords     []string `toml:"log_keywords"`
	LogBenign       []string `toml:"log_benign"`
	CIMode          bool     `toml:"ci_mode"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	return &Config{
		StackDir:      ".",
		BackupDir:     constants.DefaultBackupDir,
		ComposeFile:   constants.DefaultComposeFile,
		Caddyfile:     constants.DefaultCaddyfile,
		EnvFile:       constants.DefaultEnvFile,
		SettingsDir:   constants.DefaultSettingsDir,
		HelperImage:   constants.DefaultHelperImage,
		Volumes:       append([]string(nil), constants.DefaultVolumes...),
		Containers:    append([]string(nil), constants.DefaultContainers...),
		KeepSnapshots: constants.DefaultKeepSnapshots,
		LockTimeout:   constants.DefaultLockTimeout,
		Ready: ReadyConfig{
			Attempts: constants.DefaultReadyAttempts,
			Interval: constants.DefaultReadyInterval,
		},
		Git: GitConfig{
			Branch: constants.DefaultGitBranch,
			Remote: constants.DefaultGitRemote,
		},
		Health: HealthConfig{
			AppURL:           constants.DefaultAppURL,
			CacheContainer:   "redis",
			CachePingCommand: append([]string(nil), constants.DefaultCachePingCommand...),
			ProxyPorts:       append([]string(nil), constants.DefaultProxyPorts...),
			DiskThreshold:    constants.DiskUsageThreshold,
			MemoryThreshold:  constants.MemoryUsageThreshold,
			LogTail:          constants.LogTailLines,
			LogThreshold:     constants.LogErrorThreshold,
			LogKeywords:      append([]string(nil), constants.DefaultLogKeywords...),
			LogBenign:        append([]string(nil), constants.DefaultLogBenign...),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	if c.StackDir == "" {
		return fmt.Errorf("stack_dir not configured")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir not configured")
	}
	if c.ComposeFile == "" {
		return fmt.Errorf("compose_file not configured")
	}
	if len(c.Containers) == 0 {
		return fmt.Errorf("at least one container must be configured")
	}
	if c.KeepSnapshots < 1 {
		return fmt.Errorf("keep_snapshots must be at least 1, got %d", c.KeepSnapshots)
	}
	if c.Ready.Attempts < 1 {
		return fmt.Errorf("ready.attempts must be at least 1, got %d", c.Ready.Attempts)
	}
	if c.Ready.Interval < 0 {
		return fmt.Errorf("ready.interval must not be negative")
	}
	if c.Health.DiskThreshold <= 0 || c.Health.DiskThreshold > 100 {
		return fmt.Errorf("health.disk_threshold must be in (0, 100], got %.1f", c.Health.DiskThreshold)
	}
	if c.Health.MemoryThreshold <= 0 || c.Health.MemoryThreshold > 100 {
		return fmt.Errorf("health.memory_threshold must be in (0, 100], got %.1f", c.Health.MemoryThreshold)
	}
	if c.Health.LogTail < 1 {
		return fmt.Errorf("health.log_tail must be at least 1")
	}
	for _, v := range c.Volumes {
		if v == "" {
			return fmt.Errorf("volume names must not be empty")
		}
	}
	return nil
}

// Resolve makes StackDir absolute and BackupDir absolute relative to it.
func (c *Config) Resolve() error {
	stackDir, err := filepath.Abs(c.StackDir)
	if err != nil {
		return fmt.Errorf("failed to resolve stack_dir: %w", err)
	}
	c.StackDir = stackDir

	if !filepath.IsAbs(c.BackupDir) {
		c.BackupDir = filepath.Join(c.StackDir, c.BackupDir)
	}
	c.BackupDir = filepath.Clean(c.BackupDir)
	return nil
}

func (c *Config) StackPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.StackDir, name)
}

func (c *Config) ComposePath() string {
	return c.StackPath(c.ComposeFile)
}

// StackEnv reads the stack's .env file; a missing file yields an empty map.
func (c *Config) StackEnv() (map[string]string, error) {
	path := c.StackPath(c.EnvFile)
	if path == "" {
		return map[string]string{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return env, nil
}
