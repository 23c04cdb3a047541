package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

const DefaultConfigFile = "searxops.toml"

type ConfigManager struct {
	configPath string
	config     *Config
}

// NewConfigManager loads configPath on top of the defaults. A missing file is
// only an error when the path was given explicitly.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFile
	}

	cm := &ConfigManager{
		configPath: configPath,
		config:     Default(),
	}

	if err := cm.Load(); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cm, nil
		}
		return nil, err
	}

	return cm, nil
}

func (cm *ConfigManager) Load() error {
	if _, err := os.Stat(cm.configPath); err != nil {
		return err
	}

	config := Default()
	if _, err := toml.DecodeFile(cm.configPath, config); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", cm.configPath, err)
	}

	cm.config = config
	return nil
}

func (cm *ConfigManager) Save() error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cm.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// ApplyEnv overlays environment overrides. lookup is os.LookupEnv outside tests.
func (cm *ConfigManager) ApplyEnv(lookup func(string) (string, bool)) error {
	c := cm.config

	if v, ok := lookup("SEARXOPS_STACK_DIR"); ok && v != "" {
		c.StackDir = v
	}
	if v, ok := lookup("SEARXOPS_BACKUP_DIR"); ok && v != "" {
		c.BackupDir = v
	}
	if v, ok := lookup("SEARXOPS_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("SEARXOPS_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}

	for _, key := range []string{"CI_MODE", "SEARXOPS_CI_MODE"} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		c.Health.CIMode = enabled
	}

	return nil
}

// NewDefaultManager holds the built-in defaults without reading any file.
func NewDefaultManager(configPath string) *ConfigManager {
	return &ConfigManager{configPath: configPath, config: Default()}
}
