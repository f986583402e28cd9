package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/exchainge/errors"
)

// DefaultFilePermissions is used for config files written by Save.
const DefaultFilePermissions = 0644

// Save writes cfg as TOML to path, creating parent directories. An existing
// file is kept as path.back so a bad edit can be rolled back by hand.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid config")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}

	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".back", existing, DefaultFilePermissions); err != nil {
			return errors.Wrap(err, "failed to back up existing config")
		}
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}
