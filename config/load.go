package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/exchainge/errors"
)

// EnvPrefix is the prefix for environment overrides: EXCHAINGE_DATABASE_PATH
// overrides database.path.
const EnvPrefix = "EXCHAINGE"

// FileName is the config file looked up in the working directory and in
// the user's ~/.exchainge directory.
const FileName = "exchainge.toml"

// New returns a Viper instance with defaults and environment binding but no
// files merged. Tests use it for isolated configuration.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration in precedence order (lowest to highest):
// defaults < ~/.exchainge/exchainge.toml < ./exchainge.toml < explicit path < env vars.
// An explicit path that does not exist is an error; the implicit files are optional.
func Load(explicitPath string) (*Config, error) {
	v := New()

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
	}

	if explicitPath != "" {
		if err := mergeFile(v, explicitPath); err != nil {
			return nil, err
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, ignoring
// other files and environment variables.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}

func mergeFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.MergeInConfig(); err != nil {
		return errors.Wrapf(err, "failed to merge config file %s", path)
	}
	return nil
}

func searchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".exchainge", FileName))
	}
	return append(paths, FileName)
}
