package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"blocksync/pkg/logging"
)

const (
	userConfigDir  = ".config/blocksync"
	configFileName = "config.yaml"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults,
// resolves relative paths against configPath and validates the result.
// A missing file yields the defaults. Validation problems are returned as a
// *ConfigurationErrorCollection.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			collection := NewConfigurationErrorCollection()
			collection.Add(NewConfigurationErrorWithDetails(configFilePath, "", CategoryFile, ErrorTypeParse,
				"config.yaml is not valid YAML", err.Error(),
				[]string{"Durations are strings such as \"250ms\" or \"0s\""}))
			return Config{}, collection
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	config.resolvePaths(configPath)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) resolvePaths(base string) {
	c.FeedsDir = resolve(base, c.FeedsDir)
	if c.Backend.Type == BackendSQLite {
		c.Backend.Path = resolve(base, c.Backend.Path)
	}
	for i := range c.Feeds {
		if c.Feeds[i].File != "" {
			c.Feeds[i].File = resolve(c.FeedsDir, c.Feeds[i].File)
		}
	}
}

func resolve(base, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
