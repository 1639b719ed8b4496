package commands

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/hay-kot/hwbot/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	LogFormat  string
	ConfigPath string
	EnvFiles   []string

	// Config is loaded in the Before hook. It may be nil or lack secrets
	// when LoadErr is set.
	Config *config.Config
	// LoadErr holds the configuration or secrets failure from the Before
	// hook. Commands that talk to the services must call RequireConfig.
	LoadErr error
}

// RequireConfig returns the startup configuration failure, if any.
func (f *Flags) RequireConfig() error {
	if f.LoadErr != nil {
		return f.LoadErr
	}
	if f.Config == nil {
		return errors.New("configuration not loaded")
	}
	return nil
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "hwbot", "config.yaml")
}

// DefaultEnvFiles returns the env files loaded when --env-file is not set.
func DefaultEnvFiles() []string {
	return []string{".env", ".env.local"}
}
