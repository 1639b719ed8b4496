package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment variable names of the required secrets.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

var requiredSecrets = []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID}

// Secrets holds the opaque credentials the bot needs. Values are validated
// for presence only.
type Secrets struct {
	PracticumToken string `env:"PRACTICUM_TOKEN,required,notEmpty"`
	TelegramToken  string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID,required,notEmpty"`
}

// ConfigurationError is a fatal startup error: missing secrets or an
// invalid config file.
type ConfigurationError struct {
	// Missing lists required environment variables that are unset or empty.
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required environment variables: " + strings.Join(e.Missing, ", ")
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LoadEnvFiles loads the env files that exist into the process environment
// and returns how many were loaded. Variables already set in the
// environment take precedence.
func LoadEnvFiles(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return 0, &ConfigurationError{Err: fmt.Errorf("load env files: %w", err)}
	}
	return len(existing), nil
}

// LoadSecrets reads the required secrets from environ, a KEY -> value map.
// Use env.ToMap(os.Environ()) for the process environment.
func LoadSecrets(environ map[string]string) (Secrets, error) {
	var missing []string
	for _, key := range requiredSecrets {
		if strings.TrimSpace(environ[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Secrets{}, &ConfigurationError{Missing: missing}
	}

	var s Secrets
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Secrets{}, &ConfigurationError{Err: fmt.Errorf("parse secrets: %w", err)}
	}
	return s, nil
}

// LoadProcessSecrets reads the required secrets from the process environment.
func LoadProcessSecrets() (Secrets, error) {
	return LoadSecrets(env.ToMap(os.Environ()))
}

// Redacted returns a copy of s safe to log or print.
func (s Secrets) Redacted() map[string]string {
	return map[string]string{
		EnvPracticumToken: redact(s.PracticumToken),
		EnvTelegramToken:  redact(s.TelegramToken),
		EnvTelegramChatID: redact(s.TelegramChatID),
	}
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", 4) + v[len(v)-2:]
}
