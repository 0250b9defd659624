// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/interview-topics/internal/storage"
	"github.com/jonathan/interview-topics/internal/topics"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseProvider        string `json:"database_provider,omitempty" yaml:"database_provider,omitempty"`
	MongoDBURI              string `json:"mongodb_uri,omitempty" yaml:"mongodb_uri,omitempty"`
	MongoDBDatabase         string `json:"mongodb_database,omitempty" yaml:"mongodb_database,omitempty"`
	FirebaseProjectID       string `json:"firebase_project_id,omitempty" yaml:"firebase_project_id,omitempty"`
	FirebaseCredentialsJSON string `json:"firebase_credentials_json,omitempty" yaml:"firebase_credentials_json,omitempty"`
	Collection              string `json:"collection,omitempty" yaml:"collection,omitempty"`
	ConnectTimeout          string `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"` // e.g. "10s"

	// Generation
	APIKey          string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`     // Gemini model override
	Count           int    `json:"count,omitempty" yaml:"count,omitempty"`
	DifficultyFocus string `json:"difficulty_focus,omitempty" yaml:"difficulty_focus,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"` // text or json
	SentryDSN string `json:"sentry_dsn,omitempty" yaml:"sentry_dsn,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DatabaseProvider: string(storage.ProviderMongo),
		MongoDBDatabase:  storage.DefaultDatabase,
		Collection:       storage.CollectionName,
		ConnectTimeout:   storage.DefaultConnectTimeout.String(),
		Count:            15,
		DifficultyFocus:  topics.DifficultyMixed,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv reads configuration from environment variables. Unset variables leave fields empty.
func FromEnv() Config {
	v := viper.New()
	v.AutomaticEnv()

	return Config{
		DatabaseProvider:        v.GetString(storage.KeyProvider),
		MongoDBURI:              v.GetString(storage.KeyMongoURI),
		MongoDBDatabase:         v.GetString(storage.KeyMongoDatabase),
		FirebaseProjectID:       v.GetString(storage.KeyFirebaseProjectID),
		FirebaseCredentialsJSON: v.GetString(storage.KeyFirebaseCredentialsJSON),
		Collection:              v.GetString("TOPICS_COLLECTION"),
		ConnectTimeout:          v.GetString("CONNECT_TIMEOUT"),
		APIKey:                  v.GetString("GEMINI_API_KEY"),
		Model:                   v.GetString("GEMINI_MODEL"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		LogFormat:               v.GetString("LOG_FORMAT"),
		SentryDSN:               v.GetString("SENTRY_DSN"),
	}
}

// Load builds the effective configuration: environment over file over defaults.
// path may be empty.
func Load(path string) (*Config, error) {
	base := Defaults()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		base = fileCfg.MergeWithDefaults(base)
	}

	env := FromEnv()
	cfg := env.MergeWithDefaults(base)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for provider-specific required keys since those are
// reported by the storage factory.
func (c *Config) Validate() error {
	if c.DatabaseProvider != "" {
		switch storage.Provider(strings.ToUpper(c.DatabaseProvider)) {
		case storage.ProviderMongo, storage.ProviderFirebase:
		default:
			return fmt.Errorf("config error: unsupported database_provider %q", c.DatabaseProvider)
		}
	}

	if c.ConnectTimeout != "" {
		d, err := time.ParseDuration(c.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("config error: invalid connect_timeout %q: %w", c.ConnectTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'connect_timeout' must be positive")
		}
	}

	if c.Count < 0 {
		return fmt.Errorf("config error: 'count' must be non-negative")
	}
	if c.DifficultyFocus != "" && !topics.IsDifficultyFocus(c.DifficultyFocus) {
		return fmt.Errorf("config error: unknown difficulty_focus %q", c.DifficultyFocus)
	}

	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be text or json, got %q", c.LogFormat)
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.DatabaseProvider, defaults.DatabaseProvider)
	fill(&result.MongoDBURI, defaults.MongoDBURI)
	fill(&result.MongoDBDatabase, defaults.MongoDBDatabase)
	fill(&result.FirebaseProjectID, defaults.FirebaseProjectID)
	fill(&result.FirebaseCredentialsJSON, defaults.FirebaseCredentialsJSON)
	fill(&result.Collection, defaults.Collection)
	fill(&result.ConnectTimeout, defaults.ConnectTimeout)
	fill(&result.APIKey, defaults.APIKey)
	fill(&result.Model, defaults.Model)
	fill(&result.DifficultyFocus, defaults.DifficultyFocus)
	fill(&result.LogLevel, defaults.LogLevel)
	fill(&result.LogFormat, defaults.LogFormat)
	fill(&result.SentryDSN, defaults.SentryDSN)

	// Int fields: use default if zero
	if result.Count == 0 {
		result.Count = defaults.Count
	}

	return result
}

// StoreConfig projects the storage settings. An unparsable timeout leaves the
// storage default in place.
func (c *Config) StoreConfig() storage.Config {
	timeout, _ := time.ParseDuration(c.ConnectTimeout)
	return storage.Config{
		Provider:                c.DatabaseProvider,
		MongoURI:                c.MongoDBURI,
		MongoDatabase:           c.MongoDBDatabase,
		FirebaseProjectID:       c.FirebaseProjectID,
		FirebaseCredentialsJSON: c.FirebaseCredentialsJSON,
		Collection:              c.Collection,
		ConnectTimeout:          timeout,
	}
}
