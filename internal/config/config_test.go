package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-topics/internal/storage"
)

var envKeys = []string{
	"DATABASE_PROVIDER", "MONGODB_URI", "MONGODB_DATABASE", "FIREBASE_PROJECT_ID",
	"FIREBASE_CREDENTIALS_JSON", "TOPICS_COLLECTION", "CONNECT_TIMEOUT", "GEMINI_API_KEY",
	"GEMINI_MODEL", "LOG_LEVEL", "LOG_FORMAT", "SENTRY_DSN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"database_provider": "FIREBASE",
		"firebase_project_id": "prep-project",
		"count": 20,
		"difficulty_focus": "senior"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "FIREBASE", cfg.DatabaseProvider)
	assert.Equal(t, "prep-project", cfg.FirebaseProjectID)
	assert.Equal(t, 20, cfg.Count)
	assert.Equal(t, "senior", cfg.DifficultyFocus)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database_provider: MONGO
mongodb_uri: mongodb://localhost:27017
connect_timeout: 5s
log_format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "MONGO", cfg.DatabaseProvider)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDBURI)
	assert.Equal(t, "5s", cfg.ConnectTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yml", "count: [not, a, number]\n")

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_PROVIDER", "firebase")
	t.Setenv("FIREBASE_PROJECT_ID", "env-project")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	assert.Equal(t, "firebase", cfg.DatabaseProvider)
	assert.Equal(t, "env-project", cfg.FirebaseProjectID)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.MongoDBURI)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
mongodb_uri: mongodb://file:27017
mongodb_database: from_file
count: 8
`)
	t.Setenv("MONGODB_URI", "mongodb://env:27017")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://env:27017", cfg.MongoDBURI)
	assert.Equal(t, "from_file", cfg.MongoDBDatabase)
	assert.Equal(t, 8, cfg.Count)
	assert.Equal(t, "MONGO", cfg.DatabaseProvider)
	assert.Equal(t, "mixed", cfg.DifficultyFocus)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_PROVIDER", "postgres")

	_, err := Load("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database_provider")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "lowercase provider", cfg: Config{DatabaseProvider: "firebase"}},
		{name: "unknown provider", cfg: Config{DatabaseProvider: "redis"}, wantErr: "database_provider"},
		{name: "bad timeout", cfg: Config{ConnectTimeout: "soon"}, wantErr: "connect_timeout"},
		{name: "zero timeout", cfg: Config{ConnectTimeout: "0s"}, wantErr: "connect_timeout"},
		{name: "negative count", cfg: Config{Count: -1}, wantErr: "count"},
		{name: "unknown focus", cfg: Config{DifficultyFocus: "expert"}, wantErr: "difficulty_focus"},
		{name: "bad log level", cfg: Config{LogLevel: "loud"}, wantErr: "loud"},
		{name: "bad log format", cfg: Config{LogFormat: "xml"}, wantErr: "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()
	defaults.MongoDBURI = "mongodb://default"

	partial := Config{
		DatabaseProvider: "FIREBASE",
		Count:            3,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "FIREBASE", merged.DatabaseProvider)
	assert.Equal(t, 3, merged.Count)

	// Default values should fill in empty fields
	assert.Equal(t, "mongodb://default", merged.MongoDBURI)
	assert.Equal(t, "interview_topics", merged.MongoDBDatabase)
	assert.Equal(t, "topics", merged.Collection)
	assert.Equal(t, "text", merged.LogFormat)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{APIKey: "key", Count: 4}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "key", merged.APIKey)
	assert.Equal(t, 4, merged.Count)
}

func TestStoreConfig(t *testing.T) {
	cfg := Config{
		DatabaseProvider:        "FIREBASE",
		FirebaseProjectID:       "prep-project",
		FirebaseCredentialsJSON: `{"type":"service_account"}`,
		Collection:              "topics",
		ConnectTimeout:          "3s",
	}

	assert.Equal(t, storage.Config{
		Provider:                "FIREBASE",
		FirebaseProjectID:       "prep-project",
		FirebaseCredentialsJSON: `{"type":"service_account"}`,
		Collection:              "topics",
		ConnectTimeout:          3 * time.Second,
	}, cfg.StoreConfig())

	cfg.ConnectTimeout = "garbage"
	assert.Zero(t, cfg.StoreConfig().ConnectTimeout)
}
