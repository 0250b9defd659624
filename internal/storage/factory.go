package storage

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider selects a storage backend.
type Provider string

// Supported providers.
const (
	ProviderMongo    Provider = "MONGO"
	ProviderFirebase Provider = "FIREBASE"
)

// Configuration keys, named after the environment variables that set them.
const (
	KeyProvider                = "DATABASE_PROVIDER"
	KeyMongoURI                = "MONGODB_URI"
	KeyMongoDatabase           = "MONGODB_DATABASE"
	KeyFirebaseProjectID       = "FIREBASE_PROJECT_ID"
	KeyFirebaseCredentialsJSON = "FIREBASE_CREDENTIALS_JSON"
)

// Config carries everything a backend needs. It is passed explicitly; no ambient
// credentials are read by this package.
type Config struct {
	Provider                string
	MongoURI                string
	MongoDatabase           string
	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	Collection              string
	ConnectTimeout          time.Duration
}

// value returns the configured value for a configuration key.
func (c Config) value(key string) string {
	switch key {
	case KeyProvider:
		return c.Provider
	case KeyMongoURI:
		return c.MongoURI
	case KeyMongoDatabase:
		return c.MongoDatabase
	case KeyFirebaseProjectID:
		return c.FirebaseProjectID
	case KeyFirebaseCredentialsJSON:
		return c.FirebaseCredentialsJSON
	}
	return ""
}

func (c Config) collection() string {
	if c.Collection == "" {
		return CollectionName
	}
	return c.Collection
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

// requiredKeys lists the keys each provider cannot run without.
var requiredKeys = map[Provider][]string{
	ProviderMongo:    {KeyMongoURI},
	ProviderFirebase: {KeyFirebaseProjectID},
}

// ProviderName returns the normalized provider tag of cfg. An empty provider means MONGO.
func ProviderName(cfg Config) string {
	name := strings.ToUpper(strings.TrimSpace(cfg.Provider))
	if name == "" {
		return string(ProviderMongo)
	}
	return name
}

func resolveProvider(cfg Config) (Provider, error) {
	provider := Provider(ProviderName(cfg))
	if _, ok := requiredKeys[provider]; !ok {
		return "", &UnsupportedProviderError{Provider: string(provider)}
	}
	return provider, nil
}

// ValidateProviderConfig returns the required keys of the selected provider mapped to
// their values. Every missing key is reported in one *MissingConfigurationError.
func ValidateProviderConfig(cfg Config) (map[string]string, error) {
	provider, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	var missing []string
	for _, key := range requiredKeys[provider] {
		v := strings.TrimSpace(cfg.value(key))
		if v == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}

	if len(missing) > 0 {
		return nil, &MissingConfigurationError{Provider: provider, Keys: missing}
	}
	return values, nil
}

// CreateClient builds the store selected by cfg. It does not connect.
func CreateClient(cfg Config, logger *logrus.Logger) (Store, error) {
	provider, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := ValidateProviderConfig(cfg); err != nil {
		return nil, err
	}

	logOrDiscard(logger).WithField("provider", provider).Info("creating storage client")

	switch provider {
	case ProviderFirebase:
		return NewFirestoreStore(cfg, logger), nil
	default:
		return NewMongoStore(cfg, logger), nil
	}
}
