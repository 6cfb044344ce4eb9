package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// CredentialPolicy selects how accounts authenticate: "password"
	// requires a password before the session is usable, "email_only"
	// skips the password stage entirely.
	CredentialPolicy string `env:"CREDENTIAL_POLICY, default=password"`

	// TokenTTLHours bounds session token lifetime.
	TokenTTLHours int `env:"TOKEN_TTL_HOURS, default=72"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=konekta_identity"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// ClientConfig holds the settings for the client-side session runtime: where
// the remote identity service lives and where local credentials persist.
type ClientConfig struct {
	APIBaseURL       string `env:"API_BASE_URL, default=http://localhost:8080"`
	StorePath        string `env:"STORE_PATH,   default=identity.db"`
	CredentialPolicy string `env:"CREDENTIAL_POLICY, default=password"`
	LogLevel         string `env:"LOG_LEVEL,    default=info"`
	SyncIntervalSec  int    `env:"SYNC_INTERVAL_SEC, default=30"`
}

// Load reads server configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}

// LoadClient reads client runtime configuration from environment variables.
func LoadClient() *ClientConfig {
	var cfg ClientConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
