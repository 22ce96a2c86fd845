package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

type TokenStoreType string

const (
	TokenStoreSQLite TokenStoreType = "sqlite"
	TokenStoreMemory TokenStoreType = "memory"
	TokenStoreRedis  TokenStoreType = "redis"
)

const (
	defaultDevelopmentURL = "http://localhost:5000/api"
	defaultProductionURL  = "https://videoappbackend-d4d9bhckaxg9eyhn.canadacentral-01.azurewebsites.net/api"
)

// Config holds the configuration for the StreamVibe client.
type Config struct {
	// Env selects which entry of Environments provides the API URL.
	Env Env `yaml:"env" mapstructure:"env"`
	// Environments maps an environment mode to its backend settings.
	Environments map[Env]*EnvironmentConfig `yaml:"environments" mapstructure:"environments"`
	// APIURL overrides the URL selected by Env when set.
	APIURL string `yaml:"api_url" mapstructure:"api_url"`
	// HTTPTimeout bounds every request to the backend.
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// PageSize is the number of gallery items requested per page.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
	// SearchDebounce is the quiet period after the last keystroke before a search is sent.
	SearchDebounce time.Duration `yaml:"search_debounce" mapstructure:"search_debounce"`
	// TokenStore holds the configuration of the persisted bearer token.
	TokenStore *TokenStoreConfig `yaml:"token_store" mapstructure:"token_store"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// EnvironmentConfig holds the backend settings of one environment mode.
type EnvironmentConfig struct {
	// APIURL is the base URL of the backend API, including the /api prefix.
	APIURL string `yaml:"api_url" mapstructure:"api_url"`
}

// TokenStoreConfig holds the configuration of the persisted bearer token.
type TokenStoreConfig struct {
	// Type is the storage backend (sqlite, memory, redis).
	Type TokenStoreType `yaml:"type" mapstructure:"type"`
	// Path is the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// RedisURL is the address of the redis server when Type is redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error; defaults and environment variables apply.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("STREAMVIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.streamvibe")
		v.AddConfigPath("/etc/streamvibe")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// loadDotEnv loads a .env file from the working directory.
// Variables already present in the environment take precedence.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Warn("failed to load .env file", "error", err)
	}
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", string(EnvDevelopment))
	v.SetDefault("environments.development.api_url", defaultDevelopmentURL)
	v.SetDefault("environments.production.api_url", defaultProductionURL)
	v.SetDefault("api_url", "")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("page_size", 10)
	v.SetDefault("search_debounce", "500ms")

	v.SetDefault("token_store.type", string(TokenStoreSQLite))
	v.SetDefault("token_store.path", defaultTokenStorePath())
	v.SetDefault("token_store.redis_url", "")

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "robohash")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

func defaultTokenStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "streamvibe.db")
	}
	return filepath.Join(home, ".streamvibe", "streamvibe.db")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing streamvibe config")
	}

	if c.APIURL == "" {
		env, ok := c.Environments[c.Env]
		if !ok || env == nil {
			return fmt.Errorf("unknown environment %q", c.Env)
		}
		if env.APIURL == "" {
			return fmt.Errorf("API URL is required for environment %q", c.Env)
		}
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be greater than 0")
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be greater than 0")
	}

	if c.TokenStore == nil {
		c.TokenStore = &TokenStoreConfig{Type: TokenStoreSQLite, Path: defaultTokenStorePath()}
	}
	switch c.TokenStore.Type {
	case TokenStoreSQLite:
		if c.TokenStore.Path == "" {
			return fmt.Errorf("token store path is required when the sqlite token store is used")
		}
	case TokenStoreRedis:
		if c.TokenStore.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when the redis token store is used") //nolint:staticcheck
		}
	case TokenStoreMemory:
	default:
		return fmt.Errorf("unknown token store type %q", c.TokenStore.Type)
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Env = Env(strings.ToLower(strings.TrimSpace(string(c.Env))))
	c.APIURL = urlSanitize(c.APIURL)
	for _, env := range c.Environments {
		if env != nil {
			env.APIURL = urlSanitize(env.APIURL)
		}
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// BaseURL returns the API URL selected by the environment mode,
// or the explicit override when one is configured.
func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	if env, ok := c.Environments[c.Env]; ok && env != nil {
		return env.APIURL
	}
	return ""
}
