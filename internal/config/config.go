package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env        string    `mapstructure:"env"`         // current application environment (local, dev, prod etc)
	HTTPAddr   string    `mapstructure:"http_addr"`   // listen address for the API server
	CorpusPath string    `mapstructure:"corpus_path"` // path to JSON file with the question corpus
	Storage    Storage   `mapstructure:"storage"`     // blob storage configuration section
	DB         DB        `mapstructure:"database"`    // database configuration section
	Retention  Retention `mapstructure:"retention"`   // stale device cleanup section
}

// Storage selects the key-value blob backend.
type Storage struct {
	Driver     string `mapstructure:"driver"`      // "postgres", "sqlite" or "memory"
	SQLitePath string `mapstructure:"sqlite_path"` // database file for the sqlite driver
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Retention controls the nightly purge of abandoned device data.
type Retention struct {
	Enabled   bool `mapstructure:"enabled"`
	StaleDays int  `mapstructure:"stale_days"` // devices untouched this long are purged
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("corpus_path", "assets/data/questions.json")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "brainbites.db")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.stale_days", 180)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("http_addr", "HTTP_ADDR")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// The connection string is sensitive and only ever comes from the environment.
	cfg.DB.URL = v.GetString("database_url")
	if cfg.Storage.Driver == "postgres" && cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	return &cfg, nil
}
