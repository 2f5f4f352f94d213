package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable pointing at an optional YAML config file
const ConfigPathEnvVar = "CONFIG_PATH"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort      string        `koanf:"server_port"`
	ServerHost      string        `koanf:"server_host"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Database configuration. DBDriver is "postgres" or "sqlite"; DBPath is
	// only used by sqlite.
	DBDriver   string `koanf:"db_driver"`
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_ssl_mode"`
	DBPath     string `koanf:"db_path"`

	// Redis configuration. Redis is optional: without it rate limiting and
	// the short-link cache are disabled.
	RedisHost     string `koanf:"redis_host"`
	RedisPort     string `koanf:"redis_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisURL      string `koanf:"redis_url"`

	// JWT configuration. Tokens are issued by the identity provider and
	// signed with this shared secret.
	JWTSecret string `koanf:"jwt_secret"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Public URLs used for short links and their redirects
	PublicURL       string `koanf:"public_url"`
	FrontendURL     string `koanf:"frontend_url"`
	ShortLinkPrefix string `koanf:"short_link_prefix"`
	NotFoundURL     string `koanf:"not_found_url"`

	// Comma separated list of allowed CORS origins
	CORSOrigins string `koanf:"cors_origins"`

	// Per-user recipe write limits per hour
	RecipeCreationLimit     int `koanf:"recipe_creation_limit"`
	RecipeModificationLimit int `koanf:"recipe_modification_limit"`
}

func defaultConfig() Config {
	return Config{
		ServerPort:              "8080",
		ServerHost:              "0.0.0.0",
		ShutdownTimeout:         5 * time.Second,
		DBDriver:                "postgres",
		DBHost:                  "localhost",
		DBPort:                  "5432",
		DBUser:                  "foodgram",
		DBName:                  "foodgram",
		DBSSLMode:               "disable",
		DBPath:                  "foodgram.db",
		RedisDB:                 0,
		LogLevel:                "info",
		LogFormat:               "json",
		PublicURL:               "http://localhost:8080",
		FrontendURL:             "http://localhost:3000",
		ShortLinkPrefix:         "s",
		CORSOrigins:             "http://localhost:3000",
		RecipeCreationLimit:     30,
		RecipeModificationLimit: 60,
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment variables and finally Docker secrets
func LoadConfig() (*Config, error) {
	environment := GetEnvironment()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// DB_HOST -> db_host
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Secrets never come from the config file. In CI they are plain
	// environment variables, everywhere else Docker secrets win.
	if environment != CI {
		loadSecrets(cfg)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// AllowedOrigins splits CORSOrigins into a list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func loadSecrets(cfg *Config) {
	if v := readSecret("db_password"); v != "" {
		cfg.DBPassword = v
	}
	if v := readSecret("jwt_secret"); v != "" {
		cfg.JWTSecret = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.RedisPassword = v
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
