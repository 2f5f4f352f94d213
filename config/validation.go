package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is usable in the current environment
func ValidateConfig(cfg *Config) error {
	environment := GetEnvironment()

	var errs []string
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg}.Error())
	}

	if cfg.ServerPort == "" {
		add("server_port", "is required")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("db_host", "is required")
		}
		if cfg.DBName == "" {
			add("db_name", "is required")
		}
		if cfg.DBPassword == "" && environment != Development && environment != Test {
			add("db_password", "is required outside development")
		}
	case "sqlite":
		if cfg.DBPath == "" {
			add("db_path", "is required")
		}
	default:
		add("db_driver", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		if environment == CI {
			add("jwt_secret", "JWT_SECRET environment variable is required in CI environment")
		} else {
			add("jwt_secret", "jwt_secret secret is required")
		}
	}

	if cfg.ShortLinkPrefix == "" || strings.Contains(cfg.ShortLinkPrefix, "/") {
		add("short_link_prefix", "must be a single non-empty path segment")
	}

	if cfg.RecipeCreationLimit < 0 || cfg.RecipeModificationLimit < 0 {
		add("recipe_limits", "must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
