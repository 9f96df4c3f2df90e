package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"pairstat/internal/errors"
	"pairstat/internal/stats"
)

var validate = validator.New()

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds report storage settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL    string
	Driver string
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `validate:"required,numeric"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// AnalysisConfig holds the knobs of the statistical pipeline
type AnalysisConfig struct {
	TimeBudgetSeconds float64  `validate:"gt=0"`
	ConditionA        string   `validate:"required"`
	ConditionB        string   `validate:"required,nefield=ConditionA"`
	ReferenceCategory string   `validate:"required"`
	Categories        []string `validate:"dive,required"`
	AliasFile         string
	Distributions     string
	NormalityAlpha    float64 `validate:"gt=0,lt=1"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:    getEnvOrDefault("DATABASE_URL", ""),
			Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Analysis: loadAnalysisConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		TimeBudgetSeconds: getEnvFloatOrDefault("TIME_BUDGET_SECONDS", 120),
		ConditionA:        getEnvOrDefault("CONDITION_A", "C1"),
		ConditionB:        getEnvOrDefault("CONDITION_B", "C2"),
		ReferenceCategory: getEnvOrDefault("REFERENCE_CATEGORY", "neutral"),
		Categories:        getEnvListOrDefault("CATEGORIES", nil),
		AliasFile:         getEnvOrDefault("ALIAS_FILE", ""),
		Distributions:     getEnvOrDefault("STATS_DISTRIBUTIONS", stats.ApproximateName),
		NormalityAlpha:    getEnvFloatOrDefault("NORMALITY_ALPHA", 0.05),
	}
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return errors.ConfigInvalid(describe(err))
	}
	if _, err := stats.ForName(config.Analysis.Distributions); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// describe names the offending fields of a validation failure
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fe.Namespace() + " failed " + fe.Tag()
	}
	return strings.Join(parts, "; ")
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
