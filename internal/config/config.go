// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FailPolicy names what the moderation pipeline does when every remote classifier is unavailable.
type FailPolicy string

const (
	// FailOpen publishes the listing unless a local veto fired.
	FailOpen FailPolicy = "open"
	// FailClosed holds the listing for manual review.
	FailClosed FailPolicy = "closed"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	ClassifierBaseURL        string     `mapstructure:"CLASSIFIER_BASE_URL"`
	ClassifierAPIKey         string     `mapstructure:"CLASSIFIER_API_KEY"`
	ClassifierTextModel      string     `mapstructure:"CLASSIFIER_TEXT_MODEL"`
	ClassifierVisionModel    string     `mapstructure:"CLASSIFIER_VISION_MODEL"`
	ClassifierTimeoutSeconds int        `mapstructure:"CLASSIFIER_TIMEOUT_SECONDS"`
	FailPolicy               FailPolicy `mapstructure:"FAIL_POLICY"`

	ImageStorageRoot         string `mapstructure:"IMAGE_STORAGE_ROOT"`
	ImageURLPrefix           string `mapstructure:"IMAGE_URL_PREFIX"`
	ImageAnalysisConcurrency int    `mapstructure:"IMAGE_ANALYSIS_CONCURRENCY"`
	PolicyFile               string `mapstructure:"POLICY_FILE"`

	SettingsCacheTTLSeconds int `mapstructure:"SETTINGS_CACHE_TTL_SECONDS"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8380")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "marketgate")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("CLASSIFIER_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("CLASSIFIER_API_KEY", "")
	viper.SetDefault("CLASSIFIER_TEXT_MODEL", "gpt-4o-mini")
	viper.SetDefault("CLASSIFIER_VISION_MODEL", "gpt-4o-mini")
	viper.SetDefault("CLASSIFIER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("FAIL_POLICY", string(FailOpen))
	viper.SetDefault("IMAGE_STORAGE_ROOT", "/var/lib/marketgate/uploads")
	viper.SetDefault("IMAGE_URL_PREFIX", "/uploads/")
	viper.SetDefault("IMAGE_ANALYSIS_CONCURRENCY", 1)
	viper.SetDefault("POLICY_FILE", "")
	viper.SetDefault("SETTINGS_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.FailPolicy = FailPolicy(strings.ToLower(strings.TrimSpace(string(config.FailPolicy))))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.FailPolicy {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("FAIL_POLICY must be %q or %q, got %q", FailOpen, FailClosed, c.FailPolicy)
	}
	if c.ImageAnalysisConcurrency < 1 {
		return errors.New("IMAGE_ANALYSIS_CONCURRENCY must be at least 1")
	}
	if c.ClassifierTimeoutSeconds <= 0 {
		return errors.New("CLASSIFIER_TIMEOUT_SECONDS must be positive")
	}
	if !strings.HasPrefix(c.ImageURLPrefix, "/") {
		return errors.New("IMAGE_URL_PREFIX must start with '/'")
	}

	if c.IsProduction() {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
		if c.ClassifierAPIKey == "" {
			log.Println("WARNING: CLASSIFIER_API_KEY is empty in production; every listing will take the fail policy path.")
		}
		if c.FailPolicy == FailOpen {
			log.Println("WARNING: FAIL_POLICY is 'open'; listings are published when the classifiers are unreachable.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ClassifierTimeout returns the per-call classifier deadline.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutSeconds) * time.Second
}

// SettingsCacheTTL returns how long a settings snapshot may live in Redis.
func (c *Config) SettingsCacheTTL() time.Duration {
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}
