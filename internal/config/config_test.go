package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8080",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		FailPolicy:               FailOpen,
		ImageAnalysisConcurrency: 1,
		ClassifierTimeoutSeconds: 30,
		ImageURLPrefix:           "/uploads/",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateFailPolicy(t *testing.T) {
	c := validConfig()
	c.FailPolicy = FailClosed
	assert.NoError(t, c.Validate())

	c.FailPolicy = "maybe"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateImageSettings(t *testing.T) {
	c := validConfig()
	c.ImageAnalysisConcurrency = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.ImageURLPrefix = "uploads/"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("FAIL_POLICY")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("FAIL_POLICY", " Closed ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, FailClosed, c.FailPolicy)
	assert.Equal(t, 1, c.ImageAnalysisConcurrency)
	assert.Equal(t, "/uploads/", c.ImageURLPrefix)
	assert.Equal(t, 30, c.ClassifierTimeoutSeconds)
}
