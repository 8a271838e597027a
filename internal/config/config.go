package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/casestack/pkg/casestack"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the CLI.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CaseStack
	APIKey     string        `envconfig:"CASESTACK_API_KEY"`
	CompanyID  string        `envconfig:"CASESTACK_COMPANY_ID"`
	UseStaging bool          `envconfig:"CASESTACK_USE_STAGING" default:"false"`
	BaseURL    string        `envconfig:"CASESTACK_BASE_URL"`
	Timeout    time.Duration `envconfig:"CASESTACK_TIMEOUT" default:"30s"`
	UserAgent  string        `envconfig:"CASESTACK_USER_AGENT" default:"casestack-go"`
	RPS        int           `envconfig:"CASESTACK_RPS" default:"0"`
	Burst      int           `envconfig:"CASESTACK_BURST" default:"0"`

	// Sandbox
	SandboxPort        int    `envconfig:"SANDBOX_PORT" default:"8080"`
	SandboxRequireAuth bool   `envconfig:"SANDBOX_REQUIRE_AUTH" default:"false"`
	SandboxDataDir     string `envconfig:"SANDBOX_DATA_DIR"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"casestack"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Client returns the library configuration.
func (c *Config) Client() casestack.Config {
	return casestack.Config{
		UseStaging: c.UseStaging,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		UserAgent:  c.UserAgent,
		RPS:        c.RPS,
		Burst:      c.Burst,
	}
}

// HasCredentials reports whether both API credentials are set.
func (c *Config) HasCredentials() bool {
	return c.APIKey != "" && c.CompanyID != ""
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("casestack.endpoint", c.Client().Endpoint()),
		attribute.Bool("casestack.staging", c.UseStaging),
		attribute.Bool("casestack.authenticated", c.HasCredentials()),
	}
}
