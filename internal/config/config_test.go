package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/casestack/internal/config"
	"github.com/tournevent/casestack/pkg/casestack"
	"go.opentelemetry.io/otel/attribute"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CASESTACK_API_KEY", "")
	t.Setenv("CASESTACK_COMPANY_ID", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 8080, cfg.SandboxPort)
	assert.False(t, cfg.HasCredentials())
	assert.Equal(t, casestack.ProductionEndpoint, cfg.Client().Endpoint())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CASESTACK_API_KEY", "key")
	t.Setenv("CASESTACK_COMPANY_ID", "42")
	t.Setenv("CASESTACK_USE_STAGING", "true")
	t.Setenv("CASESTACK_TIMEOUT", "5s")
	t.Setenv("CASESTACK_RPS", "10")
	t.Setenv("CASESTACK_BURST", "2")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasCredentials())
	client := cfg.Client()
	assert.Equal(t, casestack.StagingEndpoint, client.Endpoint())
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.Equal(t, 10, client.RPS)
	assert.Equal(t, 2, client.Burst)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("CASESTACK_TIMEOUT", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestConfig_Attributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "casestack", Version: "1.2.3", BaseURL: "http://localhost:8080"}

	attrs := cfg.Attributes()
	assert.Contains(t, attrs, attribute.String("service.version", "1.2.3"))
	assert.Contains(t, attrs, attribute.String("casestack.endpoint", "http://localhost:8080"))
	assert.Contains(t, attrs, attribute.Bool("casestack.authenticated", false))
}
