package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/casestack/internal/config"
	"github.com/tournevent/casestack/internal/telemetry"
	"github.com/tournevent/casestack/pkg/casestack"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app holds everything a command needs. It is built on first use and
// shared by every command of a shell session.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	client   *casestack.Client
	registry *prometheus.Registry
	shutdown func(context.Context) error
}

type cli struct {
	app *app
}

func (c *cli) load(ctx context.Context) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	registry := prometheus.NewRegistry()
	client, err := initClient(cfg, logger, telemetry.NewMetrics(registry))
	if err != nil {
		return nil, err
	}

	c.app = &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registry,
		shutdown: shutdown,
	}
	return c.app, nil
}

func (c *cli) close(ctx context.Context) {
	if c.app == nil {
		return
	}
	_ = c.app.shutdown(ctx)
	_ = c.app.logger.Sync()
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

func initClient(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (*casestack.Client, error) {
	var tracer trace.Tracer
	if cfg.OTELEnabled {
		tracer = otel.Tracer(cfg.ServiceName)
	}

	client, err := casestack.New(cfg.Client(), logger, tracer, casestack.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	if cfg.HasCredentials() {
		if err := client.Authenticate(cfg.APIKey, cfg.CompanyID); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("CASESTACK_API_KEY or CASESTACK_COMPANY_ID not set, requests are sent unauthenticated")
	}
	return client, nil
}
