// Package sandbox serves an imitation of the CaseStack API for local
// development and tests. Records live in badger, in memory unless a data
// directory is configured.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/casestack/internal/telemetry"
	"github.com/tournevent/casestack/pkg/casestack"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the sandbox HTTP server.
type Server struct {
	port     int
	creds    casestack.Credentials
	store    *Store
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds sandbox configuration.
type Config struct {
	Port int

	// Credentials, when set, are required as basic auth on every API call.
	Credentials casestack.Credentials

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	// DataDir persists records across restarts. Empty keeps them in memory.
	DataDir string
}

// New creates a new sandbox seeded with the default fixtures. Close must be
// called to release the store.
func New(cfg Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (*Server, error) {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	store, err := OpenStore(cfg.DataDir, logger.Logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		port:     cfg.Port,
		creds:    cfg.Credentials,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}, nil
}

// Close releases the record store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Store returns the backing record store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the sandbox routes.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/customfield/{type}", s.handleCustomFields)
	api.HandleFunc("PUT /api/shipment/status/{id}", s.handleShipmentStatus)
	api.HandleFunc("PUT /api/shipment/readonly/{id}", s.handleShipmentReadOnly)
	api.HandleFunc("GET /api/{resource}/{id}", s.handleGet)
	api.HandleFunc("PUT /api/{resource}/{id}", s.handlePut)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/api/", s.middleware(api))
	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting sandbox", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down sandbox")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// middleware enforces the version header and credentials, and records a log
// entry and a metric per call.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		switch {
		case r.Header.Get("Accept-Version") != casestack.APIVersion:
			writeError(rec, http.StatusBadRequest, "unsupported api version")
		case !s.authorized(r):
			rec.Header().Set("WWW-Authenticate", `Basic realm="casestack"`)
			writeError(rec, http.StatusUnauthorized, "invalid credentials")
		default:
			next.ServeHTTP(rec, r)
		}

		resource := resourceLabel(r)
		if s.metrics != nil {
			s.metrics.RecordSandboxRequest(resource, strconv.Itoa(rec.status))
		}
		s.logger.Ctx(r.Context()).Info("Sandbox request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID),
		)
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.creds.IsZero() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == s.creds.CompanyID && pass == s.creds.APIKey
}
