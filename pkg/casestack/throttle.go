package casestack

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Errors returned by NewThrottle and the RoundTripper it builds.
var (
	ErrMustNotBeZero = errors.New("rate and burst must be positive")
	ErrWaitingFailed = errors.New("waiting for request slot")
	ErrContextEnded  = errors.New("request context done")
)

// rateLimitedTransport holds every outbound request until the limiter
// grants it a slot.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logger  *otelzap.Logger
}

// NewThrottle wraps next so that at most rps requests per second reach it,
// with bursts of up to burst. next defaults to http.DefaultTransport. With a
// nil logger nothing is logged when a request has to wait.
func NewThrottle(rps, burst int, logger *otelzap.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps=%d burst=%d: %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		next = http.DefaultTransport
	}

	return &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logger:  logger,
	}, nil
}

func (t *rateLimitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w before wait: %w", ErrContextEnded, err)
	}

	if err := t.wait(r); err != nil {
		return nil, err
	}

	// Wait can return just as the deadline passes.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w after wait: %w", ErrContextEnded, err)
	}
	return t.next.RoundTrip(r)
}

func (t *rateLimitedTransport) wait(r *http.Request) error {
	ctx := r.Context()
	if t.logger != nil && t.limiter.Tokens() < 1 {
		log := t.logger.Ctx(ctx)
		log.Info("Request rate limited",
			zap.Int("rps", t.rps),
			zap.Int("burst", t.burst),
			zap.String("path", r.URL.Path),
		)
		start := time.Now()
		defer func() {
			log.Info("Request released", zap.Duration("waited", time.Since(start)))
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}
	return nil
}
