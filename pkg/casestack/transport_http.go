package casestack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"

	// maxErrorBody caps how much of a failed response is logged.
	maxErrorBody = 4 << 10
)

// HTTPTransport is the production implementation of Transport using HTTP.
type HTTPTransport struct {
	baseURL    *url.URL
	creds      Credentials
	userAgent  string
	httpClient *http.Client
	logger     *otelzap.Logger
}

// HTTPTransportConfig holds configuration for the HTTP transport.
type HTTPTransportConfig struct {
	BaseURL     string
	Credentials Credentials
	UserAgent   string

	// HTTPClient is used as is when set. Otherwise a client is built from
	// Timeout, RPS and Burst.
	HTTPClient *http.Client
	Timeout    time.Duration
	RPS        int
	Burst      int

	Logger *otelzap.Logger
}

// NewHTTPTransport creates a new HTTP-based transport.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", ErrInvalidArgument, cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc, err = newHTTPClient(nil, cfg.Timeout, cfg.RPS, cfg.Burst, logger)
		if err != nil {
			return nil, err
		}
	}

	return &HTTPTransport{
		baseURL:    base,
		creds:      cfg.Credentials,
		userAgent:  cfg.UserAgent,
		httpClient: hc,
		logger:     logger,
	}, nil
}

// newHTTPClient copies base, or starts from an empty client, and applies the
// timeout and the optional rate limit.
func newHTTPClient(base *http.Client, timeout time.Duration, rps, burst int, logger *otelzap.Logger) (*http.Client, error) {
	hc := &http.Client{}
	if base != nil {
		copied := *base
		hc = &copied
	}

	if timeout > 0 {
		hc.Timeout = timeout
	} else if hc.Timeout == 0 {
		hc.Timeout = defaultTimeout
	}

	if rps > 0 {
		rt, err := NewThrottle(rps, burst, logger, hc.Transport)
		if err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
		hc.Transport = rt
	}
	return hc, nil
}

// Endpoint returns the normalized base URL.
func (t *HTTPTransport) Endpoint() string {
	return t.baseURL.String()
}

// Execute implements Transport.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request, out any) *Response {
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return &Response{Err: err}
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return &Response{Err: fmt.Errorf("exec http do: %w", err)}
	}
	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			t.logger.Ctx(ctx).Debug("failed to discard unused body", zap.Error(err))
		}
		if err := resp.Body.Close(); err != nil {
			t.logger.Ctx(ctx).Debug("failed to close response body", zap.Error(err))
		}
	}()

	t.logger.Ctx(ctx).Debug("CaseStack API response",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", httpReq.Header.Get(requestIDHeader)),
	)

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Ctx(ctx).Warn("CaseStack API error response",
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return result
	}
	if out == nil {
		return result
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = fmt.Errorf("read body: %w", err)
		return result
	}
	result.Decoded, result.Err = decodeBody(body, req.RootElement, out)
	return result
}

// ExecuteAsync implements AsyncTransport.
func (t *HTTPTransport) ExecuteAsync(ctx context.Context, req *Request, out any) <-chan *Response {
	ch := make(chan *Response, 1)
	go func() {
		ch <- t.Execute(ctx, req, out)
	}()
	return ch
}

func (t *HTTPTransport) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	// Parsing keeps escaped separators such as %2F inside a segment.
	ref, err := url.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse request path: %w", err)
	}
	u := t.baseURL.ResolveReference(ref)

	var body io.Reader
	var contentType string
	switch {
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case len(req.Params) > 0:
		body = strings.NewReader(req.Params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(versionHeader, APIVersion)
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if !t.creds.IsZero() {
		httpReq.SetBasicAuth(t.creds.CompanyID, t.creds.APIKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	return httpReq, nil
}

// decodeBody writes body into out. When the body is an object whose only
// key matches root (ignoring case), the wrapped value is decoded instead; an
// object wrapping a different resource is an error. An empty body decodes
// nothing and is not an error.
func decodeBody(body []byte, root string, out any) (bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return false, nil
	}

	if root != "" && body[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err == nil && len(envelope) == 1 {
			for k, v := range envelope {
				switch {
				case strings.EqualFold(k, root):
					body = v
				case isResourceName(k):
					return false, fmt.Errorf("response holds %s, expected %s", k, root)
				}
			}
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

func isResourceName(name string) bool {
	for _, r := range []string{ResourceCarrier, ResourceCustomer, ResourceShipment, ResourceAddress} {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}
