package casestack

import (
	"errors"
	"net/http"
	"time"
)

const (
	ProductionEndpoint = "https://app.casestack.io"
	StagingEndpoint    = "https://staging.casestack.io"

	// APIVersion is sent in the Accept-Version header of every request.
	APIVersion = "1.0.0"

	versionHeader = "Accept-Version"
)

// Config holds CaseStack client configuration. It is fixed once the client
// is constructed.
type Config struct {
	// UseStaging selects StagingEndpoint instead of ProductionEndpoint.
	UseStaging bool `json:"use_staging"`

	// BaseURL overrides the endpoint chosen by UseStaging. Used to point the
	// client at a sandbox.
	BaseURL string `json:"base_url" validate:"omitempty,url"`

	// Timeout bounds every HTTP exchange. Zero means 30 seconds.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`

	UserAgent string `json:"user_agent"`

	// RPS and Burst enable client side rate limiting when RPS is positive.
	RPS   int `json:"rps" validate:"gte=0"`
	Burst int `json:"burst" validate:"gte=0,required_with=RPS"`
}

// Endpoint returns the base URL requests are sent to.
func (c Config) Endpoint() string {
	switch {
	case c.BaseURL != "":
		return c.BaseURL
	case c.UseStaging:
		return StagingEndpoint
	default:
		return ProductionEndpoint
	}
}

// Credentials authenticate API calls. They are available under
// Settings > CaseStack API in the application.
type Credentials struct {
	APIKey    string `json:"key" validate:"required"`
	CompanyID string `json:"company_id" validate:"required"`
}

// Validate checks both values are present.
func (c Credentials) Validate() error {
	return check(c)
}

// IsZero reports whether no credentials were set.
func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.CompanyID == ""
}

// TransportFactory builds the transport used for a call from the endpoint
// and the credentials current at that time.
type TransportFactory func(endpoint string, creds Credentials) (Transport, error)

// Option is a functional option for configuring a Client via New.
type Option func(*options) error

type options struct {
	factory    TransportFactory
	metrics    MetricsRecorder
	httpClient *http.Client
}

// WithTransportFactory replaces the default HTTP transport factory.
func WithTransportFactory(f TransportFactory) Option {
	return func(o *options) error {
		if f == nil {
			return errors.New("transport factory must not be nil")
		}
		o.factory = f
		return nil
	}
}

// WithMetrics records one observation per API call.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithHTTPClient sets the http.Client the default transport sends through.
// The client is copied; Timeout and rate limiting from Config are applied
// to the copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		o.httpClient = hc
		return nil
	}
}
