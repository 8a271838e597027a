// Package casestack provides a typed client for the CaseStack supply chain
// REST API.
package casestack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/casestack/pkg/casestack"

// Client is the CaseStack API client. The endpoint is fixed at
// construction; credentials may be replaced with Authenticate.
//
// Authenticate is not safe to call concurrently with outstanding requests.
// All other methods may be called from multiple goroutines.
type Client struct {
	config     Config
	endpoint   string
	creds      Credentials
	factory    TransportFactory
	httpClient *http.Client
	caller     *caller
	logger     *otelzap.Logger
}

// New creates a new CaseStack client using the HTTP transport.
// A nil tracer disables spans.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) (*Client, error) {
	if err := check(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	httpClient, err := newHTTPClient(o.httpClient, cfg.Timeout, cfg.RPS, cfg.Burst, logger)
	if err != nil {
		return nil, err
	}

	c := newClient(cfg, logger, tracer, o.metrics)
	c.httpClient = httpClient
	c.factory = o.factory
	if c.factory == nil {
		c.factory = c.newHTTPTransport
	}
	return c, nil
}

// NewWithTransport creates a new CaseStack client that sends every request
// through t. This is useful for injecting mock transports in tests.
// Options are validated like in New, but only WithMetrics takes effect.
func NewWithTransport(cfg Config, t Transport, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, invalidArgument("transport")
	}
	if err := check(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	c := newClient(cfg, logger, tracer, o.metrics)
	c.factory = func(string, Credentials) (Transport, error) {
		return t, nil
	}
	return c, nil
}

func newClient(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, metrics MetricsRecorder) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	return &Client{
		config:   cfg,
		endpoint: cfg.Endpoint(),
		logger:   logger,
		caller: &caller{
			logger:  logger,
			tracer:  tracer,
			metrics: metrics,
		},
	}
}

func (c *Client) newHTTPTransport(endpoint string, creds Credentials) (Transport, error) {
	return NewHTTPTransport(HTTPTransportConfig{
		BaseURL:     endpoint,
		Credentials: creds,
		UserAgent:   c.config.UserAgent,
		HTTPClient:  c.httpClient,
		Logger:      c.logger,
	})
}

// APIEndpoint returns the base URL the client talks to.
func (c *Client) APIEndpoint() string {
	return c.endpoint
}

// Authenticate stores the credentials used by every subsequent call.
// Both values must be non-empty; on error the previous credentials are kept.
func (c *Client) Authenticate(apiKey, companyID string) error {
	creds := Credentials{APIKey: apiKey, CompanyID: companyID}
	if err := creds.Validate(); err != nil {
		return err
	}
	c.creds = creds
	return nil
}

// Transport returns a transport configured with the endpoint and the
// credentials currently held by the client.
func (c *Client) Transport() (Transport, error) {
	t, err := c.factory(c.endpoint, c.creds)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	return t, nil
}

// GetCarrier retrieves the carrier identified by carrierID.
func (c *Client) GetCarrier(ctx context.Context, carrierID string) (*Carrier, error) {
	c.logger.Ctx(ctx).Info("Getting CaseStack carrier", zap.String("carrier_id", carrierID))
	return get(ctx, c, ResourceCarrier, carrierID, func(v *Carrier, l record) { v.link = l })
}

// GetCarrierAsync is the asynchronous form of GetCarrier.
func (c *Client) GetCarrierAsync(ctx context.Context, carrierID string) *Future[*Carrier] {
	return getAsync(ctx, c, ResourceCarrier, carrierID, func(v *Carrier, l record) { v.link = l })
}

// GetCustomer retrieves the customer identified by customerID.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	c.logger.Ctx(ctx).Info("Getting CaseStack customer", zap.String("customer_id", customerID))
	return get(ctx, c, ResourceCustomer, customerID, func(v *Customer, l record) { v.link = l })
}

// GetCustomerAsync is the asynchronous form of GetCustomer.
func (c *Client) GetCustomerAsync(ctx context.Context, customerID string) *Future[*Customer] {
	return getAsync(ctx, c, ResourceCustomer, customerID, func(v *Customer, l record) { v.link = l })
}

// GetShipment retrieves the shipment identified by shipmentID.
func (c *Client) GetShipment(ctx context.Context, shipmentID int) (*Shipment, error) {
	c.logger.Ctx(ctx).Info("Getting CaseStack shipment", zap.Int("shipment_id", shipmentID))
	return get(ctx, c, ResourceShipment, strconv.Itoa(shipmentID), func(v *Shipment, l record) { v.link = l })
}

// GetShipmentAsync is the asynchronous form of GetShipment.
func (c *Client) GetShipmentAsync(ctx context.Context, shipmentID int) *Future[*Shipment] {
	return getAsync(ctx, c, ResourceShipment, strconv.Itoa(shipmentID), func(v *Shipment, l record) { v.link = l })
}

// GetAddress retrieves the address identified by addressID.
func (c *Client) GetAddress(ctx context.Context, addressID string) (*Address, error) {
	c.logger.Ctx(ctx).Info("Getting CaseStack address", zap.String("address_id", addressID))
	return get[Address](ctx, c, ResourceAddress, addressID, nil)
}

// GetAddressAsync is the asynchronous form of GetAddress.
func (c *Client) GetAddressAsync(ctx context.Context, addressID string) *Future[*Address] {
	return getAsync[Address](ctx, c, ResourceAddress, addressID, nil)
}

// GetCustomFields retrieves the custom field definitions of T.
func GetCustomFields[T Customizable](ctx context.Context, c *Client) (*CustomFields, error) {
	var zero T
	resource := zero.ResourceName()
	c.logger.Ctx(ctx).Info("Getting CaseStack custom fields", zap.String("parent", resource))

	t, err := c.Transport()
	if err != nil {
		return nil, err
	}
	return fetch[CustomFields](ctx, c.caller, t, customFieldsRequest(resource), resource)
}

// GetCustomFieldsAsync is the asynchronous form of GetCustomFields.
func GetCustomFieldsAsync[T Customizable](ctx context.Context, c *Client) *Future[*CustomFields] {
	var zero T
	resource := zero.ResourceName()

	t, err := c.Transport()
	if err != nil {
		return failedFuture[*CustomFields](err)
	}
	return fetchAsync[CustomFields](ctx, c.caller, t, customFieldsRequest(resource), resource)
}

func customFieldsRequest(resource string) *Request {
	return &Request{
		Path:        "api/customfield/" + strings.ToLower(resource),
		Method:      http.MethodGet,
		Format:      FormatJSON,
		RootElement: resource,
	}
}

// SetShipmentStatus changes the workflow status of a shipment.
//
// Deprecated: set the status on the Shipment and call Save instead.
func (c *Client) SetShipmentStatus(ctx context.Context, shipmentID int, status ShipmentStatus) error {
	c.logger.Ctx(ctx).Info("Setting CaseStack shipment status",
		zap.Int("shipment_id", shipmentID),
		zap.Stringer("status", status),
	)
	return c.SetShipmentStatusAsync(ctx, shipmentID, status).Err()
}

// SetShipmentStatusAsync is the asynchronous form of SetShipmentStatus.
//
// Deprecated: set the status on the Shipment and call SaveAsync instead.
func (c *Client) SetShipmentStatusAsync(ctx context.Context, shipmentID int, status ShipmentStatus) *Future[struct{}] {
	if !status.Valid() {
		return failedFuture[struct{}](fmt.Errorf("%w: unknown shipment status %d", ErrInvalidArgument, int(status)))
	}

	req := &Request{
		Path:   "api/shipment/status/" + strconv.Itoa(shipmentID),
		Method: http.MethodPut,
		Format: FormatJSON,
	}
	req.AddParam("status", status.String())
	return c.update(ctx, req, ResourceShipment)
}

// LockShipment sets or clears the read-only flag of a shipment.
//
// Deprecated: set ReadOnly on the Shipment and call Save instead.
func (c *Client) LockShipment(ctx context.Context, shipmentID int, locked bool) error {
	c.logger.Ctx(ctx).Info("Locking CaseStack shipment",
		zap.Int("shipment_id", shipmentID),
		zap.Bool("locked", locked),
	)
	return c.LockShipmentAsync(ctx, shipmentID, locked).Err()
}

// LockShipmentAsync is the asynchronous form of LockShipment.
//
// Deprecated: set ReadOnly on the Shipment and call SaveAsync instead.
func (c *Client) LockShipmentAsync(ctx context.Context, shipmentID int, locked bool) *Future[struct{}] {
	req := &Request{
		Path:   "api/shipment/readonly/" + strconv.Itoa(shipmentID),
		Method: http.MethodPut,
		Format: FormatJSON,
	}
	req.AddParam("readonly", strconv.FormatBool(locked))
	return c.update(ctx, req, ResourceShipment)
}

func (c *Client) update(ctx context.Context, req *Request, resource string) *Future[struct{}] {
	t, err := c.Transport()
	if err != nil {
		return failedFuture[struct{}](err)
	}

	ctx, done := c.caller.begin(ctx, req, resource)
	ch := executeAsync(ctx, t, req, nil)
	return newFuture(func() (struct{}, error) {
		return struct{}{}, done(<-ch)
	})
}

func (c *Client) link(t Transport) record {
	return record{transport: t, caller: c.caller}
}

// get fetches the record resource/id and attaches the transport it came
// through so it can later be saved.
func get[T any](ctx context.Context, c *Client, resource, id string, attach func(*T, record)) (*T, error) {
	req, err := NewRequest(resource, id, http.MethodGet)
	if err != nil {
		return nil, err
	}
	t, err := c.Transport()
	if err != nil {
		return nil, err
	}

	v, err := fetch[T](ctx, c.caller, t, req, resource)
	if err != nil {
		c.logger.Ctx(ctx).Error("CaseStack API error", zap.String("resource", resource), zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if attach != nil {
		attach(v, c.link(t))
	}
	return v, nil
}

func getAsync[T any](ctx context.Context, c *Client, resource, id string, attach func(*T, record)) *Future[*T] {
	req, err := NewRequest(resource, id, http.MethodGet)
	if err != nil {
		return failedFuture[*T](err)
	}
	t, err := c.Transport()
	if err != nil {
		return failedFuture[*T](err)
	}

	f := fetchAsync[T](ctx, c.caller, t, req, resource)
	if attach == nil {
		return f
	}
	return newFuture(func() (*T, error) {
		v, err := f.Wait()
		if err != nil {
			return nil, err
		}
		attach(v, c.link(t))
		return v, nil
	})
}

func fetch[T any](ctx context.Context, c *caller, t Transport, req *Request, resource string) (*T, error) {
	var out T
	ctx, done := c.begin(ctx, req, resource)
	if err := done(requireBody(t.Execute(ctx, req, &out))); err != nil {
		return nil, err
	}
	return &out, nil
}

func fetchAsync[T any](ctx context.Context, c *caller, t Transport, req *Request, resource string) *Future[*T] {
	var out T
	ctx, done := c.begin(ctx, req, resource)
	ch := executeAsync(ctx, t, req, &out)
	return newFuture(func() (*T, error) {
		if err := done(requireBody(<-ch)); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// requireBody fails a successful response that decoded no record.
func requireBody(resp *Response) *Response {
	if resp != nil && resp.Err == nil && resp.StatusCode == http.StatusOK && !resp.Decoded {
		resp.Err = ErrEmptyResponse
	}
	return resp
}

// caller wraps every transport call with a span, a metric observation and
// response classification.
type caller struct {
	logger  *otelzap.Logger
	tracer  trace.Tracer
	metrics MetricsRecorder
}

// begin starts the span for req. The returned func must be called exactly
// once with the transport response; it returns the classified error.
func (c *caller) begin(ctx context.Context, req *Request, resource string) (context.Context, func(*Response) error) {
	ctx, span := c.tracer.Start(ctx, "casestack."+req.Method+" "+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("casestack.resource", resource),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	start := time.Now()

	return ctx, func(resp *Response) error {
		defer span.End()

		err := HandleResponse(resp, resource)
		var httpErr *HTTPError
		if req.Method != http.MethodGet && errors.As(err, &httpErr) {
			httpErr.Message = "error updating " + resource
		}
		status := "error"
		if resp != nil && resp.StatusCode != 0 {
			status = strconv.Itoa(resp.StatusCode)
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		}
		if c.metrics != nil {
			c.metrics.RecordRequest(resource, req.Method, status, time.Since(start).Seconds())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Ctx(ctx).Debug("CaseStack request failed",
				zap.String("path", req.Path),
				zap.String("status", status),
				zap.Error(err),
			)
		}
		return err
	}
}
