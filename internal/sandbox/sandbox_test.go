package sandbox_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/casestack/internal/sandbox"
	"github.com/tournevent/casestack/internal/telemetry"
	"github.com/tournevent/casestack/pkg/casestack"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type fixture struct {
	server  *httptest.Server
	sandbox *sandbox.Server
	metrics *telemetry.Metrics
	client  *casestack.Client
}

func newFixture(t *testing.T, creds casestack.Credentials) *fixture {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	sb, err := sandbox.New(sandbox.Config{Credentials: creds, Gatherer: reg}, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })
	server := httptest.NewServer(sb.Handler())
	t.Cleanup(server.Close)

	client, err := casestack.New(casestack.Config{BaseURL: server.URL}, logger, nil)
	require.NoError(t, err)
	require.NoError(t, client.Authenticate("foo", "foo"))

	return &fixture{server: server, sandbox: sb, metrics: metrics, client: client}
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	got, ok := casestack.StatusCode(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, code, got)
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Accept-Version", casestack.APIVersion)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSandbox_Health(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestSandbox_RequiresVersionHeader(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})

	resp, err := http.Get(f.server.URL + "/api/carrier/foo")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSandbox_Fixtures(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})
	ctx := context.Background()

	carrier, err := f.client.GetCarrier(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", carrier.CarrierID)
	assert.Equal(t, "FOOF", carrier.SCAC)

	customer, err := f.client.GetCustomer(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "C-1000", customer.AccountNumber)

	shipment, err := f.client.GetShipment(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "0", shipment.ShipmentID)
	require.NotNil(t, shipment.Origin)
	assert.Equal(t, "Memphis", shipment.Origin.City)

	address, err := f.client.GetAddress(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "38118", address.PostalCode)

	_, err = f.client.GetCarrier(ctx, "err")
	requireStatus(t, err, http.StatusInternalServerError)

	_, err = f.client.GetCarrier(ctx, "badgateway")
	requireStatus(t, err, http.StatusBadGateway)

	_, err = f.client.GetShipment(ctx, -1)
	requireStatus(t, err, http.StatusInternalServerError)

	_, err = f.client.GetShipment(ctx, -2)
	requireStatus(t, err, http.StatusBadGateway)

	_, err = f.client.GetAddress(ctx, "error")
	requireStatus(t, err, http.StatusInternalServerError)

	_, err = f.client.GetCustomer(ctx, "missing")
	requireStatus(t, err, http.StatusNotFound)
}

func TestSandbox_SaveRoundTrip(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})
	ctx := context.Background()

	carrier, err := f.client.GetCarrier(ctx, "foo")
	require.NoError(t, err)

	carrier.Name = "Foo Freight International"
	carrier.CustomFields = map[string]any{"tier": "gold"}
	require.NoError(t, carrier.Save(ctx))

	reloaded, err := f.client.GetCarrier(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo Freight International", reloaded.Name)
	assert.Equal(t, "gold", reloaded.CustomFields["tier"])

	reloaded.CarrierID = "badgateway"
	err = reloaded.Save(ctx)
	requireStatus(t, err, http.StatusBadGateway)
}

func TestSandbox_ShipmentStatusAndLock(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})
	ctx := context.Background()

	require.NoError(t, f.client.SetShipmentStatus(ctx, 0, casestack.Delivered))
	require.NoError(t, f.client.LockShipment(ctx, 0, true))

	shipment, err := f.client.GetShipment(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Delivered", shipment.Status)
	assert.True(t, shipment.ReadOnly)

	err = f.client.SetShipmentStatus(ctx, -1, casestack.Delivered)
	requireStatus(t, err, http.StatusInternalServerError)

	err = f.client.LockShipment(ctx, -1, true)
	requireStatus(t, err, http.StatusInternalServerError)

	err = f.client.SetShipmentStatus(ctx, 99, casestack.Delivered)
	requireStatus(t, err, http.StatusNotFound)
}

func TestSandbox_ShipmentStatus_InvalidLabel(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})

	req, err := http.NewRequest(http.MethodPut, f.server.URL+"/api/shipment/status/0", strings.NewReader("status=Teleported"))
	require.NoError(t, err)
	req.Header.Set("Accept-Version", casestack.APIVersion)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSandbox_CustomFields(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})
	ctx := context.Background()

	fields, err := casestack.GetCustomFields[casestack.Carrier](ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, "carrier", fields.Parent)
	tier, ok := fields.Field("tier")
	require.True(t, ok)
	assert.Equal(t, "select", tier.Type)

	fields, err = casestack.GetCustomFieldsAsync[casestack.Customer](ctx, f.client).Wait()
	require.NoError(t, err)
	assert.Len(t, fields.Fields, 1)

	resp := f.do(t, http.MethodGet, "/api/customfield/testerror", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/customfield/shipment", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSandbox_AddressIsReadOnly(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})

	resp := f.do(t, http.MethodPut, "/api/address/foo", strings.NewReader(`{"city":"Nowhere"}`))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSandbox_PutRejectsMalformedBody(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})

	resp := f.do(t, http.MethodPut, "/api/customer/foo", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSandbox_BasicAuth(t *testing.T) {
	f := newFixture(t, casestack.Credentials{APIKey: "secret", CompanyID: "acme"})
	ctx := context.Background()

	_, err := f.client.GetCarrier(ctx, "foo")
	requireStatus(t, err, http.StatusUnauthorized)

	require.NoError(t, f.client.Authenticate("secret", "acme"))
	_, err = f.client.GetCarrier(ctx, "foo")
	require.NoError(t, err)
}

func TestSandbox_Metrics(t *testing.T) {
	f := newFixture(t, casestack.Credentials{})
	ctx := context.Background()

	_, err := f.client.GetCarrier(ctx, "foo")
	require.NoError(t, err)
	_, err = f.client.GetCarrier(ctx, "err")
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SandboxRequests.WithLabelValues("carrier", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SandboxRequests.WithLabelValues("carrier", "500")))

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "casestack_sandbox_requests_total")
}

func openStore(t *testing.T, dir string) *sandbox.Store {
	t.Helper()
	store, err := sandbox.OpenStore(dir, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore_SeedAndUpdate(t *testing.T) {
	store := openStore(t, "")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Seed("7", casestack.Shipment{ShipmentID: "7", Reference: "PO-7"}))
	require.NoError(t, store.UpdateShipment("7", func(s *casestack.Shipment) {
		s.SetStatus(casestack.InTransit)
	}))

	raw, err := store.Get(casestack.ResourceShipment, "7")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"In Transit"`)
	assert.Contains(t, string(raw), `"reference":"PO-7"`)

	err = store.UpdateShipment("8", func(*casestack.Shipment) {})
	assert.ErrorIs(t, err, sandbox.ErrNotFound)

	_, err = store.Get(casestack.ResourceCarrier, "nope")
	assert.ErrorIs(t, err, sandbox.ErrNotFound)
}

func TestStore_CustomFields(t *testing.T) {
	store := openStore(t, "")
	t.Cleanup(func() { _ = store.Close() })

	fields, err := store.CustomFields("Carrier")
	require.NoError(t, err)
	assert.Len(t, fields.Fields, 2)

	fields, err = store.CustomFields("shipment")
	require.NoError(t, err)
	assert.Equal(t, "shipment", fields.Parent)
	assert.Empty(t, fields.Fields)

	require.NoError(t, store.SetCustomFields("shipment", casestack.CustomFields{
		Parent: "shipment",
		Fields: []casestack.CustomField{{Name: "dock", Type: "text"}},
	}))
	fields, err = store.CustomFields("shipment")
	require.NoError(t, err)
	_, ok := fields.Field("dock")
	assert.True(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir)
	require.NoError(t, store.UpdateShipment("0", func(s *casestack.Shipment) {
		s.SetStatus(casestack.Delivered)
	}))
	require.NoError(t, store.Close())

	store = openStore(t, dir)
	t.Cleanup(func() { _ = store.Close() })

	raw, err := store.Get(casestack.ResourceShipment, "0")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"Delivered"`)

	_, err = store.Get(casestack.ResourceCarrier, "foo")
	assert.NoError(t, err)
}
