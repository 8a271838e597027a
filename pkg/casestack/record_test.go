package casestack_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/casestack/pkg/casestack"
)

func TestCarrier_Save(t *testing.T) {
	mock := casestack.NewMockTransport()
	client := newTestClient(t, mock)
	ctx := context.Background()

	carrier, err := client.GetCarrier(ctx, "foo")
	require.NoError(t, err)

	carrier.Name = "ACME Freight"
	require.NoError(t, carrier.Save(ctx))

	req := mock.LastRequest()
	assert.Equal(t, "api/carrier/foo", req.Path)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "Carrier", req.RootElement)
	assert.Same(t, carrier, req.Body)

	assert.Equal(t, "foo", carrier.CarrierID)
	assert.Equal(t, "ACME Freight", carrier.Name)

	// The record stays linked after a successful save.
	require.NoError(t, carrier.Save(ctx))
}

func TestCarrier_Save_BadGateway(t *testing.T) {
	client := newTestClient(t, casestack.NewMockTransport())
	ctx := context.Background()

	carrier, err := client.GetCarrier(ctx, "foo")
	require.NoError(t, err)

	carrier.CarrierID = "badgateway"
	carrier.Name = "unchanged on failure"
	err = carrier.Save(ctx)
	requireHTTPStatus(t, err, http.StatusBadGateway)

	assert.Equal(t, "badgateway", carrier.CarrierID)
	assert.Equal(t, "unchanged on failure", carrier.Name)

	carrier.CarrierID = "err"
	err = carrier.SaveAsync(ctx).Err()
	requireHTTPStatus(t, err, http.StatusInternalServerError)
}

func TestCarrier_SaveAsync(t *testing.T) {
	client := newTestClient(t, casestack.NewMockTransport())
	ctx := context.Background()

	carrier, err := client.GetCarrierAsync(ctx, "foo").Wait()
	require.NoError(t, err)

	carrier.SCAC = "ACMF"
	saved, err := carrier.SaveAsync(ctx).Wait()
	require.NoError(t, err)
	assert.Same(t, carrier, saved)
	assert.Equal(t, "ACMF", saved.SCAC)
}

func TestCustomer_Save(t *testing.T) {
	client := newTestClient(t, casestack.NewMockTransport())
	ctx := context.Background()

	customer, err := client.GetCustomer(ctx, "foo")
	require.NoError(t, err)

	customer.CreditLimit = 2500
	require.NoError(t, customer.Save(ctx))
	assert.Equal(t, float64(2500), customer.CreditLimit)

	customer.CustomerID = "err"
	err = customer.Save(ctx)
	requireHTTPStatus(t, err, http.StatusInternalServerError)

	err = customer.SaveAsync(ctx).Err()
	requireHTTPStatus(t, err, http.StatusInternalServerError)
}

func TestShipment_Save(t *testing.T) {
	mock := casestack.NewMockTransport()
	client := newTestClient(t, mock)
	ctx := context.Background()

	shipment, err := client.GetShipment(ctx, 0)
	require.NoError(t, err)

	shipment.SetStatus(casestack.InTransit)
	shipment.ReadOnly = true
	require.NoError(t, shipment.Save(ctx))

	// An empty response body leaves the local values in place.
	assert.Equal(t, "In Transit", shipment.Status)
	assert.True(t, shipment.ReadOnly)
	assert.Equal(t, "api/shipment/0", mock.LastRequest().Path)

	shipment.ShipmentID = "-2"
	err = shipment.Save(ctx)
	requireHTTPStatus(t, err, http.StatusBadGateway)

	err = shipment.SaveAsync(ctx).Err()
	requireHTTPStatus(t, err, http.StatusBadGateway)
}

func TestSave_NotFetched(t *testing.T) {
	ctx := context.Background()

	carrier := &casestack.Carrier{CarrierID: "foo"}
	assert.ErrorIs(t, carrier.Save(ctx), casestack.ErrNotFetched)
	assert.ErrorIs(t, carrier.Save(ctx), casestack.ErrInvalidArgument)

	customer := &casestack.Customer{CustomerID: "foo"}
	assert.ErrorIs(t, customer.Save(ctx), casestack.ErrNotFetched)

	shipment := &casestack.Shipment{ShipmentID: "0"}
	assert.ErrorIs(t, shipment.SaveAsync(ctx).Err(), casestack.ErrNotFetched)
}

func TestSave_EmptyID(t *testing.T) {
	mock := casestack.NewMockTransport()
	client := newTestClient(t, mock)
	ctx := context.Background()

	carrier, err := client.GetCarrier(ctx, "foo")
	require.NoError(t, err)
	before := len(mock.Requests())

	carrier.CarrierID = ""
	assert.ErrorIs(t, carrier.Save(ctx), casestack.ErrInvalidArgument)
	assert.Len(t, mock.Requests(), before)
}

func TestShipment_TypedStatus(t *testing.T) {
	s := &casestack.Shipment{Status: "tender accepted by carrier"}
	status, ok := s.TypedStatus()
	require.True(t, ok)
	assert.Equal(t, casestack.TenderAcceptedByCarrier, status)

	s.Status = "Lost at sea"
	_, ok = s.TypedStatus()
	assert.False(t, ok)
}
