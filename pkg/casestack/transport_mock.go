package casestack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrSimulated is the transport error reported by MockTransport for
// failing fixtures.
var ErrSimulated = errors.New("simulated transport failure")

// MockTransport is a mock implementation of Transport for testing. Requests
// are answered from a fixed set of fixtures keyed by path:
//
//	api/carrier/foo, api/customer/foo      200 with the record
//	api/carrier/err, api/customer/err      500
//	api/carrier/badgateway                 502
//	api/shipment/0                         200 on GET, 200 without body on PUT
//	api/shipment/-1                        500
//	api/shipment/-2                        502
//	api/shipment/{status,readonly}/0       200
//	api/shipment/{status,readonly}/-1      500
//	api/customfield/testerror*             500, any other type 200
//	api/address/foo                        200
//	api/address/error                      500
//
// Any other path yields 404. A successful PUT echoes the request body.
type MockTransport struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnExecute func(ctx context.Context, req *Request, out any) *Response

	mu       sync.Mutex
	requests []*Request
}

// NewMockTransport creates a new mock transport with default behavior.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Execute implements Transport.
func (m *MockTransport) Execute(ctx context.Context, req *Request, out any) *Response {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return &Response{Err: ctx.Err()}
		}
	}

	if m.SimulateErrors {
		return &Response{StatusCode: http.StatusInternalServerError, Err: ErrSimulated}
	}

	if m.OnExecute != nil {
		return m.OnExecute(ctx, req, out)
	}

	status, body := fixture(req)
	resp := &Response{StatusCode: status}
	switch {
	case status == http.StatusInternalServerError:
		resp.Err = ErrSimulated
		return resp
	case status != http.StatusOK:
		return resp
	}

	if body == nil || out == nil {
		return resp
	}
	data, err := json.Marshal(map[string]any{req.RootElement: body})
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Decoded, resp.Err = decodeBody(data, req.RootElement, out)
	return resp
}

// Requests returns every request executed so far, oldest first.
func (m *MockTransport) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func fixture(req *Request) (int, any) {
	put := req.Method == http.MethodPut

	if strings.HasPrefix(req.Path, "api/customfield/") {
		if strings.HasPrefix(req.Path, "api/customfield/testerror") {
			return http.StatusInternalServerError, nil
		}
		parent := strings.TrimPrefix(req.Path, "api/customfield/")
		return http.StatusOK, CustomFields{Parent: parent, Fields: []CustomField{}}
	}

	switch req.Path {
	case "api/carrier/foo":
		if put {
			return http.StatusOK, req.Body
		}
		return http.StatusOK, Carrier{CarrierID: "foo"}
	case "api/customer/foo":
		if put {
			return http.StatusOK, req.Body
		}
		return http.StatusOK, Customer{CustomerID: "foo"}
	case "api/shipment/0":
		if put {
			return http.StatusOK, nil
		}
		return http.StatusOK, Shipment{ShipmentID: "0"}
	case "api/address/foo":
		return http.StatusOK, Address{}
	case "api/shipment/status/0", "api/shipment/readonly/0":
		return http.StatusOK, nil
	case "api/carrier/err", "api/customer/err",
		"api/shipment/-1", "api/shipment/status/-1", "api/shipment/readonly/-1",
		"api/address/error":
		return http.StatusInternalServerError, nil
	case "api/carrier/badgateway", "api/shipment/-2":
		return http.StatusBadGateway, nil
	}
	return http.StatusNotFound, nil
}
