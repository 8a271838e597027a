package casestack

import (
	"context"
)

// Transport executes requests against the CaseStack API.
// This abstraction allows fake implementations during testing
// and the HTTP implementation in production.
type Transport interface {
	// Execute sends req and decodes a successful body into out. out may be
	// nil when the caller does not need the body.
	Execute(ctx context.Context, req *Request, out any) *Response
}

// AsyncTransport is implemented by transports that run requests without
// blocking the caller. The channel yields exactly one response.
type AsyncTransport interface {
	Transport
	ExecuteAsync(ctx context.Context, req *Request, out any) <-chan *Response
}

// executeAsync uses the transport's own async path when it has one.
func executeAsync(ctx context.Context, t Transport, req *Request, out any) <-chan *Response {
	if at, ok := t.(AsyncTransport); ok {
		return at.ExecuteAsync(ctx, req, out)
	}

	ch := make(chan *Response, 1)
	go func() {
		ch <- t.Execute(ctx, req, out)
	}()
	return ch
}

// MetricsRecorder receives one observation per completed API call.
type MetricsRecorder interface {
	RecordRequest(resource, method, status string, duration float64)
}
