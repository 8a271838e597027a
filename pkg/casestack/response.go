package casestack

import (
	"net/http"
)

// Response is the outcome of a transport call. The decoded body is written
// into the destination passed to the transport, not carried here.
type Response struct {
	StatusCode int
	Header     http.Header

	// Decoded is true when a body was written into the destination.
	Decoded bool

	// Err is set when the exchange failed at the transport level or the
	// body could not be decoded.
	Err error
}

// HandleResponse classifies a completed exchange. Any transport error or a
// status other than 200 yields an *HTTPError naming resource.
func HandleResponse(resp *Response, resource string) error {
	if resp == nil {
		return newHTTPError(0, resource, nil)
	}
	if resp.Err != nil || resp.StatusCode != http.StatusOK {
		return newHTTPError(resp.StatusCode, resource, resp.Err)
	}
	return nil
}
