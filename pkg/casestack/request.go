package casestack

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Format is the serialization format of a request body.
type Format string

const (
	FormatJSON Format = "json"
)

// Request describes a single call against the API, independent of the
// transport that will execute it.
type Request struct {
	// Path is relative to the endpoint, e.g. "api/carrier/foo".
	Path   string
	Method string
	Format Format

	// RootElement names the key the response body is wrapped under.
	RootElement string

	// Params are sent form-encoded in the body. Ignored when Body is set.
	Params url.Values

	// Body is JSON-encoded as the request payload.
	Body any
}

// NewRequest builds the request for the resource identified by id, with
// path "api/<lower(resource)>/<id>" and the resource name as root element.
// The id is escaped as a single path segment. Numeric identifiers must be
// converted to their string form by the caller.
func NewRequest(resource, id, method string) (*Request, error) {
	if id == "" {
		return nil, invalidArgument(resource + " id")
	}
	if id == "." || id == ".." {
		return nil, fmt.Errorf("%w: %s id %q is not a valid path segment", ErrInvalidArgument, resource, id)
	}
	if method == "" {
		method = http.MethodGet
	}

	return &Request{
		Path:        "api/" + strings.ToLower(resource) + "/" + url.PathEscape(id),
		Method:      method,
		Format:      FormatJSON,
		RootElement: resource,
	}, nil
}

// AddParam appends a body parameter to the request.
func (r *Request) AddParam(key, value string) *Request {
	if r.Params == nil {
		r.Params = url.Values{}
	}
	r.Params.Add(key, value)
	return r
}
