package lambda

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
)

// RequestIDHeader carries the invocation id through the application and back
const RequestIDHeader = "X-Request-ID"

// Request represents a generic HTTP request for serverless functions
type Request struct {
	Method      string      `json:"method" validate:"required"`
	Path        string      `json:"path" validate:"required,startswith=/"`
	Headers     http.Header `json:"headers"`
	QueryParams url.Values  `json:"query_params"`
	Body        []byte      `json:"body"`
	RemoteAddr  string      `json:"remote_addr"`
}

// Response represents a generic HTTP response for serverless functions
type Response struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// Dispatcher drives a single request through an application
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) *Response
}

// DispatcherFunc adapts a plain function to the Dispatcher interface
type DispatcherFunc func(ctx context.Context, req *Request) *Response

// Dispatch calls f(ctx, req)
func (f DispatcherFunc) Dispatch(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

var validate = validator.New()

// Validate checks that the request carries the fields dispatch depends on
func (r *Request) Validate() error {
	return validate.Struct(r)
}
