package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errNoResponse = errors.New("dispatcher returned no response")

// errorBody matches the JSON error shape the application itself renders
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Adapter bridges Lambda HTTP integrations to a Dispatcher, one request per invocation
type Adapter struct {
	dispatcher Dispatcher
	basePath   string
	logger     *logrus.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithBasePath strips a mount prefix, e.g. an API Gateway custom domain mapping, before dispatch
func WithBasePath(basePath string) Option {
	return func(a *Adapter) {
		a.basePath = normalizeBasePath(basePath)
	}
}

// WithLogger sets the logger used for invocation records
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter around d
func NewAdapter(d Dispatcher, opts ...Option) *Adapter {
	a := &Adapter{
		dispatcher: d,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle is the Lambda entry point. It always returns a response envelope
// and a nil error: failures become 500 envelopes instead of runtime faults.
func (a *Adapter) Handle(ctx context.Context, payload json.RawMessage) (envelope any, err error) {
	start := time.Now()
	requestID := invocationID(ctx)
	ev := &inboundEvent{}

	fields := logrus.Fields{"request_id": requestID}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields["function_arn"] = lc.InvokedFunctionArn
	}
	if deadline, ok := ctx.Deadline(); ok {
		fields["remaining_ms"] = time.Until(deadline).Milliseconds()
	}
	log := a.logger.WithFields(fields)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Recovered panic at invocation boundary")
			envelope = ev.failure(requestID)
			err = nil
		}
	}()

	ev, err = decodeEvent(payload)
	if err != nil {
		log.WithError(err).WithField("source", ev.source.String()).Error("Malformed invocation event")
		return ev.failure(requestID), nil
	}
	log = log.WithField("source", ev.source.String())

	req := ev.request
	req.Path = stripBasePath(a.basePath, req.Path)
	if req.Headers.Get(RequestIDHeader) == "" {
		req.Headers.Set(RequestIDHeader, requestID)
	}
	if err := req.Validate(); err != nil {
		log.WithError(err).Error("Invalid request translated from event")
		return ev.failure(requestID), nil
	}

	resp := a.dispatcher.Dispatch(ctx, req)
	if resp == nil {
		log.WithError(errNoResponse).Error("Dispatch failed")
		return ev.failure(requestID), nil
	}
	if resp.Headers == nil {
		resp.Headers = http.Header{}
	}
	if resp.Headers.Get(RequestIDHeader) == "" {
		resp.Headers.Set(RequestIDHeader, req.Headers.Get(RequestIDHeader))
	}

	log.WithFields(logrus.Fields{
		"method":      req.Method,
		"path":        req.Path,
		"status_code": resp.StatusCode,
		"latency_ms":  float64(time.Since(start).Nanoseconds()) / 1000000,
	}).Debug("Invocation completed")

	return ev.envelope(resp), nil
}

// Invoke implements the runtime's Handler interface. The payload reaches
// Handle as raw bytes, so input that is not JSON still gets an envelope.
func (a *Adapter) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	envelope, _ := a.Handle(ctx, payload)
	return json.Marshal(envelope)
}

// failure builds the 500 envelope, in the event's own shape when it is known
func (e *inboundEvent) failure(requestID string) any {
	body, _ := json.Marshal(errorBody{
		Error:     "Internal server error",
		Message:   "the invocation event could not be processed",
		RequestID: requestID,
	})
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(RequestIDHeader, requestID)
	return e.envelope(&Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    headers,
		Body:       body,
	})
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}

func normalizeBasePath(basePath string) string {
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

func stripBasePath(basePath, path string) string {
	if basePath == "" {
		return path
	}
	switch {
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return path[len(basePath):]
	}
	return path
}
