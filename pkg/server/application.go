package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/gin-gonic/gin"

	"hello-lambda-api/internal/middleware"
	"hello-lambda-api/pkg/lambda"
)

var (
	// ErrSealed is returned by Register once the application has started serving
	ErrSealed = errors.New("application is sealed")
	// ErrDuplicateRoute is returned when a method and path pair is registered twice
	ErrDuplicateRoute = errors.New("route already registered")
	// ErrInvalidRoute is returned for routes that are not a method plus a static path
	ErrInvalidRoute = errors.New("invalid route")
)

// Route is a method and path pair
type Route struct {
	Method string
	Path   string
}

func (r Route) String() string {
	return r.Method + " " + r.Path
}

// Application owns the route table and dispatches requests through it.
// Routes may only be added before the first request; afterwards the
// table is read-only and dispatch is safe for concurrent use.
type Application struct {
	engine *gin.Engine

	mu     sync.Mutex
	routes map[Route]struct{}
	sealed atomic.Bool
}

// New creates an application with the given middleware in front of every route
func New(middlewares ...gin.HandlerFunc) *Application {
	engine := gin.New()
	// only exact matches count; no redirects to near misses
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false

	engine.Use(middlewares...)
	engine.NoRoute(middleware.NotFound())

	return &Application{
		engine: engine,
		routes: make(map[Route]struct{}),
	}
}

// Register binds handler to method and path
func (a *Application) Register(method, path string, handler gin.HandlerFunc) error {
	route := Route{Method: strings.ToUpper(method), Path: path}
	if route.Method == "" || handler == nil || !strings.HasPrefix(path, "/") || strings.ContainsAny(path, ":*") {
		return fmt.Errorf("%w: %s", ErrInvalidRoute, route)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed.Load() {
		return ErrSealed
	}
	if _, ok := a.routes[route]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, route)
	}

	a.engine.Handle(route.Method, route.Path, handler)
	a.routes[route] = struct{}{}
	return nil
}

// Seal freezes the route table
func (a *Application) Seal() {
	if a.sealed.Load() {
		return
	}
	// taking the lock waits out any Register still adding a route
	a.mu.Lock()
	a.sealed.Store(true)
	a.mu.Unlock()
}

// Routes returns the registered routes ordered by path then method
func (a *Application) Routes() []Route {
	a.mu.Lock()
	defer a.mu.Unlock()

	routes := make([]Route, 0, len(a.routes))
	for route := range a.routes {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// Handler seals the application and exposes it as an http.Handler
func (a *Application) Handler() http.Handler {
	a.Seal()
	return a.engine
}

// Dispatch runs req through the route table and returns the rendered response
func (a *Application) Dispatch(ctx context.Context, req *lambda.Request) *lambda.Response {
	a.Seal()

	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, middleware.ErrorResponse{
			Error:     "Internal server error",
			Message:   "request could not be translated",
			RequestID: req.Headers.Get(lambda.RequestIDHeader),
		})
	}

	w := core.NewProxyResponseWriter()
	a.engine.ServeHTTP(w, httpReq)

	resp, err := newResponse(w)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, middleware.ErrorResponse{
			Error:     "Internal server error",
			Message:   "response could not be read",
			RequestID: req.Headers.Get(lambda.RequestIDHeader),
		})
	}
	return resp
}

// newHTTPRequest hands the decoded request to the proxy accessor in REST API form
func newHTTPRequest(ctx context.Context, req *lambda.Request) (*http.Request, error) {
	// the path is escaped so '%', '?' and '#' survive URL parsing
	event := events.APIGatewayProxyRequest{
		HTTPMethod:                      req.Method,
		Path:                            (&url.URL{Path: req.Path}).EscapedPath(),
		MultiValueHeaders:               req.Headers,
		MultiValueQueryStringParameters: req.QueryParams,
		Body:                            string(req.Body),
	}

	var accessor core.RequestAccessor
	httpReq, err := accessor.EventToRequestWithContext(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}

	// the accessor upper-cases methods; routing matches them as sent
	httpReq.Method = req.Method
	httpReq.Host = req.Headers.Get("Host")
	if req.RemoteAddr != "" {
		httpReq.RemoteAddr = net.JoinHostPort(req.RemoteAddr, "0")
	}
	return httpReq, nil
}

func newResponse(w *core.ProxyResponseWriter) (*lambda.Response, error) {
	proxyResp, err := w.GetProxyResponse()
	if err != nil {
		return nil, err
	}

	body := []byte(proxyResp.Body)
	if proxyResp.IsBase64Encoded {
		if body, err = base64.StdEncoding.DecodeString(proxyResp.Body); err != nil {
			return nil, err
		}
	}

	headers := http.Header(proxyResp.MultiValueHeaders)
	if headers == nil {
		headers = http.Header{}
	}
	return &lambda.Response{
		StatusCode: proxyResp.StatusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}

func errorResponse(status int, body middleware.ErrorResponse) *lambda.Response {
	data, _ := json.Marshal(body)
	headers := http.Header{}
	headers.Set("Content-Type", "application/json; charset=utf-8")
	return &lambda.Response{StatusCode: status, Headers: headers, Body: data}
}
