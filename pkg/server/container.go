package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"hello-lambda-api/internal/config"
	"hello-lambda-api/internal/handlers"
	"hello-lambda-api/internal/middleware"
)

// lambdaPayloadLimit is the synchronous invocation payload ceiling
const lambdaPayloadLimit = 6 * 1024 * 1024

// NewApplication builds the sealed application with the standard middleware
// stack. extra middleware runs after the standard stack and before routing.
func NewApplication(cfg *config.Config, extra ...gin.HandlerFunc) (*Application, error) {
	stack := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.StructuredLogger(),
		middleware.SecurityHeaders(),
		middleware.RequestSizeLimit(lambdaPayloadLimit),
	}
	if cfg != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RequestsPerSecond) + 1
		}
		stack = append(stack, middleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, burst))
	}
	stack = append(stack, extra...)

	app := New(stack...)
	if err := handlers.SetupRoutes(app); err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}
	app.Seal()
	return app, nil
}
