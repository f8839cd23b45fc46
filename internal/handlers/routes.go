package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registrar accepts route registrations
type Registrar interface {
	Register(method, path string, handler gin.HandlerFunc) error
}

// SetupRoutes configures all API routes
func SetupRoutes(r Registrar) error {
	return r.Register(http.MethodGet, "/", Root)
}
