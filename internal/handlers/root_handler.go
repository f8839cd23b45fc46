package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RootMessage is the greeting served at the root path
const RootMessage = "Hello from FastAPI on Lambda"

// MessageResponse is the body of the root endpoint
type MessageResponse struct {
	Message string `json:"message"`
}

// Root always answers with the same greeting. It takes no input and has no failure path.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: RootMessage})
}
