// Package response writes the JSON envelope used by every HTTP route:
// {"success": true, "data": ...} or {"success": false, "error": "..."}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// Message sends a 200 response carrying only a human-readable message.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: msg})
}

// Error aborts the request with status and message.
func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, msg string) {
	if msg == "" {
		msg = "authentication required"
	}
	Error(c, http.StatusUnauthorized, msg)
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context) { Error(c, http.StatusForbidden, "insufficient permissions") }

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, msg string) { Error(c, http.StatusNotFound, msg) }

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, msg string) { Error(c, http.StatusConflict, msg) }

// TooManyRequests sends a 429 error response. Callers set Retry-After first.
func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, "too many requests, try again later")
}

// Internal sends a 500 error response. The cause is never echoed to the client.
func Internal(c *gin.Context) { Error(c, http.StatusInternalServerError, "internal server error") }
