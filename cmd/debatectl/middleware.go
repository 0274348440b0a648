package main

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/telemetry"
)

// errorResponse is the JSON body every non-2xx response shares.
type errorResponse struct {
	Status    int       `json:"status"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// requestIDMiddleware stamps every request with a unique id, echoed back
// in the X-Request-ID header.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("RequestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// loggingMiddleware logs every request through telemetry.LogHTTPRequest.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		telemetry.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start),
			telemetry.Fields{"request_id": c.GetString("RequestID")})
	}
}

// recoveryMiddleware turns a panic into a 500 JSON response instead of
// killing the server.
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("http handler panic", telemetry.Fields{
					"request_id": c.GetString("RequestID"),
					"path":       c.Request.URL.Path,
					"recovered":  fmt.Sprintf("%v", r),
					"stack":      string(debug.Stack()),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorResponse{
					Status: http.StatusInternalServerError, Message: "internal error",
					Path: c.Request.URL.Path, Timestamp: time.Now().UTC(), RequestID: c.GetString("RequestID"),
				}})
			}
		}()
		c.Next()
	}
}

// writeError maps an engine error kind to an HTTP status and writes the
// standardized error body.
func writeError(c *gin.Context, err error) {
	kind := enginerr.Of(err)
	status := httpStatusFor(kind)
	c.JSON(status, gin.H{"error": errorResponse{
		Status: status, Kind: string(kind), Message: err.Error(),
		Path: c.Request.URL.Path, Timestamp: time.Now().UTC(), RequestID: c.GetString("RequestID"),
	}})
}

func httpStatusFor(kind enginerr.Kind) int {
	switch kind {
	case enginerr.NotFound:
		return http.StatusNotFound
	case enginerr.InvalidConfig, enginerr.UnsupportedFormat:
		return http.StatusBadRequest
	case enginerr.InvalidTransition:
		return http.StatusConflict
	case enginerr.UpstreamAuth:
		return http.StatusBadGateway
	case enginerr.UpstreamUnavailable, enginerr.UpstreamMalformed, enginerr.JudgeUnparseable:
		return http.StatusBadGateway
	case enginerr.Cancelled:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
