package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/telemetry"
)

// OtelTracing starts a server span for every /api/ request.
func OtelTracing(serviceName string) gin.HandlerFunc {
	return telemetry.GinMiddleware(serviceName)
}

// TraceID echoes the active trace ID in the X-Trace-Id response header.
func TraceID() gin.HandlerFunc {
	return telemetry.TraceIDMiddleware()
}
