package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"github.com/waggle-sensor/facilities/internal/pkg/utils/tokens"
)

// AdminAuth returns a middleware that only lets requests carrying root.api_bearer_token through.
// When no token is configured every request is rejected.
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	configured := cfg.Root.ApiBearerToken
	want := tokens.HMAC256Hex(cfg.Root.SecretPepper, configured)

	return func(c *gin.Context) {
		_, span := otel.Tracer("middleware").Start(c.Request.Context(), "admin_auth",
			trace.WithAttributes(attribute.String("middleware", "admin_auth")))
		defer span.End()

		raw, err := tokens.FromBearer(c.GetHeader("Authorization"))
		if err != nil || configured == "" || !tokens.Equal(tokens.HMAC256Hex(cfg.Root.SecretPepper, raw), want) {
			span.SetAttributes(attribute.Bool("authenticated", false))
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		span.SetAttributes(attribute.Bool("authenticated", true))
		c.Next()
	}
}

// NodeAuthenticator resolves a raw node bearer token to its node.
type NodeAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.Node, error)
}

// NodeAuth returns a middleware that authenticates requests using node bearer tokens.
// It sets the node in the context and tags the request span with its VSN.
func NodeAuth(auth NodeAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := otel.Tracer("middleware").Start(c.Request.Context(), "node_auth",
			trace.WithAttributes(attribute.String("middleware", "node_auth")))

		raw, err := tokens.FromBearer(c.GetHeader("Authorization"))
		if err != nil {
			span.SetAttributes(attribute.Bool("authenticated", false))
			span.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		node, err := auth.Authenticate(ctx, raw)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				span.SetAttributes(attribute.Bool("authenticated", false))
				span.End()
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
				return
			}
			span.RecordError(err)
			span.End()
			c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
			return
		}

		rootSpan := trace.SpanFromContext(c.Request.Context())
		if rootSpan.SpanContext().IsValid() {
			rootSpan.SetAttributes(attribute.String("vsn", node.VSN))
		}
		span.SetAttributes(
			attribute.String("vsn", node.VSN),
			attribute.Bool("authenticated", true),
		)
		span.End()

		c.Set("node", node)
		c.Next()
	}
}
