package context

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequestIDHeader is the header and fiber local the request id travels in.
const RequestIDHeader = "X-Request-ID"

const unknownRequestID = "unknown"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return unknownRequestID
	}
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return unknownRequestID
	}
	return requestID
}

// FromFiberCtx carries the request id into a context derived from the fiber
// user context, so values set by earlier middleware survive.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()

	requestID, ok := c.Locals(RequestIDHeader).(string)
	if !ok || requestID == "" {
		requestID = c.Get(RequestIDHeader)
	}

	return WithRequestID(ctx, requestID)
}
