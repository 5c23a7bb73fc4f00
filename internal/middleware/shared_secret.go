package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const SharedSecretHeader = "X-Shared-Secret"

type sharedSecretMiddleware struct {
	expected string
}

func newSharedSecretMiddleware(expected string) *sharedSecretMiddleware {
	return &sharedSecretMiddleware{expected: expected}
}

// NewSharedSecretMiddleware guards partner endpoints. An unset token rejects
// every request.
func (m *middleware) NewSharedSecretMiddleware(ctx *fiber.Ctx) error {
	provided := ctx.Get(SharedSecretHeader)
	expected := m.sharedSecret.expected

	if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		m.log.WithFields(logrus.Fields{
			"request_id": m.GetRequestID(ctx),
			"path":       ctx.Path(),
			"client_ip":  ctx.IP(),
			"configured": expected != "",
		}).Warn("Shared secret check failed")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	return ctx.Next()
}
