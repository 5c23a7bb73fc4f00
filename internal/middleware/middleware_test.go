package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	jwtPkg "OcularBiomarker/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSharedSecretMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		provided string
		status   int
	}{
		{"matching secret", "ipass", "ipass", fiber.StatusOK},
		{"wrong secret", "ipass", "nope", fiber.StatusUnauthorized},
		{"missing header", "ipass", "", fiber.StatusUnauthorized},
		{"unconfigured token rejects all", "", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(quietLogger(), tt.expected)
			app := fiber.New()
			app.Post("/ingest", m.NewSharedSecretMiddleware, func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tt.provided != "" {
				req.Header.Set(SharedSecretHeader, tt.provided)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	m := New(quietLogger(), "")
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
	assert.Equal(t, string(body), resp.Header.Get(RequestIDKey))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDKey, "client-supplied")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "client-supplied", string(body))
}

func TestTokenMiddleware(t *testing.T) {
	t.Setenv(AccessTokenSecret, "test-secret")

	m := New(quietLogger(), "")
	app := fiber.New()
	app.Get("/me", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		user, err := jwtPkg.GetUserLoginData(c)
		if err != nil {
			return err
		}
		return c.SendString(user.ID)
	})

	token, _, err := jwtPkg.Sign(map[string]interface{}{
		"id":       "user-1",
		"email":    "a@example.com",
		"username": "alice",
	}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "user-1", string(body))

	partial, _, err := jwtPkg.Sign(map[string]interface{}{"id": "user-1"}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+partial)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter(1, 2)
	l := limiter.GetLimiterFrom("10.0.0.1")
	assert.Same(t, l, limiter.GetLimiterFrom("10.0.0.1"))
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
	assert.True(t, limiter.GetLimiterFrom("10.0.0.2").Allow())
}

func TestSanitizeRequestBody(t *testing.T) {
	out := sanitizeRequestBody([]byte(`{"token":"abc","landmarks":[{"x":1},{"x":2}],"file_base64":"aGVsbG8="}`))
	assert.Contains(t, out, `"token":"[SECRET]"`)
	assert.Contains(t, out, `"landmarks":"[2 points]"`)
	assert.Contains(t, out, `"file_base64":"[8 base64 chars]"`)

	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody([]byte("left,right")))
}
