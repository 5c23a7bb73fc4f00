package config

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Exit(m.Run())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	clearEnv(t)
	for _, key := range []string{"AWS_REGION", "AWS_BUCKET_NAME", "SHARED_UPLOAD_TOKEN", "REDIS_DB"} {
		t.Setenv(key, "")
	}
	t.Setenv("ML_MODEL_PATH", "../../models/pupil_centroid_model.json")
	t.Setenv("LOCAL_UPLOAD_DIR", t.TempDir())

	s, err := LoadSettings(NewValidator())
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresCoreOptions(t *testing.T) {
	_, err := NewServer(WithLogger(quietLogger()))
	assert.Error(t, err)

	_, err = NewServer(WithFiber(fiber.New()), WithLogger(quietLogger()))
	assert.Error(t, err)

	_, err = NewServer(WithDatabase())
	assert.Error(t, err)
}

func TestWithTrailStore_RedisNeedsServer(t *testing.T) {
	settings := testSettings(t)
	settings.Trail.Store = TrailStoreRedis

	_, err := NewServer(
		WithFiber(fiber.New()),
		WithLogger(quietLogger()),
		WithSettings(settings),
		WithTrailStore(),
	)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestServer_Routes(t *testing.T) {
	logger := quietLogger()
	settings := testSettings(t)

	server, err := NewServer(
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithValidator(NewValidator()),
		WithSettings(settings),
		WithDatabase(),
		WithS3Client(),
		WithModel(),
		WithTrailStore(),
		WithMiddleware(),
		WithUtils(),
	)
	require.NoError(t, err)
	assert.Nil(t, server.db)
	assert.Nil(t, server.s3Client)
	assert.True(t, server.model.Available())

	server.RegisterHandler()
	t.Cleanup(func() { _ = server.Shutdown(time.Second) })

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/", fiber.StatusOK},
		{http.MethodGet, "/ping", fiber.StatusOK},
		{http.MethodGet, "/api/v1/ml/health", fiber.StatusOK},
		{http.MethodGet, "/api/v1/eye/trail?session_id=abc", fiber.StatusOK},
		{http.MethodGet, "/api/v1/ml/predictions", fiber.StatusUnauthorized},
		{http.MethodPost, "/api/v1/ml/ingest", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			resp, err := server.engine.Test(httptest.NewRequest(tt.method, tt.target, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}
