package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "ML_MODEL_PATH", "ML_CLASSIFIER_URL", "ML_CLASSIFIER_TIMEOUT",
		"FACEMESH_URL", "EYE_MIRROR_FRAMES", "TRAIL_CAPACITY", "TRAIL_STORE", "TRAIL_IDLE_TTL",
		"DIRECTION_FORWARD_THRESHOLD", "DIRECTION_BLINK_THRESHOLD",
		"REASON_ASYMMETRY_SMALL", "REASON_ASYMMETRY_LARGE",
		"REASON_CONFIDENCE_HIGH", "REASON_CONFIDENCE_VERY_HIGH", "DB_HOST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := LoadSettings(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "3000", s.Port)
	assert.Equal(t, 5.0, s.Direction.Forward)
	assert.Equal(t, 0.2, s.Direction.Blink)
	assert.Equal(t, 20, s.Trail.Capacity)
	assert.Equal(t, TrailStoreMemory, s.Trail.Store)
	assert.Equal(t, 10*time.Minute, s.Trail.IdleTTL)
	assert.Equal(t, 0.10, s.Reasons.AsymmetrySmall)
	assert.Equal(t, 0.90, s.Reasons.ConfidenceVeryHigh)
	assert.True(t, s.MirrorFrames)
	assert.False(t, s.HistoryEnabled())
}

func TestLoadSettings_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIRECTION_FORWARD_THRESHOLD", "8.5")
	t.Setenv("TRAIL_CAPACITY", "5")
	t.Setenv("TRAIL_STORE", "Redis")
	t.Setenv("EYE_MIRROR_FRAMES", "false")
	t.Setenv("ML_CLASSIFIER_URL", "http://scorer:8080")
	t.Setenv("DB_HOST", "db")

	s, err := LoadSettings(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, 8.5, s.Direction.Forward)
	assert.Equal(t, 5, s.Trail.Capacity)
	assert.Equal(t, TrailStoreRedis, s.Trail.Store)
	assert.False(t, s.MirrorFrames)
	assert.Equal(t, "http://scorer:8080", s.Model.ClassifierURL)
	assert.True(t, s.HistoryEnabled())
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unparseable float", "DIRECTION_FORWARD_THRESHOLD", "five"},
		{"negative forward threshold", "DIRECTION_FORWARD_THRESHOLD", "-1"},
		{"blink ratio above one", "DIRECTION_BLINK_THRESHOLD", "1.5"},
		{"small not below large", "REASON_ASYMMETRY_SMALL", "0.5"},
		{"confidence above one", "REASON_CONFIDENCE_VERY_HIGH", "1.2"},
		{"zero capacity", "TRAIL_CAPACITY", "0"},
		{"unknown store", "TRAIL_STORE", "etcd"},
		{"bad duration", "TRAIL_IDLE_TTL", "soon"},
		{"bad bool", "EYE_MIRROR_FRAMES", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadSettings(NewValidator())
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
