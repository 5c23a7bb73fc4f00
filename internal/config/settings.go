package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"OcularBiomarker/database/postgres"
	"OcularBiomarker/pkg/direction"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/facemesh"
	"OcularBiomarker/pkg/redis"
	"OcularBiomarker/pkg/s3"
	"OcularBiomarker/pkg/trail"
)

var ErrConfiguration = errors.New("invalid configuration")

const (
	TrailStoreMemory = "memory"
	TrailStoreRedis  = "redis"
)

type ModelSettings struct {
	Path              string
	ClassifierURL     string        `validate:"omitempty,url"`
	ClassifierTimeout time.Duration `validate:"gt=0"`
}

type TrailSettings struct {
	Capacity int           `validate:"gte=1"`
	Store    string        `validate:"oneof=memory redis"`
	IdleTTL  time.Duration `validate:"gte=0"`
}

type Settings struct {
	Port              string `validate:"required,numeric"`
	Env               string
	Model             ModelSettings
	FacemeshURL       string `validate:"required,url"`
	MirrorFrames      bool
	Trail             TrailSettings
	Direction         direction.Thresholds
	Reasons           explain.Thresholds
	SharedUploadToken string
	UploadDir         string
	Redis             redis.Options
	Database          postgres.Options
	AWS               s3.Options
}

// HistoryEnabled reports whether a database was configured.
func (s Settings) HistoryEnabled() bool {
	return s.Database.Host != ""
}

// LoadSettings reads the environment, applies defaults and validates the
// result. Every failure wraps ErrConfiguration.
func LoadSettings(validate *validator.Validate) (Settings, error) {
	env := &envReader{}

	dir := direction.DefaultThresholds()
	reasons := explain.DefaultThresholds()

	settings := Settings{
		Port: env.str("APP_PORT", "3000"),
		Env:  env.str("APP_ENV", "development"),
		Model: ModelSettings{
			Path:              env.str("ML_MODEL_PATH", "models/pupil_centroid_model.json"),
			ClassifierURL:     env.str("ML_CLASSIFIER_URL", ""),
			ClassifierTimeout: env.duration("ML_CLASSIFIER_TIMEOUT", 10*time.Second),
		},
		FacemeshURL:  env.str("FACEMESH_URL", facemesh.DefaultURL),
		MirrorFrames: env.boolean("EYE_MIRROR_FRAMES", true),
		Trail: TrailSettings{
			Capacity: env.integer("TRAIL_CAPACITY", trail.DefaultCapacity),
			Store:    strings.ToLower(env.str("TRAIL_STORE", TrailStoreMemory)),
			IdleTTL:  env.duration("TRAIL_IDLE_TTL", 10*time.Minute),
		},
		Direction: direction.Thresholds{
			Forward: env.float("DIRECTION_FORWARD_THRESHOLD", dir.Forward),
			Blink:   env.float("DIRECTION_BLINK_THRESHOLD", dir.Blink),
		},
		Reasons: explain.Thresholds{
			AsymmetrySmall:      env.float("REASON_ASYMMETRY_SMALL", reasons.AsymmetrySmall),
			AsymmetryLarge:      env.float("REASON_ASYMMETRY_LARGE", reasons.AsymmetryLarge),
			VariabilityModerate: env.float("REASON_VARIABILITY_MODERATE", reasons.VariabilityModerate),
			VariabilityHigh:     env.float("REASON_VARIABILITY_HIGH", reasons.VariabilityHigh),
			CorrelationModerate: env.float("REASON_CORRELATION_MODERATE", reasons.CorrelationModerate),
			CorrelationStrong:   env.float("REASON_CORRELATION_STRONG", reasons.CorrelationStrong),
			ConfidenceHigh:      env.float("REASON_CONFIDENCE_HIGH", reasons.ConfidenceHigh),
			ConfidenceVeryHigh:  env.float("REASON_CONFIDENCE_VERY_HIGH", reasons.ConfidenceVeryHigh),
		},
		SharedUploadToken: env.str("SHARED_UPLOAD_TOKEN", ""),
		UploadDir:         env.str("LOCAL_UPLOAD_DIR", "uploads/csv"),
		Redis: redis.Options{
			Address:  env.str("REDIS_ADDRESS", "localhost:6379"),
			Password: env.str("REDIS_PASSWORD", ""),
			DB:       env.integer("REDIS_DB", 0),
		},
		Database: postgres.Options{
			Host:     env.str("DB_HOST", ""),
			Port:     env.str("DB_PORT", "5432"),
			Name:     env.str("DB_NAME", ""),
			User:     env.str("DB_USER", ""),
			Password: env.str("DB_PASSWORD", ""),
			SSLMode:  env.str("DB_SSL_MODE", "disable"),
		},
		AWS: s3.Options{
			Region:          env.str("AWS_REGION", ""),
			AccessKeyID:     env.str("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.str("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          env.str("AWS_BUCKET_NAME", ""),
		},
	}

	if env.err != nil {
		return Settings{}, env.err
	}

	if err := validate.Struct(settings); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return settings, nil
}

// envReader keeps the first parse failure so LoadSettings can report it
// after reading everything.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, raw string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %v", ErrConfiguration, key, raw, err)
	}
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *envReader) float(key string, def float64) float64 {
	raw, ok := r.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) integer(key string, def int) int {
	raw, ok := r.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) boolean(key string, def bool) bool {
	raw, ok := r.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	raw, ok := r.lookup(key)
	if !ok {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}
