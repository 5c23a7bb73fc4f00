package config

import (
	"OcularBiomarker/database/postgres"
	eyeHandler "OcularBiomarker/internal/api/eye/handler"
	eyeService "OcularBiomarker/internal/api/eye/service"
	screeningHandler "OcularBiomarker/internal/api/screening/handler"
	screeningRepository "OcularBiomarker/internal/api/screening/repository"
	screeningService "OcularBiomarker/internal/api/screening/service"
	"OcularBiomarker/internal/middleware"
	"OcularBiomarker/pkg/facemesh"
	"OcularBiomarker/pkg/inference"
	"OcularBiomarker/pkg/redis"
	"OcularBiomarker/pkg/s3"
	"OcularBiomarker/pkg/trail"
	"OcularBiomarker/pkg/utils"
	"context"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"io"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	settings         *Settings
	db               *sqlx.DB
	log              *logrus.Logger
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	redisServer      redis.IRedis
	s3Client         s3.ItfS3
	landmarkProvider facemesh.ILandmarkProvider
	trailStore       trail.Store
	model            inference.Model
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithSettings(settings Settings) ServerOption {
	return func(s *Server) error {
		s.settings = &settings
		return nil
	}
}

// WithDatabase connects to postgres and applies the schema. Without DB_HOST the
// history endpoints stay disabled and no connection is made.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		if s.settings == nil {
			return fmt.Errorf("settings must be loaded before the database")
		}
		if !s.settings.HistoryEnabled() {
			if s.log != nil {
				s.log.Info("No database configured, prediction history disabled")
			}
			return nil
		}

		db, err := postgres.New(s.settings.Database)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithS3Client creates the object storage client when a bucket or region is
// configured. Model files under s3:// and partner uploads go through it.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if s.settings == nil {
			return fmt.Errorf("settings must be loaded before the S3 client")
		}
		if s.settings.AWS.Bucket == "" && s.settings.AWS.Region == "" {
			return nil
		}

		client, err := s3.New(s.settings.AWS)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithLandmarkProvider(provider facemesh.ILandmarkProvider) ServerOption {
	return func(s *Server) error {
		s.landmarkProvider = provider
		return nil
	}
}

// WithModel loads the classifier once. A model that fails to load does not
// stop the server; /ml/health reports it and predictions answer 503.
func WithModel() ServerOption {
	return func(s *Server) error {
		if s.settings == nil {
			return fmt.Errorf("settings must be loaded before the model")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		opts := inference.LoadOptions{
			Path:          s.settings.Model.Path,
			ClassifierURL: s.settings.Model.ClassifierURL,
			Timeout:       s.settings.Model.ClassifierTimeout,
		}
		if s.s3Client != nil {
			opts.Fetcher = s.s3Client
		}

		s.model = inference.LoadModel(ctx, opts)
		if err := s.model.Err(); err != nil {
			if s.log != nil {
				s.log.WithField("source", s.model.Source()).Warnf("Model not loaded: %v", err)
			}
			return nil
		}

		if s.log != nil {
			s.log.WithField("source", s.model.Source()).Info("Model loaded")
		}
		return nil
	}
}

func WithTrailStore() ServerOption {
	return func(s *Server) error {
		if s.settings == nil {
			return fmt.Errorf("settings must be loaded before the trail store")
		}

		cfg := s.settings.Trail
		switch cfg.Store {
		case TrailStoreRedis:
			if s.redisServer == nil {
				return fmt.Errorf("%w: TRAIL_STORE=redis needs a redis server", ErrConfiguration)
			}
			s.trailStore = trail.NewRedisStore(s.redisServer, cfg.Capacity, cfg.IdleTTL)
		default:
			s.trailStore = trail.NewMemoryStore(cfg.Capacity, cfg.IdleTTL)
		}
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		token := ""
		if s.settings != nil {
			token = s.settings.SharedUploadToken
		}
		s.middleware = middleware.New(s.log, token)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(recover.New())
	s.engine.Use(cors.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	s.setupHealthCheck()

	if s.validator == nil {
		s.validator = NewValidator()
	}
	if s.utils == nil {
		s.utils = utils.New()
	}
	if s.trailStore == nil {
		s.trailStore = trail.NewMemoryStore(s.settings.Trail.Capacity, s.settings.Trail.IdleTTL)
	}

	// Eye Domain
	eyeServices := eyeService.NewEyeService(s.log, s.landmarkProvider, s.trailStore, eyeService.Options{
		Thresholds:   s.settings.Direction,
		MirrorFrames: s.settings.MirrorFrames,
	})
	eyeHandlers := eyeHandler.New(s.log, s.validator, s.middleware, eyeServices, s.utils)

	// Screening Domain
	var screeningRepo screeningRepository.Repository
	if s.db != nil {
		screeningRepo = screeningRepository.New(s.db, s.log)
	}
	screeningServices := screeningService.NewScreeningService(s.log, inference.NewAdapter(s.model), screeningRepo, s.s3Client, s.utils, screeningService.Options{
		Thresholds: s.settings.Reasons,
		UploadDir:  s.settings.UploadDir,
	})
	screeningHandlers := screeningHandler.New(s.log, s.validator, s.middleware, screeningServices, s.utils)

	router := s.engine.Group("/api/v1")
	s.handlers = append(s.handlers, eyeHandlers, screeningHandlers)
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run() error {
	return s.engine.Listen(fmt.Sprintf(":%s", s.settings.Port))
}

// Shutdown stops accepting requests and releases every client the server
// owns.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	if s.landmarkProvider != nil {
		s.landmarkProvider.Close()
	}

	if closer, ok := s.trailStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trail store: %w", err))
		}
	}

	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})

	s.engine.Get("/ping", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "AI service is alive",
		})
	})
}
