package screeningHandler

import (
	screeningService "OcularBiomarker/internal/api/screening/service"
	"OcularBiomarker/internal/middleware"
	"OcularBiomarker/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ScreeningHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	screeningService screeningService.IScreeningService
	utils            utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ss screeningService.IScreeningService,
	utils utils.IUtils,
) *ScreeningHandler {
	return &ScreeningHandler{
		screeningService: ss,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
	}
}

func (h *ScreeningHandler) Start(srv fiber.Router) {
	ml := srv.Group("/ml")

	ml.Get("/health", h.Health)
	ml.Post("/predict", h.middleware.NewRateLimiter, h.Predict)
	ml.Post("/analyze-csv", h.middleware.NewRateLimiter, h.AnalyzeCSV)

	ml.Post("/ingest", h.middleware.NewSharedSecretMiddleware, h.Ingest)
	ml.Post("/ingest/test", h.middleware.NewRateLimiter, h.IngestTest)

	ml.Post("/predictions", h.middleware.NewTokenMiddleware, h.RecordPrediction)
	ml.Get("/predictions", h.middleware.NewTokenMiddleware, h.ListPredictions)
	ml.Get("/predictions/:id", h.middleware.NewTokenMiddleware, h.GetPrediction)
}
