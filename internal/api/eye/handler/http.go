package eyeHandler

import (
	eyeService "OcularBiomarker/internal/api/eye/service"
	"OcularBiomarker/internal/middleware"
	"OcularBiomarker/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type EyeHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	eyeService eyeService.IEyeService
	utils      utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	es eyeService.IEyeService,
	utils utils.IUtils,
) *EyeHandler {
	return &EyeHandler{
		eyeService: es,
		log:        log,
		validator:  validator,
		middleware: middleware,
		utils:      utils,
	}
}

func (h *EyeHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	eye := srv.Group("/eye")
	eye.Use("/ws", wsMiddleware)
	eye.Get("/ws", websocket.New(h.handleFrameWebSocket))

	eye.Post("/direction", h.middleware.NewRateLimiter, h.Direction)
	eye.Post("/pupil", h.middleware.NewRateLimiter, h.Pupil)
	eye.Post("/gaze-shift", h.middleware.NewRateLimiter, h.GazeShift)
	eye.Post("/frame", h.middleware.NewRateLimiter, h.Frame)
	eye.Get("/trail", h.GetTrail)
	eye.Delete("/trail", h.ResetTrail)
}
