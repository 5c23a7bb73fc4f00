package eyeHandler

import (
	"OcularBiomarker/internal/api/eye"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/handlerUtil"
	"OcularBiomarker/pkg/log"
	"OcularBiomarker/pkg/response"
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

func sessionID(ctx *fiber.Ctx) string {
	if id := strings.TrimSpace(ctx.Get(eye.SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(ctx.Query(eye.SessionQuery))
}

// readFrame accepts a multipart "image" field, a raw image body, or a JSON
// landmark payload.
func (h *EyeHandler) readFrame(ctx *fiber.Ctx) (eye.Frame, error) {
	file, err := ctx.FormFile("image")
	if err == nil {
		if err := h.utils.ValidateImageFile(file); err != nil {
			return eye.Frame{}, response.WithDetail(eye.ErrInvalidImage, err.Error())
		}

		data, err := h.utils.ReadFile(file)
		if err != nil {
			return eye.Frame{}, response.WithDetail(eye.ErrInvalidImage, err.Error())
		}
		return eye.Frame{Image: data}, nil
	}

	contentType := string(ctx.Request().Header.ContentType())
	if strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, fiber.MIMEOctetStream) {
		return eye.Frame{Image: append([]byte(nil), ctx.Body()...)}, nil
	}

	var req eye.LandmarksRequest
	if err := ctx.BodyParser(&req); err != nil {
		return eye.Frame{}, response.WithDetail(eye.ErrInvalidInput, err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return eye.Frame{}, err
	}

	return eye.Frame{Landmarks: &req}, nil
}

func (h *EyeHandler) handleFrameError(ctx *fiber.Ctx, errHandler *handlerUtil.ErrorHandler, requestID string, err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_frame")
}

func (h *EyeHandler) Direction(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing eye direction request")

	frame, err := h.readFrame(ctx)
	if err != nil {
		return h.handleFrameError(ctx, errHandler, requestID, err)
	}

	result, err := h.eyeService.Direction(c, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "classify_direction")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"direction":  result.Direction,
		}).Debug("Eye direction classified")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *EyeHandler) Pupil(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing pupil size request")

	frame, err := h.readFrame(ctx)
	if err != nil {
		return h.handleFrameError(ctx, errHandler, requestID, err)
	}

	result, err := h.eyeService.Pupil(c, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "measure_pupil")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *EyeHandler) GazeShift(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	session := sessionID(ctx)
	if session == "" {
		return errHandler.Handle(ctx, requestID, eye.ErrSessionRequired, ctx.Path(), "gaze_shift")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"session_id": session,
	}).Debug("Processing gaze shift request")

	frame, err := h.readFrame(ctx)
	if err != nil {
		return h.handleFrameError(ctx, errHandler, requestID, err)
	}

	result, err := h.eyeService.GazeShift(c, session, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "gaze_shift")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *EyeHandler) Frame(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)
	session := sessionID(ctx)

	frame, err := h.readFrame(ctx)
	if err != nil {
		return h.handleFrameError(ctx, errHandler, requestID, err)
	}

	result, err := h.eyeService.ProcessFrame(c, session, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *EyeHandler) GetTrail(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	result, err := h.eyeService.Trail(c, sessionID(ctx))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_trail")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *EyeHandler) ResetTrail(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.eyeService.ResetTrail(c, sessionID(ctx)); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reset_trail")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}
