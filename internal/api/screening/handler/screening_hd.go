package screeningHandler

import (
	"OcularBiomarker/internal/api/screening"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/handlerUtil"
	jwtPkg "OcularBiomarker/pkg/jwt"
	"OcularBiomarker/pkg/log"
	"OcularBiomarker/pkg/response"
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

const requestTimeout = 10 * time.Second

func (h *ScreeningHandler) parseVector(ctx *fiber.Ctx) (features.Vector, error) {
	var v features.Vector
	if err := ctx.BodyParser(&v); err != nil {
		return features.Vector{}, response.WithDetail(screening.ErrInvalidFeatures, err.Error())
	}

	if err := h.validator.Struct(v); err != nil {
		return features.Vector{}, err
	}

	return v, nil
}

func (h *ScreeningHandler) handleInputError(ctx *fiber.Ctx, errHandler *handlerUtil.ErrorHandler, requestID string, err error, operation string) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	return errHandler.Handle(ctx, requestID, err, ctx.Path(), operation)
}

// readCSV loads the multipart "file" field.
func (h *ScreeningHandler) readCSV(ctx *fiber.Ctx) (string, []byte, error) {
	file, err := ctx.FormFile("file")
	if err != nil {
		return "", nil, response.WithDetail(screening.ErrInvalidCSV, "multipart field \"file\" is required")
	}

	if err := h.utils.ValidateCSVFile(file); err != nil {
		return "", nil, response.WithDetail(screening.ErrInvalidCSV, err.Error())
	}

	data, err := h.utils.ReadFile(file)
	if err != nil {
		return "", nil, response.WithDetail(screening.ErrInvalidCSV, err.Error())
	}

	return file.Filename, data, nil
}

func (h *ScreeningHandler) Health(ctx *fiber.Ctx) error {
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.screeningService.Health(c))
}

func (h *ScreeningHandler) Predict(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing prediction request")

	v, err := h.parseVector(ctx)
	if err != nil {
		return h.handleInputError(ctx, errHandler, requestID, err, "parse_features")
	}

	result, err := h.screeningService.Predict(c, v)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "predict")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *ScreeningHandler) AnalyzeCSV(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	name, data, err := h.readCSV(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_csv")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"file_name":  name,
		"bytes":      len(data),
	}).Debug("Processing csv analysis request")

	result, err := h.screeningService.AnalyzeCSV(c, data)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_csv")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *ScreeningHandler) Ingest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req screening.IngestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, response.WithDetail(screening.ErrInvalidCSV, err.Error()), ctx.Path(), "parse_ingest")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.screeningService.Ingest(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "ingest")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, result)
	}
}

// IngestTest takes the same upload as a multipart file, for trying the
// pipeline without a partner integration.
func (h *ScreeningHandler) IngestTest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	name, data, err := h.readCSV(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_csv")
	}

	result, err := h.screeningService.IngestFile(c, name, data)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "ingest_test")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, result)
	}
}

func (h *ScreeningHandler) RecordPrediction(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	v, err := h.parseVector(ctx)
	if err != nil {
		return h.handleInputError(ctx, errHandler, requestID, err, "parse_features")
	}

	prediction, err := h.screeningService.RecordPrediction(c, user.ID, v)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "record_prediction")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":    requestID,
			"user_id":       user.ID,
			"prediction_id": prediction.ID,
		}).Info("Prediction recorded")
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, prediction)
	}
}

func (h *ScreeningHandler) ListPredictions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)

	result, err := h.screeningService.ListPredictions(c, user.ID, page, limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_predictions")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *ScreeningHandler) GetPrediction(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	prediction, err := h.screeningService.GetPrediction(c, user.ID, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_prediction")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, prediction)
}
