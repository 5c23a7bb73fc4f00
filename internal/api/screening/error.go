package screening

import "OcularBiomarker/pkg/response"

var (
	ErrInvalidFeatures    = response.NewError(400, "invalid feature vector")
	ErrInvalidCSV         = response.NewError(400, "invalid csv")
	ErrInference          = response.NewError(400, "prediction failed")
	ErrModelUnavailable   = response.NewError(503, "model not loaded")
	ErrPredictionNotFound = response.NewError(404, "prediction not found")
	ErrHistoryDisabled    = response.NewError(503, "prediction history is not configured")
	ErrStoreFile          = response.NewError(500, "failed to store uploaded file")
	ErrSavePrediction     = response.NewError(500, "failed to save prediction")
)
