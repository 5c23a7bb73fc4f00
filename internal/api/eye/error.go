package eye

import (
	"OcularBiomarker/pkg/response"
	"net/http"
)

var (
	ErrInvalidInput        = response.NewError(http.StatusBadRequest, "invalid landmark input")
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "invalid image")
	ErrSessionRequired     = response.NewError(http.StatusBadRequest, "session id is required")
	ErrProviderUnavailable = response.NewError(http.StatusServiceUnavailable, "landmark provider unavailable")
	ErrTrailStore          = response.NewError(http.StatusInternalServerError, "trail store failure")
)
