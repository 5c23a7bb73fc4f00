package screening

import (
	"OcularBiomarker/internal/entity"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"time"
)

const CSVContentType = "text/csv"

// Score is one class of a prediction. Only the top ranked score carries
// reasons.
type Score struct {
	Condition   string           `json:"condition"`
	Probability float64          `json:"probability"`
	Reasons     []explain.Reason `json:"reasons,omitempty"`
}

type PredictionResult struct {
	ID           string             `json:"id"`
	Label        string             `json:"label"`
	Proba        map[string]float64 `json:"proba"`
	TopCondition string             `json:"top_condition"`
	Reasons      []explain.Reason   `json:"reasons"`
	Scores       []Score            `json:"scores"`
	CreatedAt    time.Time          `json:"created_at"`
}

type HealthResponse struct {
	OK          bool   `json:"ok"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelSource string `json:"model_source"`
	Error       string `json:"error,omitempty"`
}

type CSVAnalysis struct {
	NRows           int               `json:"n_rows"`
	Features        features.Vector   `json:"features"`
	Samples         []features.Sample `json:"samples"`
	Prediction      *PredictionResult `json:"prediction,omitempty"`
	PredictionError string            `json:"prediction_error,omitempty"`
}

type IngestRequest struct {
	FileName    string                 `json:"file_name"`
	FileBase64  string                 `json:"file_base64" validate:"required"`
	ContentType string                 `json:"content_type"`
	Meta        map[string]interface{} `json:"meta"`
	Analyze     *bool                  `json:"analyze"`
}

type StoredFile struct {
	Path        string `json:"path"`
	Bytes       int    `json:"bytes"`
	ContentType string `json:"content_type"`
}

type IngestResponse struct {
	Accepted bool                   `json:"accepted"`
	Stored   StoredFile             `json:"stored"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
	Analysis *CSVAnalysis           `json:"analysis,omitempty"`
}

type PredictionListResponse struct {
	Predictions []entity.Prediction `json:"predictions"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}
