package entity

import (
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"time"
)

type PredictionSource string

const SourceManual PredictionSource = "manual"

type Prediction struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id,omitempty"`
	Label          string             `json:"label"`
	TopCondition   string             `json:"top_condition"`
	TopProbability float64            `json:"top_probability"`
	Proba          map[string]float64 `json:"proba"`
	Features       features.Vector    `json:"features"`
	Reasons        []explain.Reason   `json:"reasons"`
	Source         PredictionSource   `json:"source"`
	CreatedAt      time.Time          `json:"created_at"`
}
