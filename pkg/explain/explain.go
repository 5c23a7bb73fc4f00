package explain

import (
	"fmt"
	"math"

	"OcularBiomarker/pkg/features"
)

const (
	MetricAsymmetry        = "asymmetry"
	MetricVariability      = "short_term_variability"
	MetricCorrelationLeft  = "brightness_correlation_left"
	MetricCorrelationRight = "brightness_correlation_right"
	MetricConfidence       = "confidence"
	MetricFallback         = "top_match"
)

const FallbackText = "top match among tested classes."

type Reason struct {
	Metric string `json:"metric"`
	Level  string `json:"level"`
	Text   string `json:"text"`
}

// Thresholds holds the lower bound of every reason tier. Each pair must be
// ordered low < high.
type Thresholds struct {
	AsymmetrySmall      float64 `validate:"gt=0,ltfield=AsymmetryLarge"`
	AsymmetryLarge      float64 `validate:"gt=0"`
	VariabilityModerate float64 `validate:"gt=0,ltfield=VariabilityHigh"`
	VariabilityHigh     float64 `validate:"gt=0"`
	CorrelationModerate float64 `validate:"gt=0,ltfield=CorrelationStrong"`
	CorrelationStrong   float64 `validate:"gt=0,lte=1"`
	ConfidenceHigh      float64 `validate:"gt=0,ltfield=ConfidenceVeryHigh"`
	ConfidenceVeryHigh  float64 `validate:"gt=0,lte=1"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AsymmetrySmall:      0.10,
		AsymmetryLarge:      0.30,
		VariabilityModerate: 0.20,
		VariabilityHigh:     0.40,
		CorrelationModerate: 0.40,
		CorrelationStrong:   0.60,
		ConfidenceHigh:      0.75,
		ConfidenceVeryHigh:  0.90,
	}
}

// Explain lists every threshold the vector and the top probability cross, in
// a fixed order: asymmetry, variability, left then right brightness coupling,
// confidence. It never returns an empty list.
func Explain(v features.Vector, top string, probability float64, th Thresholds) []Reason {
	var reasons []Reason

	switch asym := math.Abs(v.Asym); {
	case asym >= th.AsymmetryLarge:
		reasons = append(reasons, Reason{
			Metric: MetricAsymmetry,
			Level:  "large",
			Text:   fmt.Sprintf("Large left/right pupil asymmetry (%.2f mm).", asym),
		})
	case asym >= th.AsymmetrySmall:
		reasons = append(reasons, Reason{
			Metric: MetricAsymmetry,
			Level:  "small",
			Text:   fmt.Sprintf("Small left/right pupil asymmetry (%.2f mm).", asym),
		})
	}

	switch {
	case v.STV >= th.VariabilityHigh:
		reasons = append(reasons, Reason{
			Metric: MetricVariability,
			Level:  "high",
			Text:   fmt.Sprintf("High short-term pupil variability (%.2f).", v.STV),
		})
	case v.STV >= th.VariabilityModerate:
		reasons = append(reasons, Reason{
			Metric: MetricVariability,
			Level:  "moderate",
			Text:   fmt.Sprintf("Moderate short-term pupil variability (%.2f).", v.STV),
		})
	}

	if r, ok := correlation(MetricCorrelationLeft, "Left", v.CorrLB, th); ok {
		reasons = append(reasons, r)
	}
	if r, ok := correlation(MetricCorrelationRight, "Right", v.CorrRB, th); ok {
		reasons = append(reasons, r)
	}

	switch {
	case probability >= th.ConfidenceVeryHigh:
		reasons = append(reasons, Reason{
			Metric: MetricConfidence,
			Level:  "very high",
			Text:   fmt.Sprintf("Very high confidence in %s (%.0f%%).", top, probability*100),
		})
	case probability >= th.ConfidenceHigh:
		reasons = append(reasons, Reason{
			Metric: MetricConfidence,
			Level:  "high",
			Text:   fmt.Sprintf("High confidence in %s (%.0f%%).", top, probability*100),
		})
	}

	if len(reasons) == 0 {
		reasons = append(reasons, Reason{
			Metric: MetricFallback,
			Level:  "default",
			Text:   FallbackText,
		})
	}

	return reasons
}

func correlation(metric, side string, r *float64, th Thresholds) (Reason, bool) {
	if r == nil {
		return Reason{}, false
	}

	abs := math.Abs(*r)
	switch {
	case abs >= th.CorrelationStrong:
		return Reason{
			Metric: metric,
			Level:  "strong",
			Text:   fmt.Sprintf("%s pupil strongly tracks brightness (r=%.2f).", side, *r),
		}, true
	case abs >= th.CorrelationModerate:
		return Reason{
			Metric: metric,
			Level:  "moderate",
			Text:   fmt.Sprintf("%s pupil moderately tracks brightness (r=%.2f).", side, *r),
		}, true
	}
	return Reason{}, false
}
