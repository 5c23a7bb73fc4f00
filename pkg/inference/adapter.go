package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"OcularBiomarker/pkg/features"
)

type Prediction struct {
	RawLabels      []string
	Labels         []string
	Probabilities  []float64
	TopIndex       int
	TopCondition   string
	TopProbability float64
}

// Proba maps display labels to probabilities. When two raw labels normalize
// to the same display name the later one wins.
func (p Prediction) Proba() map[string]float64 {
	out := make(map[string]float64, len(p.Labels))
	for i, label := range p.Labels {
		out[label] = p.Probabilities[i]
	}
	return out
}

type Adapter struct {
	model Model
}

func NewAdapter(m Model) *Adapter {
	return &Adapter{model: m}
}

func (a *Adapter) Model() Model {
	return a.model
}

func (a *Adapter) Predict(ctx context.Context, v features.Vector) (Prediction, error) {
	if !a.model.Available() {
		return Prediction{}, a.model.Err()
	}

	probs, labels, err := a.model.classifier.PredictProba(ctx, v.Slice())
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	if err := checkOutput(probs, labels); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	top := argmax(probs)
	normalized := make([]string, len(labels))
	for i, l := range labels {
		normalized[i] = NormalizeLabel(l)
	}

	return Prediction{
		RawLabels:      labels,
		Labels:         normalized,
		Probabilities:  probs,
		TopIndex:       top,
		TopCondition:   normalized[top],
		TopProbability: probs[top],
	}, nil
}

func checkOutput(probs []float64, labels []string) error {
	if len(probs) == 0 {
		return errors.New("classifier returned no probabilities")
	}
	if len(probs) != len(labels) {
		return fmt.Errorf("classifier returned %d probabilities for %d labels", len(probs), len(labels))
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("probability %d is not finite", i)
		}
	}
	return nil
}

// argmax keeps the first index on ties.
func argmax(a []float64) int {
	best := 0
	for i := 1; i < len(a); i++ {
		if a[i] > a[best] {
			best = i
		}
	}
	return best
}
