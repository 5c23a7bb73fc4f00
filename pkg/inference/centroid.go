package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const CentroidKind = "standardized_centroid"

// CentroidModel is the on-disk form of a nearest-centroid classifier. Inputs
// are standardised with Mean and Scale, and class probabilities are a softmax
// over -d²/(2·Temperature) of the squared distance to each centroid.
type CentroidModel struct {
	Kind        string      `json:"kind" yaml:"kind"`
	Version     string      `json:"version" yaml:"version"`
	Features    []string    `json:"features" yaml:"features"`
	Labels      []string    `json:"labels" yaml:"labels"`
	Centroids   [][]float64 `json:"centroids" yaml:"centroids"`
	Mean        []float64   `json:"mean" yaml:"mean"`
	Scale       []float64   `json:"scale" yaml:"scale"`
	Temperature float64     `json:"temperature" yaml:"temperature"`
}

func (m CentroidModel) validate() error {
	if m.Kind != "" && m.Kind != CentroidKind {
		return fmt.Errorf("unsupported model kind %q", m.Kind)
	}

	dim := len(m.Features)
	if dim == 0 {
		return errors.New("model declares no features")
	}
	if len(m.Labels) == 0 || len(m.Labels) != len(m.Centroids) {
		return fmt.Errorf("model has %d labels for %d centroids", len(m.Labels), len(m.Centroids))
	}
	for i, c := range m.Centroids {
		if len(c) != dim {
			return fmt.Errorf("centroid %d has %d values, want %d", i, len(c), dim)
		}
	}
	if len(m.Mean) != dim || len(m.Scale) != dim {
		return fmt.Errorf("standardisation needs %d values", dim)
	}
	for i, s := range m.Scale {
		if s <= 0 {
			return fmt.Errorf("scale %d must be positive", i)
		}
	}
	if m.Temperature <= 0 {
		return errors.New("temperature must be positive")
	}
	return nil
}

type CentroidClassifier struct {
	model     CentroidModel
	centroids [][]float64
}

func NewCentroidClassifier(m CentroidModel) (*CentroidClassifier, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	c := &CentroidClassifier{model: m, centroids: make([][]float64, len(m.Centroids))}
	for i, raw := range m.Centroids {
		c.centroids[i] = c.standardise(raw)
	}
	return c, nil
}

func (c *CentroidClassifier) PredictProba(ctx context.Context, x []float64) ([]float64, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(x) != len(c.model.Features) {
		return nil, nil, fmt.Errorf("expected %d features, got %d", len(c.model.Features), len(x))
	}

	z := c.standardise(x)
	logits := make([]float64, len(c.centroids))
	for i, centroid := range c.centroids {
		var d2 float64
		for j := range z {
			d := z[j] - centroid[j]
			d2 += d * d
		}
		logits[i] = -d2 / (2 * c.model.Temperature)
	}

	labels := make([]string, len(c.model.Labels))
	copy(labels, c.model.Labels)

	return softmax(logits), labels, nil
}

func (c *CentroidClassifier) Labels() []string {
	return c.model.Labels
}

func (c *CentroidClassifier) standardise(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - c.model.Mean[i]) / c.model.Scale[i]
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
