package inference

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInference        = errors.New("inference failed")
)

// Classifier scores one feature vector. Probabilities and labels are parallel
// slices in the classifier's own class order.
type Classifier interface {
	PredictProba(ctx context.Context, x []float64) ([]float64, []string, error)
}

// Model is either loaded with a classifier or unavailable with the reason it
// failed to load.
type Model struct {
	classifier Classifier
	source     string
	loadErr    error
}

func Loaded(c Classifier, source string) Model {
	return Model{classifier: c, source: source}
}

func Unavailable(source string, err error) Model {
	if err == nil {
		err = errors.New("no classifier configured")
	}
	return Model{source: source, loadErr: err}
}

func (m Model) Available() bool {
	return m.classifier != nil
}

func (m Model) Source() string {
	return m.source
}

// Err returns nil for a loaded model, otherwise an ErrModelUnavailable
// carrying the source and the load failure.
func (m Model) Err() error {
	if m.Available() {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, m.source, m.loadErr)
}
