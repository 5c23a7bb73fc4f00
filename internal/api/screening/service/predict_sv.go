package screeningService

import (
	"OcularBiomarker/internal/api/screening"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/inference"
	"OcularBiomarker/pkg/response"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
	"sort"
	"time"
)

func (s *screeningService) Predict(ctx context.Context, v features.Vector) (screening.PredictionResult, error) {
	result, _, err := s.predict(ctx, v)
	return result, err
}

func (s *screeningService) predict(ctx context.Context, v features.Vector) (screening.PredictionResult, inference.Prediction, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := v.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected feature vector")
		return screening.PredictionResult{}, inference.Prediction{}, response.WithDetail(screening.ErrInvalidFeatures, err.Error())
	}

	pred, err := s.adapter.Predict(ctx, v)
	if err != nil {
		return screening.PredictionResult{}, inference.Prediction{}, s.predictError(ctx, err)
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return screening.PredictionResult{}, inference.Prediction{}, err
	}

	reasons := explain.Explain(v, pred.TopCondition, pred.TopProbability, s.thresholds)

	s.log.WithFields(logrus.Fields{
		"request_id":      requestID,
		"prediction_id":   id,
		"top_condition":   pred.TopCondition,
		"top_probability": pred.TopProbability,
		"reasons":         len(reasons),
	}).Info("Prediction completed")

	return screening.PredictionResult{
		ID:           id,
		Label:        pred.TopCondition,
		Proba:        pred.Proba(),
		TopCondition: pred.TopCondition,
		Reasons:      reasons,
		Scores:       rankScores(pred, reasons),
		CreatedAt:    time.Now().UTC(),
	}, pred, nil
}

// rankScores orders classes by probability, highest first. Ties keep the
// classifier's order, so the top class leads the list and is the only one
// carrying reasons.
func rankScores(pred inference.Prediction, reasons []explain.Reason) []screening.Score {
	scores := make([]screening.Score, len(pred.Labels))
	for i, label := range pred.Labels {
		scores[i] = screening.Score{Condition: label, Probability: pred.Probabilities[i]}
	}

	top := scores[pred.TopIndex]
	rest := append(append([]screening.Score{}, scores[:pred.TopIndex]...), scores[pred.TopIndex+1:]...)
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Probability > rest[j].Probability
	})

	top.Reasons = reasons
	return append([]screening.Score{top}, rest...)
}

func (s *screeningService) predictError(ctx context.Context, err error) error {
	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"error":      err.Error(),
	}

	switch {
	case errors.Is(err, inference.ErrModelUnavailable):
		s.log.WithFields(fields).Warn("Prediction requested without a loaded model")
		return response.WithDetail(screening.ErrModelUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.WithFields(fields).Warn("Prediction timed out")
		return err
	default:
		s.log.WithFields(fields).Warn("Classifier failed")
		return response.WithDetail(screening.ErrInference, err.Error())
	}
}

func (s *screeningService) Health(_ context.Context) screening.HealthResponse {
	model := s.adapter.Model()

	resp := screening.HealthResponse{
		OK:          true,
		ModelLoaded: model.Available(),
		ModelSource: model.Source(),
	}
	if err := model.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}
