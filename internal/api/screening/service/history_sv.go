package screeningService

import (
	"OcularBiomarker/internal/api/screening"
	"OcularBiomarker/internal/entity"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/response"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
)

func (s *screeningService) RecordPrediction(ctx context.Context, userID string, v features.Vector) (entity.Prediction, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.repo == nil {
		return entity.Prediction{}, screening.ErrHistoryDisabled
	}

	result, pred, err := s.predict(ctx, v)
	if err != nil {
		return entity.Prediction{}, err
	}

	prediction := entity.Prediction{
		ID:             result.ID,
		UserID:         userID,
		Label:          result.Label,
		TopCondition:   result.TopCondition,
		TopProbability: pred.TopProbability,
		Proba:          result.Proba,
		Features:       v,
		Reasons:        result.Reasons,
		Source:         entity.SourceManual,
		CreatedAt:      result.CreatedAt,
	}

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.Prediction{}, response.WithDetail(screening.ErrSavePrediction, err.Error())
	}
	defer repo.Rollback()

	if err := repo.Predictions.CreatePrediction(ctx, prediction); err != nil {
		return entity.Prediction{}, response.WithDetail(screening.ErrSavePrediction, err.Error())
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit prediction")
		return entity.Prediction{}, response.WithDetail(screening.ErrSavePrediction, err.Error())
	}

	return prediction, nil
}

func (s *screeningService) ListPredictions(ctx context.Context, userID string, page, limit int) (*screening.PredictionListResponse, error) {
	if s.repo == nil {
		return nil, screening.ErrHistoryDisabled
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	predictions, total, err := repo.Predictions.ListPredictionsByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &screening.PredictionListResponse{
		Predictions: predictions,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *screeningService) GetPrediction(ctx context.Context, userID, id string) (entity.Prediction, error) {
	if s.repo == nil {
		return entity.Prediction{}, screening.ErrHistoryDisabled
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		return entity.Prediction{}, err
	}

	prediction, err := repo.Predictions.GetPredictionByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, screening.ErrPredictionNotFound) {
			return entity.Prediction{}, err
		}
		s.log.WithFields(logrus.Fields{
			"request_id":    contextPkg.GetRequestID(ctx),
			"prediction_id": id,
			"error":         err.Error(),
		}).Error("Failed to load prediction")
		return entity.Prediction{}, err
	}

	return prediction, nil
}
