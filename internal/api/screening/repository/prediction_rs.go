package screeningRepository

import (
	"OcularBiomarker/internal/api/screening"
	"OcularBiomarker/internal/entity"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type PredictionDB struct {
	ID             string         `db:"id"`
	UserID         sql.NullString `db:"user_id"`
	Label          string         `db:"label"`
	TopCondition   string         `db:"top_condition"`
	TopProbability float64        `db:"top_probability"`
	Proba          string         `db:"proba"`
	Features       string         `db:"features"`
	Reasons        string         `db:"reasons"`
	Source         string         `db:"source"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *predictionsRepository) CreatePrediction(ctx context.Context, prediction entity.Prediction) error {
	requestID := contextPkg.GetRequestID(ctx)

	row, err := makePredictionDB(prediction)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode prediction columns")
		return err
	}

	query, args, err := sqlx.Named(queryCreatePrediction, row)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreatePrediction")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating prediction")
		return err
	}

	return nil
}

func (r *predictionsRepository) GetPredictionByID(ctx context.Context, id, userID string) (entity.Prediction, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row PredictionDB

	argsKV := map[string]interface{}{
		"id":      id,
		"user_id": userID,
	}

	query, args, err := sqlx.Named(queryGetPredictionByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPredictionByID named query preparation err")
		return entity.Prediction{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id":    requestID,
				"prediction_id": id,
			}).Warn("GetPredictionByID no rows found")
			return entity.Prediction{}, screening.ErrPredictionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPredictionByID execution err")
		return entity.Prediction{}, err
	}

	return makePrediction(row)
}

func (r *predictionsRepository) ListPredictionsByUser(ctx context.Context, userID string, limit, offset int) ([]entity.Prediction, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []PredictionDB
	var total int

	countQuery, countArgs, err := sqlx.Named(queryCountPredictionsByUser, map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountPredictionsByUser named query preparation err")
		return nil, 0, err
	}
	countQuery = r.q.Rebind(countQuery)

	if err := r.q.QueryRowxContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountPredictionsByUser execution err")
		return nil, 0, err
	}

	query, args, err := sqlx.Named(queryListPredictionsByUser, map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListPredictionsByUser named query preparation err")
		return nil, 0, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListPredictionsByUser execution err")
		return nil, 0, err
	}

	predictions := make([]entity.Prediction, 0, len(rows))
	for _, row := range rows {
		p, err := makePrediction(row)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id":    requestID,
				"prediction_id": row.ID,
				"error":         err.Error(),
			}).Error("Failed to decode stored prediction")
			return nil, 0, err
		}
		predictions = append(predictions, p)
	}

	return predictions, total, nil
}

func makePredictionDB(p entity.Prediction) (PredictionDB, error) {
	proba, err := json.MarshalToString(p.Proba)
	if err != nil {
		return PredictionDB{}, fmt.Errorf("encode proba: %w", err)
	}
	feats, err := json.MarshalToString(p.Features)
	if err != nil {
		return PredictionDB{}, fmt.Errorf("encode features: %w", err)
	}
	reasons, err := json.MarshalToString(p.Reasons)
	if err != nil {
		return PredictionDB{}, fmt.Errorf("encode reasons: %w", err)
	}

	return PredictionDB{
		ID:             p.ID,
		UserID:         sql.NullString{String: p.UserID, Valid: p.UserID != ""},
		Label:          p.Label,
		TopCondition:   p.TopCondition,
		TopProbability: p.TopProbability,
		Proba:          proba,
		Features:       feats,
		Reasons:        reasons,
		Source:         string(p.Source),
		CreatedAt:      p.CreatedAt,
	}, nil
}

func makePrediction(row PredictionDB) (entity.Prediction, error) {
	p := entity.Prediction{
		ID:             row.ID,
		UserID:         row.UserID.String,
		Label:          row.Label,
		TopCondition:   row.TopCondition,
		TopProbability: row.TopProbability,
		Source:         entity.PredictionSource(row.Source),
		CreatedAt:      row.CreatedAt,
	}

	var (
		proba   map[string]float64
		feats   features.Vector
		reasons []explain.Reason
	)
	if err := json.UnmarshalFromString(row.Proba, &proba); err != nil {
		return entity.Prediction{}, fmt.Errorf("decode proba: %w", err)
	}
	if err := json.UnmarshalFromString(row.Features, &feats); err != nil {
		return entity.Prediction{}, fmt.Errorf("decode features: %w", err)
	}
	if err := json.UnmarshalFromString(row.Reasons, &reasons); err != nil {
		return entity.Prediction{}, fmt.Errorf("decode reasons: %w", err)
	}

	p.Proba = proba
	p.Features = feats
	p.Reasons = reasons
	return p, nil
}
