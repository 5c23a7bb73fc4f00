package screeningService

import (
	"OcularBiomarker/internal/api/screening"
	screeningRepository "OcularBiomarker/internal/api/screening/repository"
	"OcularBiomarker/internal/entity"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/inference"
	"OcularBiomarker/pkg/utils"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelPath = "../../../../models/pupil_centroid_model.json"

type stubClassifier struct {
	probs  []float64
	labels []string
	err    error
}

func (s stubClassifier) PredictProba(context.Context, []float64) ([]float64, []string, error) {
	return s.probs, s.labels, s.err
}

type fakePredictions struct {
	mu    sync.Mutex
	saved []entity.Prediction
	err   error
}

func (f *fakePredictions) CreatePrediction(_ context.Context, p entity.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakePredictions) GetPredictionByID(_ context.Context, id, userID string) (entity.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.saved {
		if p.ID == id && p.UserID == userID {
			return p, nil
		}
	}
	return entity.Prediction{}, screening.ErrPredictionNotFound
}

func (f *fakePredictions) ListPredictionsByUser(_ context.Context, userID string, limit, offset int) ([]entity.Prediction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []entity.Prediction
	for _, p := range f.saved {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	total := len(mine)
	if offset >= total {
		return []entity.Prediction{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

type fakeRepository struct {
	predictions *fakePredictions
	commits     int
}

func (r *fakeRepository) NewClient(bool) (screeningRepository.Client, error) {
	return screeningRepository.Client{
		Predictions: r.predictions,
		Commit: func() error {
			r.commits++
			return nil
		},
		Rollback: func() error { return nil },
	}, nil
}

type fakeUploader struct {
	name        string
	body        []byte
	contentType string
}

func (f *fakeUploader) Download(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUploader) Upload(_ context.Context, fileName string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.name, f.body, f.contentType = fileName, data, contentType
	return "https://bucket.s3.amazonaws.com/uploads/csv/" + fileName, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func centroidService(t *testing.T, repo screeningRepository.Repository) IScreeningService {
	t.Helper()
	model := inference.LoadModel(context.Background(), inference.LoadOptions{Path: modelPath})
	require.True(t, model.Available(), "%v", model.Err())

	return NewScreeningService(quietLogger(), inference.NewAdapter(model), repo, nil, utils.New(), Options{
		Thresholds: explain.DefaultThresholds(),
		UploadDir:  t.TempDir(),
	})
}

func stubService(t *testing.T, c inference.Classifier) IScreeningService {
	t.Helper()
	return NewScreeningService(quietLogger(), inference.NewAdapter(inference.Loaded(c, "stub")), nil, nil, utils.New(), Options{
		Thresholds: explain.DefaultThresholds(),
		UploadDir:  t.TempDir(),
	})
}

func lowVariabilityVector() features.Vector {
	return features.Vector{
		N: 300, LMean: 3.0, RMean: 3.1, LStd: 0.03, RStd: 0.04,
		Asym: 0.1, CorrLB: features.Float(0.05), CorrRB: features.Float(0.10), STV: 0.05,
	}
}

func metrics(reasons []explain.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.Metric
	}
	return out
}

func TestPredict_LowVariabilityVector(t *testing.T) {
	svc := centroidService(t, nil)

	result, err := svc.Predict(context.Background(), lowVariabilityVector())
	require.NoError(t, err)

	assert.Len(t, result.ID, 26)
	assert.Equal(t, "Parkinson’s", result.Label)
	assert.Equal(t, result.Label, result.TopCondition)
	assert.GreaterOrEqual(t, result.Proba["Parkinson’s"], 0.9)
	assert.Len(t, result.Proba, 4)

	ms := metrics(result.Reasons)
	assert.Contains(t, ms, explain.MetricConfidence)
	assert.NotContains(t, ms, explain.MetricVariability)
	assert.NotContains(t, ms, explain.MetricFallback)

	require.Len(t, result.Scores, 4)
	assert.Equal(t, result.TopCondition, result.Scores[0].Condition)
	assert.Equal(t, result.Reasons, result.Scores[0].Reasons)
	for i := 1; i < len(result.Scores); i++ {
		assert.Empty(t, result.Scores[i].Reasons)
		assert.GreaterOrEqual(t, result.Scores[i-1].Probability, result.Scores[i].Probability)
	}
}

func TestPredict_TiesKeepClassifierOrder(t *testing.T) {
	svc := stubService(t, stubClassifier{
		probs:  []float64{0.2, 0.4, 0.4},
		labels: []string{"ptsd", "stress", "alzheimers"},
	})

	result, err := svc.Predict(context.Background(), features.Vector{N: 1})
	require.NoError(t, err)
	assert.Equal(t, "High Stress", result.TopCondition)
	assert.Equal(t, []string{"High Stress", "Alzheimer’s", "PTSD"}, []string{
		result.Scores[0].Condition, result.Scores[1].Condition, result.Scores[2].Condition,
	})
	assert.Equal(t, []string{explain.MetricFallback}, metrics(result.Scores[0].Reasons))
}

func TestPredict_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := stubService(t, stubClassifier{}).Predict(ctx, features.Vector{N: -1})
	assert.ErrorIs(t, err, screening.ErrInvalidFeatures)

	_, err = stubService(t, stubClassifier{probs: []float64{0.5}, labels: []string{"a", "b"}}).Predict(ctx, features.Vector{})
	assert.ErrorIs(t, err, screening.ErrInference)

	_, err = stubService(t, stubClassifier{err: errors.New("boom")}).Predict(ctx, features.Vector{})
	assert.ErrorIs(t, err, screening.ErrInference)

	_, err = stubService(t, stubClassifier{err: fmt.Errorf("scoring: %w", context.DeadlineExceeded)}).Predict(ctx, features.Vector{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unavailable := NewScreeningService(quietLogger(), inference.NewAdapter(inference.Unavailable("missing.json", errors.New("no such file"))), nil, nil, utils.New(), Options{})
	_, err = unavailable.Predict(ctx, features.Vector{})
	assert.ErrorIs(t, err, screening.ErrModelUnavailable)

	health := unavailable.Health(ctx)
	assert.True(t, health.OK)
	assert.False(t, health.ModelLoaded)
	assert.Equal(t, "missing.json", health.ModelSource)
	assert.Contains(t, health.Error, "no such file")
}

func TestHealth_Loaded(t *testing.T) {
	health := centroidService(t, nil).Health(context.Background())
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, modelPath, health.ModelSource)
	assert.Empty(t, health.Error)
}

func sessionCSV(rows int) string {
	var b strings.Builder
	b.WriteString("frame,left_pupil_mm,right_pupil_mm,brightness\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,%.3f,%.3f,%d\n", i, 3.0+0.01*float64(i%3), 3.1+0.01*float64(i%2), 100+i%7)
	}
	return b.String()
}

func TestAnalyzeCSV(t *testing.T) {
	svc := centroidService(t, nil)

	analysis, err := svc.AnalyzeCSV(context.Background(), []byte(sessionCSV(450)))
	require.NoError(t, err)

	assert.Equal(t, 450, analysis.NRows)
	assert.Equal(t, 450, analysis.Features.N)
	assert.LessOrEqual(t, len(analysis.Samples), features.MaxSamples)
	require.NotNil(t, analysis.Features.CorrLB)
	require.NotNil(t, analysis.Prediction)
	assert.Empty(t, analysis.PredictionError)
}

func TestAnalyzeCSV_Errors(t *testing.T) {
	svc := centroidService(t, nil)
	ctx := context.Background()

	_, err := svc.AnalyzeCSV(ctx, []byte(""))
	assert.ErrorIs(t, err, screening.ErrInvalidCSV)

	_, err = svc.AnalyzeCSV(ctx, []byte("time,value\n1,2\n"))
	assert.ErrorIs(t, err, screening.ErrInvalidCSV)

	unavailable := NewScreeningService(quietLogger(), inference.NewAdapter(inference.Unavailable("", nil)), nil, nil, utils.New(), Options{})
	analysis, err := unavailable.AnalyzeCSV(ctx, []byte(sessionCSV(10)))
	require.NoError(t, err, "analysis still succeeds without a model")
	assert.Nil(t, analysis.Prediction)
	assert.Contains(t, analysis.PredictionError, screening.ErrModelUnavailable.Error())
}

func TestIngest_LocalStorage(t *testing.T) {
	dir := t.TempDir()
	model := inference.LoadModel(context.Background(), inference.LoadOptions{Path: modelPath})
	svc := NewScreeningService(quietLogger(), inference.NewAdapter(model), nil, nil, utils.New(), Options{
		Thresholds: explain.DefaultThresholds(),
		UploadDir:  dir,
	})

	data := []byte(sessionCSV(20))
	resp, err := svc.Ingest(context.Background(), screening.IngestRequest{
		FileName:   "partner export.csv",
		FileBase64: base64.StdEncoding.EncodeToString(data),
		Meta:       map[string]interface{}{"device": "kiosk-1"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Accepted)
	assert.Equal(t, len(data), resp.Stored.Bytes)
	assert.Equal(t, screening.CSVContentType, resp.Stored.ContentType)
	assert.True(t, strings.HasSuffix(resp.Stored.Path, "/partner_export.csv"))
	assert.Equal(t, "kiosk-1", resp.Meta["device"])
	require.NotNil(t, resp.Analysis)

	onDisk, err := os.ReadFile(filepath.Join(dir, "partner_export.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	skip := false
	resp, err = svc.Ingest(context.Background(), screening.IngestRequest{
		FileBase64: base64.StdEncoding.EncodeToString(data),
		Analyze:    &skip,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Analysis)
	assert.Contains(t, resp.Stored.Path, "upload_")
}

func TestIngest_Rejects(t *testing.T) {
	svc := centroidService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  screening.IngestRequest
	}{
		{"wrong content type", screening.IngestRequest{FileBase64: "YSxi", ContentType: "application/json"}},
		{"bad base64", screening.IngestRequest{FileBase64: "!!!"}},
		{"not csv", screening.IngestRequest{FileBase64: base64.StdEncoding.EncodeToString([]byte("hello"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tt.req)
			assert.ErrorIs(t, err, screening.ErrInvalidCSV)
		})
	}
}

func TestIngestFile_UploadsToObjectStorage(t *testing.T) {
	uploader := &fakeUploader{}
	model := inference.LoadModel(context.Background(), inference.LoadOptions{Path: modelPath})
	svc := NewScreeningService(quietLogger(), inference.NewAdapter(model), nil, uploader, utils.New(), Options{
		Thresholds: explain.DefaultThresholds(),
	})

	data := []byte(sessionCSV(5))
	resp, err := svc.IngestFile(context.Background(), "s.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "s.csv", uploader.name)
	assert.True(t, bytes.Equal(data, uploader.body))
	assert.Equal(t, screening.CSVContentType, uploader.contentType)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/uploads/csv/s.csv", resp.Stored.Path)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	disabled := centroidService(t, nil)
	_, err := disabled.RecordPrediction(ctx, "u1", lowVariabilityVector())
	assert.ErrorIs(t, err, screening.ErrHistoryDisabled)
	_, err = disabled.ListPredictions(ctx, "u1", 1, 10)
	assert.ErrorIs(t, err, screening.ErrHistoryDisabled)

	repo := &fakeRepository{predictions: &fakePredictions{}}
	svc := centroidService(t, repo)

	saved, err := svc.RecordPrediction(ctx, "u1", lowVariabilityVector())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.commits)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, entity.SourceManual, saved.Source)
	assert.Equal(t, "Parkinson’s", saved.TopCondition)

	_, err = svc.RecordPrediction(ctx, "u2", lowVariabilityVector())
	require.NoError(t, err)

	list, err := svc.ListPredictions(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)

	got, err := svc.GetPrediction(ctx, "u1", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)

	_, err = svc.GetPrediction(ctx, "u2", saved.ID)
	assert.ErrorIs(t, err, screening.ErrPredictionNotFound)

	repo.predictions.err = errors.New("connection reset")
	_, err = svc.RecordPrediction(ctx, "u1", lowVariabilityVector())
	assert.ErrorIs(t, err, screening.ErrSavePrediction)
}
