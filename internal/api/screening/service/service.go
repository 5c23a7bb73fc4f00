package screeningService

import (
	"OcularBiomarker/internal/api/screening"
	screeningRepository "OcularBiomarker/internal/api/screening/repository"
	"OcularBiomarker/internal/entity"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/inference"
	"OcularBiomarker/pkg/s3"
	"OcularBiomarker/pkg/utils"
	"context"
	"github.com/sirupsen/logrus"
)

type IScreeningService interface {
	Predict(ctx context.Context, v features.Vector) (screening.PredictionResult, error)
	Health(ctx context.Context) screening.HealthResponse
	AnalyzeCSV(ctx context.Context, data []byte) (screening.CSVAnalysis, error)
	Ingest(ctx context.Context, req screening.IngestRequest) (screening.IngestResponse, error)
	IngestFile(ctx context.Context, fileName string, data []byte) (screening.IngestResponse, error)
	RecordPrediction(ctx context.Context, userID string, v features.Vector) (entity.Prediction, error)
	ListPredictions(ctx context.Context, userID string, page, limit int) (*screening.PredictionListResponse, error)
	GetPrediction(ctx context.Context, userID, id string) (entity.Prediction, error)
}

type Options struct {
	Thresholds explain.Thresholds
	UploadDir  string
}

type screeningService struct {
	log        *logrus.Logger
	adapter    *inference.Adapter
	repo       screeningRepository.Repository
	s3Client   s3.ItfS3
	utils      utils.IUtils
	thresholds explain.Thresholds
	uploadDir  string
}

// NewScreeningService wires the prediction pipeline. repo and s3Client may be
// nil: history endpoints then report ErrHistoryDisabled and uploads are kept
// on local disk.
func NewScreeningService(
	log *logrus.Logger,
	adapter *inference.Adapter,
	repo screeningRepository.Repository,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	opts Options,
) IScreeningService {
	uploadDir := opts.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads/csv"
	}

	return &screeningService{
		log:        log,
		adapter:    adapter,
		repo:       repo,
		s3Client:   s3Client,
		utils:      utils,
		thresholds: opts.Thresholds,
		uploadDir:  uploadDir,
	}
}
