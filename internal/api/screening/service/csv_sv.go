package screeningService

import (
	"OcularBiomarker/internal/api/screening"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/response"
	"OcularBiomarker/pkg/utils"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

func (s *screeningService) AnalyzeCSV(ctx context.Context, data []byte) (screening.CSVAnalysis, error) {
	requestID := contextPkg.GetRequestID(ctx)

	samples, err := features.ParseCSV(bytes.NewReader(data))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected csv upload")
		return screening.CSVAnalysis{}, response.WithDetail(screening.ErrInvalidCSV, err.Error())
	}

	vector, err := features.Aggregate(samples)
	if err != nil {
		return screening.CSVAnalysis{}, response.WithDetail(screening.ErrInvalidCSV, err.Error())
	}

	analysis := screening.CSVAnalysis{
		NRows:    len(samples),
		Features: vector,
		Samples:  features.Downsample(samples, features.MaxSamples),
	}

	result, _, err := s.predict(ctx, vector)
	switch {
	case err == nil:
		analysis.Prediction = &result
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return screening.CSVAnalysis{}, err
	default:
		analysis.PredictionError = err.Error()
		var respErr *response.Error
		if errors.As(err, &respErr) && respErr.Detail != "" {
			analysis.PredictionError = fmt.Sprintf("%s: %s", respErr.Error(), respErr.Detail)
		}
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"n_rows":     analysis.NRows,
		"samples":    len(analysis.Samples),
		"predicted":  analysis.Prediction != nil,
	}).Debug("CSV analysis completed")

	return analysis, nil
}

// Ingest accepts a partner upload: a base64 csv, stored and optionally
// analysed.
func (s *screeningService) Ingest(ctx context.Context, req screening.IngestRequest) (screening.IngestResponse, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = screening.CSVContentType
	}
	if contentType != screening.CSVContentType {
		return screening.IngestResponse{}, response.WithDetail(screening.ErrInvalidCSV, "content_type must be text/csv")
	}

	data, err := decodeBase64(req.FileBase64)
	if err != nil {
		return screening.IngestResponse{}, response.WithDetail(screening.ErrInvalidCSV, "file_base64 is not valid base64")
	}

	resp, err := s.storeAndAnalyze(ctx, req.FileName, data, req.Analyze == nil || *req.Analyze)
	if err != nil {
		return screening.IngestResponse{}, err
	}
	resp.Meta = req.Meta
	return resp, nil
}

// IngestFile stores and analyses a csv uploaded as a multipart file.
func (s *screeningService) IngestFile(ctx context.Context, fileName string, data []byte) (screening.IngestResponse, error) {
	return s.storeAndAnalyze(ctx, fileName, data, true)
}

func (s *screeningService) storeAndAnalyze(ctx context.Context, fileName string, data []byte, analyze bool) (screening.IngestResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if !utils.LooksLikeCSV(data) {
		return screening.IngestResponse{}, response.WithDetail(screening.ErrInvalidCSV, "payload does not look like csv")
	}

	name := utils.SafeFileName(fileName)
	if strings.Trim(name, "._") == "" {
		name = fmt.Sprintf("upload_%d.csv", time.Now().UnixMilli())
	}

	stored, err := s.store(ctx, name, data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"file_name":  name,
			"error":      err.Error(),
		}).Error("Failed to store uploaded csv")
		return screening.IngestResponse{}, response.WithDetail(screening.ErrStoreFile, err.Error())
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"path":       stored.Path,
		"bytes":      stored.Bytes,
	}).Info("Stored uploaded csv")

	resp := screening.IngestResponse{Accepted: true, Stored: stored}
	if !analyze {
		return resp, nil
	}

	analysis, err := s.AnalyzeCSV(ctx, data)
	if err != nil {
		return screening.IngestResponse{}, err
	}
	resp.Analysis = &analysis

	return resp, nil
}

// store uploads to object storage when configured and falls back to the
// local upload directory.
func (s *screeningService) store(ctx context.Context, name string, data []byte) (screening.StoredFile, error) {
	stored := screening.StoredFile{Bytes: len(data), ContentType: screening.CSVContentType}

	if s.s3Client != nil {
		location, err := s.s3Client.Upload(ctx, name, bytes.NewReader(data), screening.CSVContentType)
		if err != nil {
			return screening.StoredFile{}, err
		}
		stored.Path = location
		return stored, nil
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return screening.StoredFile{}, err
	}
	if err := os.WriteFile(filepath.Join(s.uploadDir, name), data, 0o644); err != nil {
		return screening.StoredFile{}, err
	}

	stored.Path = path.Join("/", filepath.ToSlash(s.uploadDir), name)
	return stored, nil
}

func decodeBase64(raw string) ([]byte, error) {
	raw = strings.Join(strings.Fields(raw), "")
	if i := strings.Index(raw, ";base64,"); i >= 0 {
		raw = raw[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	return data, nil
}
