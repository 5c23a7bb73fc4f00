package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	s3Pkg "OcularBiomarker/pkg/s3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ObjectFetcher downloads model files kept in object storage.
type ObjectFetcher interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

type LoadOptions struct {
	Path          string
	ClassifierURL string
	Timeout       time.Duration
	Fetcher       ObjectFetcher
}

// LoadModel never fails: a model that cannot be loaded comes back as
// Unavailable so the service can still start and report it. A classifier URL
// takes precedence over a model path.
func LoadModel(ctx context.Context, opts LoadOptions) Model {
	if opts.ClassifierURL != "" {
		return Loaded(NewRemoteClassifier(opts.ClassifierURL, opts.Timeout), opts.ClassifierURL)
	}

	if opts.Path == "" {
		return Unavailable("", fmt.Errorf("no model path configured"))
	}

	data, err := readModel(ctx, opts)
	if err != nil {
		return Unavailable(opts.Path, err)
	}

	m, err := ParseCentroidModel(data, filepath.Ext(opts.Path))
	if err != nil {
		return Unavailable(opts.Path, err)
	}

	c, err := NewCentroidClassifier(m)
	if err != nil {
		return Unavailable(opts.Path, err)
	}

	return Loaded(c, opts.Path)
}

func readModel(ctx context.Context, opts LoadOptions) ([]byte, error) {
	if !s3Pkg.IsURL(opts.Path) {
		return os.ReadFile(opts.Path)
	}

	if opts.Fetcher == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	bucket, key, err := s3Pkg.ParseURL(opts.Path)
	if err != nil {
		return nil, err
	}
	return opts.Fetcher.Download(ctx, bucket, key)
}

// ParseCentroidModel decodes a model file; ".yaml" and ".yml" are read as
// YAML and anything else as JSON.
func ParseCentroidModel(data []byte, ext string) (CentroidModel, error) {
	var m CentroidModel

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return m, fmt.Errorf("decode yaml model: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return m, fmt.Errorf("decode json model: %w", err)
		}
	}

	return m, nil
}
