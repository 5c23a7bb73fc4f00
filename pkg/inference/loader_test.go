package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OcularBiomarker/pkg/features"
)

const yamlModel = `
kind: standardized_centroid
version: "1"
features: [a, b]
labels: [calm, stress]
centroids:
  - [0, 0]
  - [2, 2]
mean: [1, 1]
scale: [1, 1]
temperature: 1
`

type fakeFetcher struct {
	data   []byte
	err    error
	bucket string
	key    string
}

func (f *fakeFetcher) Download(_ context.Context, bucket, key string) ([]byte, error) {
	f.bucket, f.key = bucket, key
	return f.data, f.err
}

func TestLoadModel_LocalJSON(t *testing.T) {
	m := LoadModel(context.Background(), LoadOptions{Path: modelPath})
	require.True(t, m.Available())
	assert.Equal(t, modelPath, m.Source())
}

func TestLoadModel_LocalYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlModel), 0o600))

	m := LoadModel(context.Background(), LoadOptions{Path: path})
	require.True(t, m.Available())

	// a two-feature model rejects the nine-field vector
	pred, err := NewAdapter(m).Predict(context.Background(), features.Vector{})
	assert.ErrorIs(t, err, ErrInference)
	assert.Empty(t, pred.Labels)
}

func TestLoadModel_S3(t *testing.T) {
	data, err := os.ReadFile(modelPath)
	require.NoError(t, err)

	fetcher := &fakeFetcher{data: data}
	m := LoadModel(context.Background(), LoadOptions{Path: "s3://models/pupil/model.json", Fetcher: fetcher})

	require.True(t, m.Available())
	assert.Equal(t, "models", fetcher.bucket)
	assert.Equal(t, "pupil/model.json", fetcher.key)
}

func TestLoadModel_Unavailable(t *testing.T) {
	tests := map[string]LoadOptions{
		"no path":       {},
		"missing file":  {Path: filepath.Join(t.TempDir(), "nope.json")},
		"s3 no fetcher": {Path: "s3://models/model.json"},
		"s3 failure":    {Path: "s3://models/model.json", Fetcher: &fakeFetcher{err: errors.New("access denied")}},
	}

	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			m := LoadModel(context.Background(), opts)
			assert.False(t, m.Available())
			assert.ErrorIs(t, m.Err(), ErrModelUnavailable)
		})
	}
}

func TestLoadModel_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"standardized_centroid"}`), 0o600))

	m := LoadModel(context.Background(), LoadOptions{Path: path})
	assert.False(t, m.Available())

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	m = LoadModel(context.Background(), LoadOptions{Path: path})
	assert.False(t, m.Available())
}

func TestLoadModel_RemoteTakesPrecedence(t *testing.T) {
	m := LoadModel(context.Background(), LoadOptions{Path: modelPath, ClassifierURL: "http://scoring:8000"})
	require.True(t, m.Available())
	assert.Equal(t, "http://scoring:8000", m.Source())
}

func TestParseCentroidModel_YAML(t *testing.T) {
	m, err := ParseCentroidModel([]byte(yamlModel), ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{"calm", "stress"}, m.Labels)

	c, err := NewCentroidClassifier(m)
	require.NoError(t, err)
	probs, labels, err := c.PredictProba(context.Background(), []float64{1.9, 2.1})
	require.NoError(t, err)
	assert.Equal(t, "stress", labels[argmax(probs)])
}
