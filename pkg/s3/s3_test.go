package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	bucket, key, err := ParseURL("s3://models-bucket/pupil/centroid.json")
	require.NoError(t, err)
	assert.Equal(t, "models-bucket", bucket)
	assert.Equal(t, "pupil/centroid.json", key)

	_, _, err = ParseURL("https://example.com/model.json")
	assert.Error(t, err)

	_, _, err = ParseURL("s3://bucket-only")
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("s3://a/b"))
	assert.False(t, IsURL("models/pupil_centroid_model.json"))
}

func TestGenerateUniqueFileName(t *testing.T) {
	name := generateUniqueFileName("session.csv")
	assert.Contains(t, name, "uploads/csv/")
	assert.Contains(t, name, "-session.csv")
}
