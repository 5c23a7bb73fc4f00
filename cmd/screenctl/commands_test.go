package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OcularBiomarker/internal/api/screening"
)

const modelPath = "../../models/pupil_centroid_model.json"

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--model", modelPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPredictCommand_Stdin(t *testing.T) {
	out, err := run(t, `{"n":300,"L_mean":3.0,"R_mean":3.1,"L_std":0.03,"R_std":0.04,"asym":0.1,"corr_L_B":0.05,"corr_R_B":0.10,"stv":0.05}`, "predict")
	require.NoError(t, err)

	var result screening.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Parkinson’s", result.TopCondition)
	assert.Len(t, result.Scores, 4)
}

func TestPredictCommand_Errors(t *testing.T) {
	_, err := run(t, `{"n":`, "predict")
	assert.Error(t, err)

	_, err = run(t, `{}`, "predict", "--model", "missing.json")
	assert.Error(t, err)
}

func TestAnalyzeCSVCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")
	csv := "left_pupil,right_pupil\n3.0,3.1\n3.1,3.2\n3.0,3.0\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out, err := run(t, "", "analyze-csv", path)
	require.NoError(t, err)

	var analysis screening.CSVAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, 3, analysis.NRows)
	assert.Nil(t, analysis.Features.CorrLB)
	assert.NotNil(t, analysis.Prediction)
}
