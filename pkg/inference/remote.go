package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RemoteClassifier calls an HTTP scoring service that exposes
// POST /predict_proba taking {"features": [...]} and answering
// {"probabilities": [...], "labels": [...]}.
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
}

type remoteRequest struct {
	Features []float64 `json:"features"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Labels        []string  `json:"labels"`
}

func NewRemoteClassifier(baseURL string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *RemoteClassifier) PredictProba(ctx context.Context, x []float64) ([]float64, []string, error) {
	body, err := json.Marshal(remoteRequest{Features: x})
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/predict_proba", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logrus.Debugf("Sending POST request to %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out remoteResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}

	return out.Probabilities, out.Labels, nil
}
