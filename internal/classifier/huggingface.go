// Package classifier assigns spending categories to transaction descriptions
// using a zero-shot text classification model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HypothesisTemplate frames each candidate label for the entailment model.
const HypothesisTemplate = "This expense is about {}."

// Classifier picks one of candidateLabels for text.
type Classifier interface {
	Classify(ctx context.Context, text string, candidateLabels []string) (string, error)
}

// HuggingFaceClient calls a zero-shot classification model served over the
// Hugging Face inference API, or any endpoint speaking the same protocol.
type HuggingFaceClient struct {
	httpClient *http.Client
	url        string
	token      string
}

func NewHuggingFaceClient(url, token string) *HuggingFaceClient {
	return &HuggingFaceClient{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template"`
}

// Classify returns the highest scoring label.
func (c *HuggingFaceClient) Classify(ctx context.Context, text string, candidateLabels []string) (string, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotParameters{
			CandidateLabels:    candidateLabels,
			HypothesisTemplate: HypothesisTemplate,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return parseZeroShot(respBody)
}

// CloseIdleConnections releases pooled connections.
func (c *HuggingFaceClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// parseZeroShot accepts both the pipeline shape {"labels": [...], "scores": [...]}
// and the list shape [{"label": ..., "score": ...}].
func parseZeroShot(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errors.New("empty classifier response")
	}

	if body[0] == '[' {
		var ranked []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		}
		if err := json.Unmarshal(body, &ranked); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		best, bestScore := "", -1.0
		for _, r := range ranked {
			if r.Score > bestScore {
				best, bestScore = r.Label, r.Score
			}
		}
		if best == "" {
			return "", errors.New("no labels in classifier response")
		}
		return best, nil
	}

	var pipeline struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
		Error  string    `json:"error"`
	}
	if err := json.Unmarshal(body, &pipeline); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if pipeline.Error != "" {
		return "", fmt.Errorf("classifier error: %s", pipeline.Error)
	}
	if len(pipeline.Labels) == 0 {
		return "", errors.New("no labels in classifier response")
	}

	// Scores normally arrive sorted, but do not rely on it.
	best := 0
	for i := 1; i < len(pipeline.Labels) && i < len(pipeline.Scores); i++ {
		if pipeline.Scores[i] > pipeline.Scores[best] {
			best = i
		}
	}
	return pipeline.Labels[best], nil
}
