package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/utils"
	"github.com/wgomg/aidetector/internal/utils/httputils"
)

// RemoteClient calls a hosted text-classification endpoint that speaks the
// Hugging Face inference request shape.
type RemoteClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *utils.Logger
}

type InferenceRequest struct {
	Inputs     []string            `json:"inputs"`
	Parameters InferenceParameters `json:"parameters"`
	Options    InferenceOptions    `json:"options"`
}

type InferenceParameters struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length"`
}

type InferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func NewRemoteClient(cfg *config.Config, logger *utils.Logger) (*RemoteClient, error) {
	if cfg.Detector.Remote.URL == "" {
		return nil, fmt.Errorf("DETECTOR_REMOTE_URL is required")
	}

	return &RemoteClient{
		baseURL: cfg.Detector.Remote.URL,
		token:   cfg.Detector.Remote.Token,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.App.HttpTimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

func (c *RemoteClient) SafeForConcurrentUse() bool { return true }

func (c *RemoteClient) ClassifyBatch(ctx context.Context, texts []string, maxLength int) ([]classifier.Raw, error) {
	reqBody := InferenceRequest{
		Inputs:     texts,
		Parameters: InferenceParameters{Truncation: true, MaxLength: maxLength},
		Options:    InferenceOptions{WaitForModel: true},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	reqID := utils.RequestID(ctx)
	c.logger.Debug(reqID, "Sending inference request: inputs=%d, bytes=%d", len(texts), len(jsonBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp)
	}

	if _, err := httputils.LogResponseBody(resp, c.logger, reqID); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]classifier.Raw, len(rows))
	for i, row := range rows {
		raw, err := decodeInferenceRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		results[i] = raw
	}
	return results, nil
}

func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// decodeInferenceRow accepts either a single {label, score} object or the
// per-input list of all labels, in which case the best scoring one is kept.
func decodeInferenceRow(row json.RawMessage) (classifier.Raw, error) {
	row = bytes.TrimSpace(row)
	if len(row) > 0 && row[0] == '{' {
		var raw classifier.Raw
		err := json.Unmarshal(row, &raw)
		return raw, err
	}

	var candidates []classifier.Raw
	if err := json.Unmarshal(row, &candidates); err != nil {
		return classifier.Raw{}, err
	}
	if len(candidates) == 0 {
		return classifier.Raw{}, fmt.Errorf("empty label list")
	}
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}
	return best, nil
}

func (c *RemoteClient) setAuthHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
}

func (c *RemoteClient) handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
}
