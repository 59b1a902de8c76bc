// Package vision calls the photo analysis API and returns structured
// labels for the evidence pipeline.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bidflow/internal/common/logger"
	"bidflow/internal/evidence"
)

var (
	ErrAnalysisFailed = errors.New("VISION_ANALYSIS_FAILED")
	ErrAPITimeout     = errors.New("VISION_API_TIMEOUT")
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{
			"client": "vision",
		}),
	}
}

// Analyze sends one image for analysis. Timeouts and failures map to
// sentinel errors so the caller can decide retry behavior.
func (c *Client) Analyze(ctx context.Context, image []byte) (evidence.VisionEvidence, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString(image),
	})

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return evidence.VisionEvidence{}, ErrAPITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/vision/analyze", bytes.NewReader(body))
		if err != nil {
			return evidence.VisionEvidence{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return evidence.VisionEvidence{}, ErrAPITimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return evidence.VisionEvidence{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, lastErr)
	}
	if resp == nil {
		return evidence.VisionEvidence{}, fmt.Errorf("%w: no successful response after retries", ErrAnalysisFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Labels           []string `json:"labels"`
		Description      string   `json:"description"`
		DamageAssessment string   `json:"damage_assessment"`
		Confidence       float64  `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return evidence.VisionEvidence{}, fmt.Errorf("%w: decode error: %v", ErrAnalysisFailed, err)
	}

	c.logger.Debug("image analyzed", map[string]interface{}{
		"labels":     len(apiResponse.Labels),
		"confidence": apiResponse.Confidence,
	})

	return evidence.VisionEvidence{
		Labels:           apiResponse.Labels,
		Description:      apiResponse.Description,
		DamageAssessment: apiResponse.DamageAssessment,
		Confidence:       apiResponse.Confidence,
	}, nil
}
