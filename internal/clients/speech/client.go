// Package speech calls the transcription API for audio clips attached
// to a turn.
package speech

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
	ErrTranscriptionFailed = errors.New("SPEECH_TRANSCRIPTION_FAILED")
	ErrAPITimeout          = errors.New("SPEECH_API_TIMEOUT")
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
			"client": "speech",
		}),
	}
}

// Transcribe sends one audio clip for transcription. The returned
// evidence still carries the raw average log probability; acceptance is
// the caller's decision.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (evidence.SpeechEvidence, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
	})

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return evidence.SpeechEvidence{}, ErrAPITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/speech/transcribe", bytes.NewReader(body))
		if err != nil {
			return evidence.SpeechEvidence{}, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return evidence.SpeechEvidence{}, ErrAPITimeout
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
		return evidence.SpeechEvidence{}, fmt.Errorf("%w: %v", ErrTranscriptionFailed, lastErr)
	}
	if resp == nil {
		return evidence.SpeechEvidence{}, fmt.Errorf("%w: no successful response after retries", ErrTranscriptionFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Transcript string  `json:"transcript"`
		AvgLogProb float64 `json:"avg_logprob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return evidence.SpeechEvidence{}, fmt.Errorf("%w: decode error: %v", ErrTranscriptionFailed, err)
	}

	c.logger.Debug("audio transcribed", map[string]interface{}{
		"avg_logprob": apiResponse.AvgLogProb,
		"chars":       len(apiResponse.Transcript),
	})

	return evidence.SpeechEvidence{
		Transcript: apiResponse.Transcript,
		AvgLogProb: apiResponse.AvgLogProb,
	}, nil
}
