// internal/workers/process-turn/handler.go
package processturn

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"bidflow/internal/common/errors"
	"bidflow/internal/common/logger"
	"bidflow/internal/common/metrics"
	"bidflow/internal/engine"
)

const (
	TaskType = "process-turn"
)

// TurnProcessor is the engine surface this worker drives.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in engine.TurnInput) (*engine.TurnResult, error)
}

type Handler struct {
	config *Config
	engine TurnProcessor
	logger logger.Logger
}

func NewHandler(config *Config, eng TurnProcessor, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: eng,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return err
	}

	turn, err := h.buildTurnInput(&input)
	if err != nil {
		h.failJob(client, job, err, 0)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	result, err := h.engine.ProcessTurn(ctx, turn)
	if err != nil {
		h.failJob(client, job, err, retriesFor(err))
		return err
	}

	output := &Output{
		NeedMore:  result.NeedMore,
		Question:  result.Question,
		Collected: result.Collected,
		Missing:   result.Missing,
		BidCard:   result.BidCard,
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

// buildTurnInput decodes the base64 media attached to the job. A bad
// payload is an input error, never retried.
func (h *Handler) buildTurnInput(input *Input) (engine.TurnInput, error) {
	turn := engine.TurnInput{
		UserID:    input.UserID,
		ProjectID: input.ProjectID,
		Text:      input.Text,
	}

	for i, img := range input.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return engine.TurnInput{}, fmt.Errorf("decode image %d: %w", i, err)
		}
		turn.Images = append(turn.Images, data)
	}

	if input.Audio != "" {
		data, err := base64.StdEncoding.DecodeString(input.Audio)
		if err != nil {
			return engine.TurnInput{}, fmt.Errorf("decode audio: %w", err)
		}
		turn.Audio = data
	}
	return turn, nil
}

func retriesFor(err error) int32 {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return int32(errors.GetRetryCount(stdErr.Code))
	}
	return 0
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "UNKNOWN_ERROR"
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		errorCode = string(stdErr.Code)
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorCode + ": " + err.Error()).
		Send(context.Background())
}
