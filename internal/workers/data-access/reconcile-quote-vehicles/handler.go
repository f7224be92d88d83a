package reconcilequotevehicles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"quote-vehicle-reconciler/internal/common/config"
	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/common/logger"
	"quote-vehicle-reconciler/internal/common/metrics"
	"quote-vehicle-reconciler/internal/common/observability"
	"quote-vehicle-reconciler/internal/common/validation"
	"quote-vehicle-reconciler/internal/reconcile"
)

const (
	TaskType = config.ReconcileTaskType
)

// Runner runs one reconciliation.
type Runner interface {
	Run(ctx context.Context, opts reconcile.RunOptions) (*reconcile.Summary, error)
}

// CommandExecutor sends a broker command, retrying transient failures.
type CommandExecutor interface {
	ExecuteWithRetry(ctx context.Context, commandFunc func(context.Context) (interface{}, error), operationName string) (interface{}, error)
}

type Handler struct {
	config     *Config
	runner     Runner
	broker     CommandExecutor
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(config *Config, runner Runner, broker CommandExecutor, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if broker == nil {
		return nil, fmt.Errorf("reconcile handler: broker executor is required")
	}
	validator, err := validation.NewReconcileInputValidator()
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		runner:     runner,
		broker:     broker,
		validator:  validator,
		errHandler: apperrors.NewErrorHandler(log),
		obs:        obs,
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	var output *Output
	if err == nil {
		output, err = h.execute(ctx, input)
	}

	duration := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(duration.Seconds())

	if err != nil {
		code := apperrors.AsStandardError(err).Code
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
		h.obs.RecordRunDuration(ctx, duration, reconcile.RunStatusFailed)
		h.errHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordRunDuration(ctx, duration, reconcile.RunStatusSucceeded)
	h.completeJob(client, job, output)
}

// parseInput validates the raw variables before decoding them, so type
// mismatches are reported per field.
func (h *Handler) parseInput(variables string) (*Input, error) {
	raw := map[string]interface{}{}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &raw); err != nil {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		}
	}

	result, err := h.validator.Validate(raw)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%v", result.GetErrorMessages()))
	}

	var input Input
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &input); err != nil {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		}
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}

	opts := h.runOptions(input)
	summary, err := h.runner.Run(ctx, opts)

	status := reconcile.RunStatusSucceeded
	if err != nil {
		status = reconcile.RunStatusFailed
	}
	h.obs.RecordRun(ctx, opts.TargetState, status)
	if summary != nil {
		h.obs.RecordRows(ctx, string(reconcile.OutcomeResolved), summary.Resolved)
		h.obs.RecordRows(ctx, string(reconcile.OutcomeUnresolved), summary.Unresolved)
		h.obs.RecordRows(ctx, string(reconcile.OutcomeInvalid), summary.Invalid)
		h.obs.RecordRows(ctx, string(reconcile.OutcomeAmbiguous), summary.Ambiguous)
	}

	if err != nil {
		return nil, err
	}
	return &Output{Reconciliation: summary}, nil
}

func (h *Handler) runOptions(input *Input) reconcile.RunOptions {
	opts := reconcile.RunOptions{
		TargetState: h.config.TargetState,
		DryRun:      h.config.DryRun,
		Apply:       h.config.Apply,
	}
	if input.TargetState != "" {
		opts.TargetState = input.TargetState
	}
	if input.DryRun != nil {
		opts.DryRun = *input.DryRun
		if opts.DryRun {
			opts.Apply = false
		}
	}
	if input.Apply != nil {
		opts.Apply = *input.Apply
		if opts.Apply {
			opts.DryRun = false
		}
	}
	return opts
}

// completeJob sends the output through the broker executor, which retries
// transient gateway failures.
func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	_, err := h.broker.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		cmd, err := client.NewCompleteJobCommand().
			JobKey(job.Key).
			VariablesFromObject(output)
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "complete-job")
	if err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// ParseInput exposes variable validation to callers outside a job.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	return h.parseInput(variables)
}
