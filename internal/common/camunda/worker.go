// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"quote-vehicle-reconciler/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc completes, fails or throws the job itself.
type HandlerFunc func(client worker.JobClient, job entities.Job)

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func NewWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler HandlerFunc, logger *zap.Logger) *CamundaWorker {
	if !wcfg.Enabled {
		logger.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler))
	if wcfg.MaxJobsActive > 0 {
		step = step.MaxJobsActive(wcfg.MaxJobsActive)
	}
	if wcfg.Timeout > 0 {
		step = step.Timeout(time.Duration(wcfg.Timeout) * time.Millisecond)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   logger,
		taskType: taskType,
	}
	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return w
}

// Stop stops polling and waits for in-flight jobs. The Zeebe client stays
// open.
func (w *CamundaWorker) Stop() {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}
