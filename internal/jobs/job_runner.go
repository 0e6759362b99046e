package jobs

import (
	"context"
	"fmt"
	"time"

	"neighbor-storage-backend/internal/config"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	notifier service.Notifier
	metrics  *metrics.Metrics
	config   config.SchedulerConfig
	timeout  time.Duration
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Ledger service.LedgerService
	Admin  service.AdminService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, notifier service.Notifier, m *metrics.Metrics, cfg config.SchedulerConfig) *JobRunner {
	if notifier == nil {
		notifier = service.NopNotifier{}
	}
	return &JobRunner{
		store:    store,
		services: services,
		notifier: notifier,
		metrics:  m,
		config:   cfg,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

func (jr *JobRunner) Config() config.SchedulerConfig {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery, a deadline and metrics
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()
	ctx = logger.NewContext(ctx, "job", jobName)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
		jr.metrics.ObserveJob(jobName, err)
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Job names accepted by RunJob
const (
	JobReconcileLedger  = "reconcile-ledger"
	JobReportEscrow     = "report-escrow"
	JobOverdueReminders = "overdue-reminders"
)

// RunJob runs one job by name (for manual execution)
func (jr *JobRunner) RunJob(name string) error {
	switch name {
	case JobReconcileLedger:
		return jr.ReconcileLedger()
	case JobReportEscrow:
		return jr.ReportEscrow()
	case JobOverdueReminders:
		return jr.SendOverdueReminders()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

// RunAll runs every job once, returning the first failure
func (jr *JobRunner) RunAll() error {
	var first error
	for _, name := range []string{JobReconcileLedger, JobReportEscrow, JobOverdueReminders} {
		if err := jr.RunJob(name); err != nil && first == nil {
			first = err
		}
	}
	return first
}
