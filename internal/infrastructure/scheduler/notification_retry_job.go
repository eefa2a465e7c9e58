// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	appintegration "github.com/shipflow/backend/internal/application/integration"
	"github.com/shipflow/backend/internal/infrastructure/config"
)

var (
	// ErrInvalidConfig is returned when the job configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSchedulerNotRunning is returned when triggering a stopped job
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)

// PendingNotifier re-sends storefront notifications that previously failed
type PendingNotifier interface {
	RetryPending(ctx context.Context, limit int) (appintegration.NotifyResult, error)
}

// RunRecord describes the last execution of the job
type RunRecord struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Notified  int           `json:"notified"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// NotificationRetryJob periodically retries order lines whose storefront
// notification failed. Runs never overlap.
type NotificationRetryJob struct {
	config   config.NotifyConfig
	notifier PendingNotifier
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	lastRun *RunRecord
}

// NewNotificationRetryJob creates a NotificationRetryJob
func NewNotificationRetryJob(cfg config.NotifyConfig, notifier PendingNotifier, logger *zap.Logger) *NotificationRetryJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationRetryJob{
		config:   cfg,
		notifier: notifier,
		logger:   logger.Named("notify-retry"),
	}
}

// Start schedules the job. It is a no-op when the job is disabled or
// already running.
func (j *NotificationRetryJob) Start(ctx context.Context) error {
	if !j.config.Enabled {
		j.logger.Info("Notification retry job disabled")
		return nil
	}
	if j.config.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	cronLogger := newCronLogger(j.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	baseCtx := context.WithoutCancel(ctx)
	entryID, err := c.AddFunc(j.config.RetrySchedule, func() {
		_, _ = j.RunOnce(baseCtx)
	})
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, j.config.RetrySchedule, err)
	}

	c.Start()
	j.cron = c
	j.entryID = entryID
	j.logger.Info("Notification retry job started",
		zap.String("schedule", j.config.RetrySchedule),
		zap.Int("batch_size", j.config.BatchSize),
		zap.Time("next_run_at", c.Entry(entryID).Next),
	)
	return nil
}

// Stop unschedules the job and waits for a running execution or ctx
func (j *NotificationRetryJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		j.logger.Info("Notification retry job stopped")
		return nil
	case <-ctx.Done():
		j.logger.Warn("Notification retry job stop timed out")
		return ctx.Err()
	}
}

// RunOnce retries one batch of pending notifications, bounded by the
// configured job timeout
func (j *NotificationRetryJob) RunOnce(ctx context.Context) (appintegration.NotifyResult, error) {
	if j.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.JobTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := j.notifier.RetryPending(ctx, j.config.BatchSize)

	record := &RunRecord{
		StartedAt: started,
		Duration:  time.Since(started),
		Notified:  result.Notified,
		Failed:    result.Failed,
	}
	if err != nil {
		record.Error = err.Error()
		j.logger.Error("Notification retry failed", zap.Error(err))
	} else if result.Notified+result.Failed > 0 {
		j.logger.Info("Notification retry finished",
			zap.Int("notified", result.Notified),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", record.Duration),
		)
	}

	j.mu.Lock()
	j.lastRun = record
	j.mu.Unlock()
	return result, err
}

// TriggerManualRun runs the job now in the background
func (j *NotificationRetryJob) TriggerManualRun() error {
	j.mu.Lock()
	running := j.cron != nil
	j.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	go func() {
		_, _ = j.RunOnce(context.Background())
	}()
	return nil
}

// GetStatus returns the current state of the job
func (j *NotificationRetryJob) GetStatus() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]any{
		"enabled":     j.config.Enabled,
		"is_running":  j.cron != nil,
		"schedule":    j.config.RetrySchedule,
		"batch_size":  j.config.BatchSize,
		"last_run":    j.lastRun,
		"next_run_at": nil,
	}
	if j.cron != nil {
		status["next_run_at"] = j.cron.Entry(j.entryID).Next
	}
	return status
}

// LastRun returns the record of the last execution, nil before the first
func (j *NotificationRetryJob) LastRun() *RunRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cronLogger {
	return cronLogger{sugar: logger.Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

var _ cron.Logger = cronLogger{}
