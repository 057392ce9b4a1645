package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"

	"library-backend/internal/config"
	"library-backend/internal/shared"
	"library-backend/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerAuditDiscrepanciesJob()
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}

// ================================================
// Stock discrepancy audit (AUDIT_CRON, default every 15 minutes)
// ================================================
func (s *Scheduler) registerAuditDiscrepanciesJob() error {
	if err := ValidateCron(s.jobConfig.AuditCron); err != nil {
		return err
	}

	payload, err := json.Marshal(shared.AuditDiscrepanciesPayload{Limit: s.jobConfig.AuditLimit})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeAuditDiscrepancies, payload)

	_, err = s.scheduler.Register(
		s.jobConfig.AuditCron,
		task,
		asynq.Queue(shared.QueueLending),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register AuditDiscrepancies job", err)
		return err
	}

	logger.Info("Registered AuditDiscrepancies", map[string]interface{}{
		"cron": s.jobConfig.AuditCron,
	})
	return nil
}

// ValidateCron rejects a schedule asynq would fail on, with a readable error.
func ValidateCron(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}
