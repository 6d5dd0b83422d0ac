package di

import (
	"fmt"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clientdata"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules
const (
	scheduleCacheCleanup   = "@daily"
	scheduleCatalogWarm    = "@every 30m"
	scheduleAuditRetention = "@daily"
	scheduleWALCheckpoint  = "@hourly"
)

// catalogWarmTimeout bounds one catalog refresh
const catalogWarmTimeout = 30 * time.Second

type scheduledJob struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the scheduler and registers the maintenance jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)

	var checkpointers []scheduler.Checkpointer
	for _, db := range container.Databases() {
		checkpointers = append(checkpointers, db)
	}

	jobs := []scheduledJob{
		{scheduleCacheCleanup, clientdata.NewCleanupJob(container.ClientDataRepo, log)},
		{scheduleWALCheckpoint, scheduler.NewWALCheckpointJob(log, checkpointers...)},
	}
	if container.Recommender != nil {
		jobs = append(jobs, scheduledJob{scheduleCatalogWarm, scheduler.NewCatalogWarmJob(container.FundMetricsClient, catalogWarmTimeout, log)})
	}
	if container.SnapshotRepo != nil {
		jobs = append(jobs, scheduledJob{scheduleAuditRetention, analysis.NewRetentionJob(container.SnapshotRepo, cfg.AuditRetention, log)})
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			return fmt.Errorf("failed to register job %s: %w", j.job.Name(), err)
		}
	}

	container.Scheduler = sched
	log.Info().Int("jobs", len(jobs)).Msg("Jobs registered")
	return nil
}
