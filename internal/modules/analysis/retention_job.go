package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob deletes audit snapshots older than the retention window.
type RetentionJob struct {
	repo      *SnapshotRepository
	retention time.Duration
	log       zerolog.Logger
	timeout   time.Duration
}

// NewRetentionJob creates a snapshot retention job.
func NewRetentionJob(repo *SnapshotRepository, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:      repo,
		retention: retention,
		log:       log.With().Str("job", "audit_retention").Logger(),
		timeout:   time.Minute,
	}
}

// Run deletes expired snapshots. A non-positive retention keeps everything.
func (j *RetentionJob) Run() error {
	if j.retention <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	cutoff := j.repo.now().Add(-j.retention)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete old analysis snapshots")
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Audit retention completed")
	}
	return nil
}

// Name returns the job name for scheduling.
func (j *RetentionJob) Name() string {
	return "audit_retention"
}
