package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Checkpointer is a database whose WAL can be truncated
type Checkpointer interface {
	Name() string
	WALCheckpoint(ctx context.Context) error
}

// WALCheckpointJob truncates the write-ahead logs of the databases
type WALCheckpointJob struct {
	databases []Checkpointer
	log       zerolog.Logger
	timeout   time.Duration
}

// NewWALCheckpointJob creates a new WAL checkpoint job. Nil databases are skipped.
func NewWALCheckpointJob(log zerolog.Logger, databases ...Checkpointer) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
		timeout:   30 * time.Second,
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database, continuing past individual failures
func (j *WALCheckpointJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var errs []error
	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint(ctx); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to checkpoint WAL")
			errs = append(errs, err)
			continue
		}
		checked++
	}

	j.log.Debug().Int("databases", checked).Msg("WAL checkpoint completed")
	return errors.Join(errs...)
}
