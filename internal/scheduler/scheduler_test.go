package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string {
	return j.name
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@daily", &countingJob{name: "daily"}))
	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "five"}))

	err := s.AddJob("@daily", &countingJob{name: "daily"})
	assert.ErrorContains(t, err, "already registered")

	err = s.AddJob("not a schedule", &countingJob{name: "broken"})
	assert.ErrorContains(t, err, "invalid schedule")

	assert.Len(t, s.Jobs(), 2)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	failing := &countingJob{name: "fails", err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1s", job))
	require.NoError(t, s.AddJob("@every 1s", failing))

	s.Start()
	assert.Eventually(t, func() bool {
		return job.runs.Load() > 0 && failing.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	for _, status := range s.Jobs() {
		assert.False(t, status.Prev.IsZero(), status.Name)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "now", err: errors.New("fail")}

	assert.Error(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeCheckpointer struct {
	name  string
	err   error
	calls int
}

func (f *fakeCheckpointer) Name() string { return f.name }

func (f *fakeCheckpointer) WALCheckpoint(context.Context) error {
	f.calls++
	return f.err
}

func TestWALCheckpointJob(t *testing.T) {
	cache := &fakeCheckpointer{name: "cache"}
	audit := &fakeCheckpointer{name: "audit", err: errors.New("database is locked")}

	job := NewWALCheckpointJob(zerolog.Nop(), cache, nil, audit)
	assert.Equal(t, "wal_checkpoint", job.Name())

	err := job.Run()
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, audit.calls)

	assert.NoError(t, NewWALCheckpointJob(zerolog.Nop(), cache).Run())
}

type fakeWarmer struct {
	count int
	err   error
}

func (f *fakeWarmer) WarmCatalog(ctx context.Context) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return f.count, f.err
}

func TestCatalogWarmJob(t *testing.T) {
	job := NewCatalogWarmJob(&fakeWarmer{count: 42}, 0, zerolog.Nop())
	assert.Equal(t, "catalog_warm", job.Name())
	assert.NoError(t, job.Run())

	assert.Error(t, NewCatalogWarmJob(&fakeWarmer{err: errors.New("upstream down")}, time.Second, zerolog.Nop()).Run())
}
