package analysis

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE analysis_snapshots (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    model_version TEXT NOT NULL,
    alignment_score REAL NOT NULL,
    is_aligned INTEGER NOT NULL,
    action_count INTEGER NOT NULL,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleResponse(requestID string) *domain.AnalysisResponse {
	return &domain.AnalysisResponse{
		RequestID:         requestID,
		AsOf:              domain.NewDate(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)),
		CurrentAllocation: domain.Allocation{domain.AssetClassEquity: 1},
		RebalancingActions: []domain.RebalancingAction{
			{Action: domain.ActionSell, Priority: domain.PriorityHigh, SchemeCode: domain.Int(100), AssetClass: domain.AssetClassEquity, TransactionAmount: -200000},
		},
		Summary:      domain.AnalysisSummary{AlignmentScore: 0.75, PrimaryIssues: []string{"Equity overweight by 20%"}},
		ModelVersion: ModelVersion,
	}
}

func TestSnapshotRepository_RecordAndGet(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	ctx := context.Background()

	purchased := domain.NewDate(time.Date(2024, 5, 26, 0, 0, 0, 0, time.UTC))
	req := &domain.AnalysisRequest{
		RequestID: "req-1",
		Holdings: []domain.Holding{
			{SchemeCode: 100, Amount: domain.Float(600000), PurchaseDate: &purchased},
		},
		TargetAllocation: domain.NewTargetAllocation(0.4, 0.35, 0.15, 0.05, 0.05, 0),
	}

	id, err := repo.Record(ctx, req, sampleResponse("req-1"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "req-1", snap.RequestID)
	assert.Equal(t, ModelVersion, snap.ModelVersion)
	assert.Equal(t, 0.75, snap.AlignmentScore)
	assert.False(t, snap.IsAligned)
	assert.Equal(t, 1, snap.ActionCount)

	require.NotNil(t, snap.Request)
	require.Len(t, snap.Request.Holdings, 1)
	assert.Equal(t, "2024-05-26", snap.Request.Holdings[0].PurchaseDate.String())
	assert.Equal(t, 0.35, *snap.Request.TargetAllocation.Debt)

	require.NotNil(t, snap.Response)
	assert.Equal(t, id, snap.Response.SnapshotID)
	assert.Equal(t, "2025-06-30", snap.Response.AsOf.String())
	assert.Equal(t, -200000.0, snap.Response.RebalancingActions[0].TransactionAmount)
	assert.Equal(t, []string{"Equity overweight by 20%"}, snap.Response.Summary.PrimaryIssues)
}

func TestSnapshotRepository_GetByRequestIDReturnsLatest(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	_, err := repo.Record(ctx, nil, sampleResponse("shared"))
	require.NoError(t, err)

	repo.now = func() time.Time { return base.Add(time.Hour) }
	latest, err := repo.Record(ctx, nil, sampleResponse("shared"))
	require.NoError(t, err)

	snap, err := repo.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, latest, snap.ID)
	assert.Nil(t, snap.Request)
}

func TestSnapshotRepository_GetByRequestIDSameInstant(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	ctx := context.Background()

	at := time.Date(2025, 1, 1, 9, 30, 0, 250*int(time.Millisecond), time.UTC)
	repo.now = func() time.Time { return at }
	_, err := repo.Record(ctx, nil, sampleResponse("retry"))
	require.NoError(t, err)
	second, err := repo.Record(ctx, nil, sampleResponse("retry"))
	require.NoError(t, err)

	snap, err := repo.Get(ctx, "retry")
	require.NoError(t, err)
	assert.Equal(t, second, snap.ID, "ties on created_at go to the later insert")
	assert.Equal(t, at, snap.CreatedAt, "created_at keeps millisecond precision")
}

func TestSnapshotRepository_NotFound(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotRepository_RecordNilResponse(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	_, err := repo.Record(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestSnapshotRepository_DeleteOlderThan(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.AddDate(0, 0, i*10)
		repo.now = func() time.Time { return at }
		_, err := repo.Record(ctx, nil, sampleResponse("r"))
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteOlderThan(ctx, base.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRetentionJob(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	repo.now = func() time.Time { return now.AddDate(0, 0, -100) }
	_, err := repo.Record(ctx, nil, sampleResponse("old"))
	require.NoError(t, err)
	repo.now = func() time.Time { return now.AddDate(0, 0, -1) }
	_, err = repo.Record(ctx, nil, sampleResponse("recent"))
	require.NoError(t, err)

	repo.now = func() time.Time { return now }
	job := NewRetentionJob(repo, 90*24*time.Hour, zerolog.Nop())
	assert.Equal(t, "audit_retention", job.Name())
	require.NoError(t, job.Run())

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestRetentionJob_DisabledKeepsEverything(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))
	_, err := repo.Record(context.Background(), nil, sampleResponse("r"))
	require.NoError(t, err)

	require.NoError(t, NewRetentionJob(repo, 0, zerolog.Nop()).Run())
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
