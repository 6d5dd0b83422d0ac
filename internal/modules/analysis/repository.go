package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrSnapshotNotFound is returned when no snapshot matches an id
var ErrSnapshotNotFound = errors.New("analysis snapshot not found")

// Snapshot is one recorded analysis
type Snapshot struct {
	ID             string                   `json:"id"`
	RequestID      string                   `json:"request_id"`
	ModelVersion   string                   `json:"model_version"`
	AlignmentScore float64                  `json:"alignment_score"`
	IsAligned      bool                     `json:"is_aligned"`
	ActionCount    int                      `json:"action_count"`
	CreatedAt      time.Time                `json:"created_at"`
	Request        *domain.AnalysisRequest  `json:"request"`
	Response       *domain.AnalysisResponse `json:"response"`
}

type snapshotPayload struct {
	Request  *domain.AnalysisRequest  `msgpack:"request"`
	Response *domain.AnalysisResponse `msgpack:"response"`
}

// SnapshotRepository stores analysis snapshots in the audit database.
// Payloads are msgpack-encoded request/response pairs and created_at is
// unix milliseconds.
type SnapshotRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotRepository creates a snapshot repository
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// Record stores a snapshot and returns its id
func (r *SnapshotRepository) Record(ctx context.Context, req *domain.AnalysisRequest, resp *domain.AnalysisResponse) (string, error) {
	if resp == nil {
		return "", errors.New("cannot record nil response")
	}

	payload, err := msgpack.Marshal(snapshotPayload{Request: req, Response: resp})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	id := uuid.NewString()
	aligned := 0
	if resp.Summary.IsAligned {
		aligned = 1
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_snapshots
			(id, request_id, model_version, alignment_score, is_aligned, action_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, resp.RequestID, resp.ModelVersion, resp.Summary.AlignmentScore, aligned,
		len(resp.RebalancingActions), payload, r.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return id, nil
}

// Get loads a snapshot by snapshot id, or the latest snapshot of a request id
func (r *SnapshotRepository) Get(ctx context.Context, id string) (*Snapshot, error) {
	var (
		s         Snapshot
		aligned   int
		payload   []byte
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, request_id, model_version, alignment_score, is_aligned, action_count, payload, created_at
		FROM analysis_snapshots
		WHERE id = ? OR request_id = ?
		ORDER BY (id = ?) DESC, created_at DESC, rowid DESC
		LIMIT 1
	`, id, id, id).Scan(&s.ID, &s.RequestID, &s.ModelVersion, &s.AlignmentScore, &aligned, &s.ActionCount, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var decoded snapshotPayload
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
	}
	s.IsAligned = aligned == 1
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.Request = decoded.Request
	s.Response = decoded.Response
	if s.Response != nil {
		s.Response.SnapshotID = s.ID
	}
	return &s, nil
}

// DeleteOlderThan removes snapshots created before cutoff
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM analysis_snapshots WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of stored snapshots
func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
