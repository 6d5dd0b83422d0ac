package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/recommendation"
	testingpkg "github.com/Vedpalnitk/sparrow-invest-sub003/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_RecordsAndReloadsSnapshot(t *testing.T) {
	db := testingpkg.NewTestDB(t, "audit")
	repo := NewSnapshotRepository(db.Conn())
	provider := &testingpkg.StaticProvider{Funds: testingpkg.ExampleFunds()}

	svc := NewService(
		domain.DefaultPolicy(),
		provider,
		time.Second,
		recommendation.NewRecommender(provider, zerolog.Nop()),
		repo,
		zerolog.Nop(),
	)
	svc.SetClock(func() time.Time { return fixedNow })

	ctx := context.Background()
	resp, err := svc.Analyze(ctx, testingpkg.ExampleRequest(fixedNow))
	require.NoError(t, err)
	require.NotEmpty(t, resp.SnapshotID)

	recommended := map[domain.AssetClass]int{}
	for _, a := range resp.RebalancingActions {
		if a.Action == domain.ActionAddNew {
			require.NotNil(t, a.SchemeCode, "ADD_NEW for %s has no fund", a.AssetClass)
			recommended[a.AssetClass] = *a.SchemeCode
		}
	}
	assert.Equal(t, map[domain.AssetClass]int{
		domain.AssetClassHybrid:        300,
		domain.AssetClassGold:          400,
		domain.AssetClassInternational: 500,
	}, recommended)

	snap, err := repo.Get(ctx, resp.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "example", snap.RequestID)
	assert.Equal(t, ModelVersion, snap.ModelVersion)
	assert.Equal(t, resp.Summary.AlignmentScore, snap.AlignmentScore)
	assert.Equal(t, len(resp.RebalancingActions), snap.ActionCount)
	require.NotNil(t, snap.Response)
	assert.Equal(t, resp.SnapshotID, snap.Response.SnapshotID)
	assert.Equal(t, resp.Summary.EstimatedTax, snap.Response.Summary.EstimatedTax)
	require.NotNil(t, snap.Request)
	assert.Len(t, snap.Request.Holdings, 2)

	byRequest, err := repo.Get(ctx, "example")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, byRequest.ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
