package di

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Port:    8002,
		FundMetrics: config.FundMetricsConfig{
			BaseURL:        "http://127.0.0.1:1",
			Timeout:        time.Second,
			BatchSize:      50,
			MaxConcurrency: 4,
		},
		Policy:                 domain.DefaultPolicy(),
		AuditEnabled:           true,
		AuditRetention:         24 * time.Hour,
		RecommendationsEnabled: true,
	}
}

func jobNames(c *Container) []string {
	var names []string
	for _, j := range c.Scheduler.Jobs() {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	return names
}

func TestWire_FullContainer(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.AuditDB)
	assert.NotNil(t, container.ClientDataRepo)
	assert.NotNil(t, container.SnapshotRepo)
	assert.NotNil(t, container.FundMetricsClient)
	assert.NotNil(t, container.Recommender)
	assert.NotNil(t, container.AnalysisService)
	assert.False(t, container.StartedAt.IsZero())

	assert.FileExists(t, filepath.Join(cfg.DataDir, "cache.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "audit.db"))

	assert.Equal(t,
		[]string{"audit_retention", "catalog_warm", "client_data_cleanup", "wal_checkpoint"},
		jobNames(container))
}

func TestWire_OptionalFeaturesDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuditEnabled = false
	cfg.RecommendationsEnabled = false

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.Nil(t, container.AuditDB)
	assert.Nil(t, container.SnapshotRepo)
	assert.Nil(t, container.Recommender)
	assert.Len(t, container.Databases(), 1)
	assert.NoFileExists(t, filepath.Join(cfg.DataDir, "audit.db"))

	assert.Equal(t, []string{"client_data_cleanup", "wal_checkpoint"}, jobNames(container))
}

func TestWire_SchemasApplied(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	ctx := context.Background()

	stats, err := container.ClientDataRepo.Stats(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, stats)

	n, err := container.SnapshotRepo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(cfg.DataDir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DataDir = blocker

	_, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestContainer_CloseIsSafeWithoutScheduler(t *testing.T) {
	container, err := InitializeDatabases(testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, container.Close())
}
