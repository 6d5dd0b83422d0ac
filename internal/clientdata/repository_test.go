package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE fund_metrics (scheme_code TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE fund_catalog (catalog TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newRepoAt returns a repository whose clock is fixed at now
func newRepoAt(db *sql.DB, now time.Time) *Repository {
	repo := NewRepository(db)
	repo.now = func() time.Time { return now }
	return repo
}

type fundPayload struct {
	Name string  `json:"name"`
	NAV  float64 `json:"nav"`
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	err := repo.Store(ctx, TableFundMetrics, "119551", fundPayload{Name: "Bluechip", NAV: 52.3}, time.Hour)
	require.NoError(t, err)

	raw, err := repo.GetIfFresh(ctx, TableFundMetrics, "119551")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var got fundPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Bluechip", got.Name)
	assert.Equal(t, 52.3, got.NAV)
}

func TestGetIfFresh_MissingKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	raw, err := repo.GetIfFresh(context.Background(), TableFundMetrics, "404")
	assert.NoError(t, err)
	assert.Nil(t, raw)
}

func TestExpiredDataIsStaleButRetrievable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	writer := newRepoAt(db, start)
	require.NoError(t, writer.Store(ctx, TableFundMetrics, "100", fundPayload{Name: "Old"}, time.Minute))

	later := newRepoAt(db, start.Add(time.Hour))
	fresh, err := later.GetIfFresh(ctx, TableFundMetrics, "100")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := later.Get(ctx, TableFundMetrics, "100")
	require.NoError(t, err)
	assert.NotNil(t, stale)
}

func TestStoreMany_AndGetMany(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	repo := newRepoAt(db, start)

	require.NoError(t, repo.StoreMany(ctx, TableFundMetrics, map[string]interface{}{
		"1": fundPayload{Name: "one"},
		"2": fundPayload{Name: "two"},
	}, time.Minute))
	require.NoError(t, repo.Store(ctx, TableFundMetrics, "3", fundPayload{Name: "three"}, 2*time.Hour))

	later := newRepoAt(db, start.Add(time.Hour))
	fresh, err := later.GetManyIfFresh(ctx, TableFundMetrics, []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	assert.Contains(t, fresh, "3")

	all, err := later.GetMany(ctx, TableFundMetrics, []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := later.GetMany(ctx, TableFundMetrics, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.NoError(t, repo.StoreMany(ctx, TableFundMetrics, nil, time.Minute))
}

func TestStore_Upserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableFundCatalog, "all", []int{1}, time.Hour))
	require.NoError(t, repo.Store(ctx, TableFundCatalog, "all", []int{1, 2}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM fund_catalog").Scan(&count))
	assert.Equal(t, 1, count)

	raw, err := repo.Get(ctx, TableFundCatalog, "all")
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2]", string(raw))
}

func TestInvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	assert.Error(t, repo.Store(ctx, "users; DROP TABLE fund_metrics", "k", 1, time.Hour))
	_, err := repo.Get(ctx, "nope", "k")
	assert.Error(t, err)
	_, err = repo.DeleteExpired(ctx, "nope")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, "nope", "k"))
}

func TestStore_MarshalError(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	err := repo.Store(context.Background(), TableFundMetrics, "k", make(chan int), time.Hour)
	assert.ErrorContains(t, err, "failed to marshal")
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableFundMetrics, "1", 1, time.Hour))
	require.NoError(t, repo.Delete(ctx, TableFundMetrics, "1"))

	raw, err := repo.Get(ctx, TableFundMetrics, "1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDeleteAllExpired_AndStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	writer := newRepoAt(db, start)
	require.NoError(t, writer.Store(ctx, TableFundMetrics, "1", 1, time.Minute))
	require.NoError(t, writer.Store(ctx, TableFundMetrics, "2", 2, 24*time.Hour))
	require.NoError(t, writer.Store(ctx, TableFundCatalog, "all", []int{}, time.Minute))

	later := newRepoAt(db, start.Add(time.Hour))
	stats, err := later.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, TableStats{Table: TableFundMetrics, Fresh: 1, Expired: 1}, stats[0])
	assert.Equal(t, TableStats{Table: TableFundCatalog, Fresh: 0, Expired: 1}, stats[1])

	results, err := later.DeleteAllExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableFundMetrics])
	assert.Equal(t, int64(1), results[TableFundCatalog])

	raw, err := later.Get(ctx, TableFundMetrics, "2")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}
