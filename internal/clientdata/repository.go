// Package clientdata provides persistent caching for external API client responses.
// All data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/database"
)

// Cache tables
const (
	TableFundMetrics = "fund_metrics"
	TableFundCatalog = "fund_catalog"
)

// AllTables lists all cache tables for cleanup operations.
var AllTables = []string{
	TableFundMetrics,
	TableFundCatalog,
}

// keyColumns maps each allowed table to its primary key column.
// Table names are interpolated into SQL, so only these are accepted.
var keyColumns = map[string]string{
	TableFundMetrics: "scheme_code",
	TableFundCatalog: "catalog",
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func keyColumn(table string) (string, error) {
	col, ok := keyColumns[table]
	if !ok {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	return col, nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, table, key string, data interface{}, ttl time.Duration) error {
	return r.StoreMany(ctx, table, map[string]interface{}{key: data}, ttl)
}

// StoreMany upserts several entries of one table in a single transaction.
func (r *Repository) StoreMany(ctx context.Context, table string, entries map[string]interface{}, ttl time.Duration) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	expiresAt := r.now().Add(ttl).Unix()
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)", table, col)

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare store for %s: %w", table, err)
		}
		defer stmt.Close()

		for key, data := range entries {
			payload, err := json.Marshal(data)
			if err != nil {
				return fmt.Errorf("failed to marshal data for %s/%s: %w", table, key, err)
			}
			if _, err := stmt.ExecContext(ctx, key, string(payload), expiresAt); err != nil {
				return fmt.Errorf("failed to store data in %s: %w", table, err)
			}
		}
		return nil
	})
}

// GetIfFresh returns data only if it has not expired.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(ctx context.Context, table, key string) (json.RawMessage, error) {
	found, err := r.getMany(ctx, table, []string{key}, true)
	if err != nil {
		return nil, err
	}
	return found[key], nil
}

// Get returns data regardless of expiration status, for use as a fallback
// when the upstream API fails. Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	found, err := r.getMany(ctx, table, []string{key}, false)
	if err != nil {
		return nil, err
	}
	return found[key], nil
}

// GetManyIfFresh returns the unexpired entries among keys. Missing keys are absent from the map.
func (r *Repository) GetManyIfFresh(ctx context.Context, table string, keys []string) (map[string]json.RawMessage, error) {
	return r.getMany(ctx, table, keys, true)
}

// GetMany returns entries among keys regardless of expiry.
func (r *Repository) GetMany(ctx context.Context, table string, keys []string) (map[string]json.RawMessage, error) {
	return r.getMany(ctx, table, keys, false)
}

func (r *Repository) getMany(ctx context.Context, table string, keys []string, freshOnly bool) (map[string]json.RawMessage, error) {
	col, err := keyColumn(table)
	if err != nil {
		return nil, err
	}
	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	args := make([]interface{}, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	query := fmt.Sprintf("SELECT %s, data FROM %s WHERE %s IN (%s)",
		col, table, col, strings.TrimSuffix(strings.Repeat("?,", len(keys)), ","))
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, r.now().Unix())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		result[key] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", table, err)
	}
	return result, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, table, key string) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, col)
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now and returns how many were deleted.
func (r *Repository) DeleteExpired(ctx context.Context, table string) (int64, error) {
	if _, err := keyColumn(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.ExecContext(ctx, query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from every table.
func (r *Repository) DeleteAllExpired(ctx context.Context) (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(ctx, table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}

// TableStats counts fresh and expired rows of a table
type TableStats struct {
	Table   string `json:"table"`
	Fresh   int64  `json:"fresh"`
	Expired int64  `json:"expired"`
}

// Stats reports row counts for every table
func (r *Repository) Stats(ctx context.Context) ([]TableStats, error) {
	now := r.now().Unix()
	stats := make([]TableStats, 0, len(AllTables))
	for _, table := range AllTables {
		s := TableStats{Table: table}
		query := fmt.Sprintf(
			"SELECT COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0), COALESCE(SUM(CASE WHEN expires_at > ? THEN 0 ELSE 1 END), 0) FROM %s",
			table,
		)
		if err := r.db.QueryRowContext(ctx, query, now, now).Scan(&s.Fresh, &s.Expired); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}
