// Package testing provides shared test helpers: migrated databases and
// portfolio fixtures.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/database"
)

// NewTestDB opens a file-backed database in t.TempDir() with its schema applied.
// The database is closed when the test ends.
//
// Supported schema names:
//   - "cache" - applies cache_schema.sql
//   - "audit" - applies audit_schema.sql
//   - Unknown names - creates an empty database
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case "cache":
		profile = database.ProfileCache
	case "audit":
		profile = database.ProfileLedger
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})
	return db
}
