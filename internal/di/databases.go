package di

import (
	"fmt"
	"path/filepath"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens and migrates the cache database, plus the audit
// database when auditing is enabled
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// cache.db - Provider responses with TTLs
	cacheDB, err := openDatabase(filepath.Join(cfg.DataDir, "cache.db"), database.ProfileCache, "cache")
	if err != nil {
		return nil, err
	}
	container.CacheDB = cacheDB

	// audit.db - Analysis snapshots
	if cfg.AuditEnabled {
		auditDB, err := openDatabase(filepath.Join(cfg.DataDir, "audit.db"), database.ProfileLedger, "audit")
		if err != nil {
			cacheDB.Close()
			return nil, err
		}
		container.AuditDB = auditDB
	}

	for _, db := range container.Databases() {
		log.Debug().Str("database", db.Name()).Str("path", db.Path()).Msg("Database ready")
	}
	return container, nil
}

func openDatabase(path string, profile database.DatabaseProfile, name string) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", name, err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}
	return db, nil
}
