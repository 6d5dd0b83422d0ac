// Package di provides dependency injection wiring and initialization.
package di

import (
	"errors"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clientdata"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clients/fundmetrics"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/database"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/recommendation"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/scheduler"
)

// Container holds all application dependencies.
// It is the single source of truth for service instances.
type Container struct {
	StartedAt time.Time

	// Databases
	CacheDB *database.DB // provider response cache (ephemeral)
	AuditDB *database.DB // analysis snapshots, nil when auditing is disabled

	// Repositories
	ClientDataRepo *clientdata.Repository
	SnapshotRepo   *analysis.SnapshotRepository // nil when auditing is disabled

	// Clients
	FundMetricsClient *fundmetrics.Client

	// Services
	Recommender     *recommendation.Recommender // nil when recommendations are disabled
	AnalysisService *analysis.Service

	Scheduler *scheduler.Scheduler
}

// Databases lists the open databases
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.CacheDB, c.AuditDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close stops the scheduler and closes every database
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	var errs []error
	for _, db := range c.Databases() {
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}
