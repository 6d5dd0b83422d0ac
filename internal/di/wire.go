package di

import (
	"fmt"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories, clients and services
// 3. Register jobs
//
// The scheduler is registered but not started; call container.Scheduler.Start().
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}
	container.StartedAt = time.Now()

	InitializeServices(container, cfg, log)

	if err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed")
	return container, nil
}
