package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CatalogWarmer refreshes the cached fund catalog
type CatalogWarmer interface {
	WarmCatalog(ctx context.Context) (int, error)
}

// CatalogWarmJob keeps the fund catalog cache fresh so recommendations do
// not pay for a full catalog fetch on the request path.
type CatalogWarmJob struct {
	warmer  CatalogWarmer
	log     zerolog.Logger
	timeout time.Duration
}

// NewCatalogWarmJob creates a new catalog warm-up job
func NewCatalogWarmJob(warmer CatalogWarmer, timeout time.Duration, log zerolog.Logger) *CatalogWarmJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatalogWarmJob{
		warmer:  warmer,
		log:     log.With().Str("job", "catalog_warm").Logger(),
		timeout: timeout,
	}
}

// Name returns the job name
func (j *CatalogWarmJob) Name() string {
	return "catalog_warm"
}

// Run refreshes the catalog
func (j *CatalogWarmJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	count, err := j.warmer.WarmCatalog(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to warm fund catalog")
		return err
	}
	j.log.Info().Int("funds", count).Msg("Fund catalog refreshed")
	return nil
}
