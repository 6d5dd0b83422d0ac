package di

import (
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clientdata"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clients/fundmetrics"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/recommendation"
	"github.com/rs/zerolog"
)

// InitializeServices builds repositories, the provider client and the
// analysis service on top of the opened databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	container.FundMetricsClient = fundmetrics.NewClient(fundmetrics.Config{
		BaseURL:        cfg.FundMetrics.BaseURL,
		Timeout:        cfg.FundMetrics.Timeout,
		BatchSize:      cfg.FundMetrics.BatchSize,
		MaxConcurrency: cfg.FundMetrics.MaxConcurrency,
		RateLimit:      cfg.FundMetrics.RateLimit,
		CacheTTL:       cfg.FundMetrics.CacheTTL,
	}, container.ClientDataRepo, log)

	if cfg.RecommendationsEnabled {
		container.Recommender = recommendation.NewRecommender(container.FundMetricsClient, log)
	}

	// Interfaces stay nil unless backed by a real value
	var recorder domain.AnalysisRecorder
	if container.AuditDB != nil {
		container.SnapshotRepo = analysis.NewSnapshotRepository(container.AuditDB.Conn())
		recorder = container.SnapshotRepo
	}

	container.AnalysisService = analysis.NewService(
		cfg.Policy,
		container.FundMetricsClient,
		cfg.FundMetrics.Timeout,
		container.Recommender,
		recorder,
		log,
	)

	log.Info().
		Bool("recommendations", container.Recommender != nil).
		Bool("audit", container.SnapshotRepo != nil).
		Str("fund_metrics_url", cfg.FundMetrics.BaseURL).
		Msg("Services initialized")
}
