package domain

import "context"

// FundMetricsProvider resolves scheme codes to fund metrics.
// Codes the provider does not know are simply absent from the result; only
// transport-level failures are returned as errors.
type FundMetricsProvider interface {
	BatchLookup(ctx context.Context, codes []int) (map[int]FundMetrics, error)
}

// FundCatalog lists the funds available for recommendation
type FundCatalog interface {
	Catalog(ctx context.Context) ([]FundMetrics, error)
}

// AnalysisRecorder persists analysis snapshots for audit
type AnalysisRecorder interface {
	Record(ctx context.Context, req *AnalysisRequest, resp *AnalysisResponse) (string, error)
}
