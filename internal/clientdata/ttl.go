package clientdata

import "time"

// TTL constants for cached provider data.
const (
	// TTLFundMetrics bounds how stale NAV and return figures may be
	TTLFundMetrics = 30 * time.Minute
	// TTLFundCatalog covers the full catalog used for recommendations
	TTLFundCatalog = 6 * time.Hour
)
