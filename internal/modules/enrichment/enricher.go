// Package enrichment joins raw holdings with provider fund metrics and
// purchase-date-derived tax status.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/taxlots"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// DefaultLookupTimeout bounds the batched provider call
const DefaultLookupTimeout = 3 * time.Second

// Result is the enriched view of a request's holdings
type Result struct {
	Holdings []domain.EnrichedHolding
	Metrics  domain.CurrentMetrics
	Warnings []string
}

// Enricher resolves holdings against a fund metrics provider
type Enricher struct {
	provider   domain.FundMetricsProvider
	classifier *taxlots.Classifier
	timeout    time.Duration
	log        zerolog.Logger
}

// NewEnricher creates an enricher. provider may be nil, in which case every
// holding is enriched from caller-supplied fields only.
func NewEnricher(provider domain.FundMetricsProvider, classifier *taxlots.Classifier, timeout time.Duration, log zerolog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Enricher{
		provider:   provider,
		classifier: classifier,
		timeout:    timeout,
		log:        log.With().Str("service", "enrichment").Logger(),
	}
}

// Enrich resolves every holding with one batched provider lookup.
// Provider failures degrade the affected holdings; cancellation or expiry of
// ctx itself is returned as an AnalysisError.
func (e *Enricher) Enrich(ctx context.Context, holdings []domain.Holding, asOf domain.Date) (*Result, error) {
	metrics, providerErr := e.lookup(ctx, holdings)
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewProviderTimeoutError(err)
		}
		return nil, domain.NewCancelledError(err)
	}

	result := &Result{Holdings: make([]domain.EnrichedHolding, 0, len(holdings))}
	var total float64
	for i, h := range holdings {
		m, found := metrics[h.SchemeCode]
		var mp *domain.FundMetrics
		if found {
			mp = &m
		}
		eh := e.enrichOne(i, h, mp, asOf)
		total += eh.CurrentValue
		result.Holdings = append(result.Holdings, eh)
	}

	degraded := 0
	for i := range result.Holdings {
		if total > 0 {
			result.Holdings[i].Weight = result.Holdings[i].CurrentValue / total
		}
		if result.Holdings[i].Degraded {
			degraded++
		}
	}

	result.Metrics = buildMetrics(result.Holdings, total)
	if degraded > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d of %d holdings could not be fully enriched with fund data; their category and metrics are incomplete",
			degraded, len(holdings)))
	}
	if providerErr != nil {
		e.log.Warn().Err(providerErr).Int("degraded", degraded).Msg("Fund metrics lookup failed, continuing with degraded holdings")
	}

	return result, nil
}

func (e *Enricher) lookup(ctx context.Context, holdings []domain.Holding) (map[int]domain.FundMetrics, error) {
	if e.provider == nil || len(holdings) == 0 {
		return nil, nil
	}

	codes := make([]int, 0, len(holdings))
	seen := make(map[int]bool, len(holdings))
	for _, h := range holdings {
		if !seen[h.SchemeCode] {
			seen[h.SchemeCode] = true
			codes = append(codes, h.SchemeCode)
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	metrics, err := e.provider.BatchLookup(lookupCtx, codes)
	e.log.Debug().
		Int("codes", len(codes)).
		Int("resolved", len(metrics)).
		Dur("elapsed", time.Since(start)).
		Msg("Fund metrics lookup")
	return metrics, err
}

func (e *Enricher) enrichOne(index int, h domain.Holding, m *domain.FundMetrics, asOf domain.Date) domain.EnrichedHolding {
	eh := domain.EnrichedHolding{
		SchemeCode: h.SchemeCode,
		SchemeName: h.SchemeName,
		Category:   h.Category,
		AssetClass: resolveAssetClass(h, m),
		Index:      index,
	}

	if m != nil {
		if m.SchemeName != "" {
			eh.SchemeName = m.SchemeName
		}
		if m.Category != "" {
			eh.Category = m.Category
		}
		eh.NAV = m.NAV
		eh.Return1Y = m.Return1Y
		eh.Return3Y = m.Return3Y
		eh.Volatility = m.Volatility
		eh.SharpeRatio = m.SharpeRatio
	} else {
		eh.Degraded = true
		eh.DegradedReason = domain.DegradedProviderMiss
		eh.Category = UnknownCategory
	}
	if eh.Category == "" {
		eh.Category = UnknownCategory
	}
	if eh.SchemeName == "" {
		eh.SchemeName = fmt.Sprintf("Scheme %d", h.SchemeCode)
	}

	valueKnown := true
	switch {
	case h.Amount != nil:
		eh.CurrentValue = *h.Amount
		if h.Units != nil {
			eh.Units = copyFloat(h.Units)
		} else if eh.NAV != nil {
			eh.Units = domain.Float(*h.Amount / *eh.NAV)
		}
	case h.Units != nil && eh.NAV != nil:
		eh.Units = copyFloat(h.Units)
		eh.CurrentValue = round(*h.Units**eh.NAV, 2)
	default:
		eh.Units = copyFloat(h.Units)
		valueKnown = false
		if !eh.Degraded {
			eh.Degraded = true
			eh.DegradedReason = domain.DegradedNAVUnavailable
		}
	}

	tax := e.classifier.Classify(eh.AssetClass, h.PurchaseDate, asOf)
	eh.HoldingPeriodDays = tax.HoldingPeriodDays
	eh.TaxStatus = tax.Status

	switch {
	case h.PurchaseAmount != nil:
		eh.PurchaseAmount = copyFloat(h.PurchaseAmount)
	case h.PurchasePrice != nil && eh.Units != nil:
		eh.PurchaseAmount = domain.Float(round(*h.PurchasePrice**eh.Units, 2))
	}
	if eh.PurchaseAmount != nil && valueKnown {
		eh.UnrealizedGain = domain.Float(round(eh.CurrentValue-*eh.PurchaseAmount, 2))
	}

	return eh
}

// resolveAssetClass prefers the provider's class, then the provider's
// category, then the caller's hints.
func resolveAssetClass(h domain.Holding, m *domain.FundMetrics) domain.AssetClass {
	if m != nil {
		if m.AssetClass.IsPlannable() {
			return m.AssetClass
		}
		if class, ok := AssetClassForCategory(m.Category); ok {
			return class
		}
	}
	if h.AssetClass.IsPlannable() {
		return h.AssetClass
	}
	if class, ok := AssetClassForCategory(h.Category); ok {
		return class
	}
	return domain.AssetClassUnknown
}

func buildMetrics(holdings []domain.EnrichedHolding, total float64) domain.CurrentMetrics {
	metrics := domain.CurrentMetrics{
		TotalValue:        round(total, 2),
		TotalHoldings:     len(holdings),
		CategoryBreakdown: make(map[string]domain.CategoryBreakdown),
	}

	for _, h := range holdings {
		category := h.Category
		if h.Degraded {
			metrics.DegradedHoldings++
			category = UnknownCategory
		}
		b := metrics.CategoryBreakdown[category]
		b.Count++
		b.Value += h.CurrentValue
		metrics.CategoryBreakdown[category] = b
	}
	for name, b := range metrics.CategoryBreakdown {
		if total > 0 {
			b.Allocation = round(b.Value/total, 4)
		}
		b.Value = round(b.Value, 2)
		metrics.CategoryBreakdown[name] = b
	}

	metrics.WeightedReturn1Y = weightedMean(holdings, func(h domain.EnrichedHolding) *float64 { return h.Return1Y })
	metrics.WeightedReturn3Y = weightedMean(holdings, func(h domain.EnrichedHolding) *float64 { return h.Return3Y })
	metrics.WeightedVolatility = weightedMean(holdings, func(h domain.EnrichedHolding) *float64 { return h.Volatility })
	metrics.WeightedSharpe = weightedMean(holdings, func(h domain.EnrichedHolding) *float64 { return h.SharpeRatio })
	return metrics
}

// weightedMean averages a metric by current value over holdings that carry it.
// Weights are renormalized over those holdings.
func weightedMean(holdings []domain.EnrichedHolding, metric func(domain.EnrichedHolding) *float64) *float64 {
	var values, weights []float64
	for _, h := range holdings {
		v := metric(h)
		if v == nil || h.CurrentValue <= 0 || math.IsNaN(*v) {
			continue
		}
		values = append(values, *v)
		weights = append(weights, h.CurrentValue)
	}
	if len(values) == 0 {
		return nil
	}
	return domain.Float(round(stat.Mean(values, weights), 2))
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Float(*v)
}

func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
