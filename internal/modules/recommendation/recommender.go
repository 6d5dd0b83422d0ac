// Package recommendation picks catalog funds for asset classes the
// portfolio does not hold yet.
package recommendation

import (
	"context"
	"math"
	"sort"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/enrichment"
	"github.com/rs/zerolog"
)

// Score weights
const (
	sharpeWeight     = 0.3
	return3YWeight   = 0.3
	expenseWeight    = 0.2
	volatilityWeight = 0.2
)

// Recommender fills ADD_NEW actions from the fund catalog
type Recommender struct {
	catalog domain.FundCatalog
	log     zerolog.Logger
}

// NewRecommender creates a recommender over catalog
func NewRecommender(catalog domain.FundCatalog, log zerolog.Logger) *Recommender {
	return &Recommender{
		catalog: catalog,
		log:     log.With().Str("service", "recommendation").Logger(),
	}
}

// Score rates a fund in [0,1]. Missing or non-positive metrics contribute nothing.
//   - Sharpe (30%): sharpe/2, capped at 1
//   - 3Y return (30%): return/30, capped at 1
//   - Expense ratio (20%): 1 - expense/2, floored at 0
//   - Volatility (20%): 1 - volatility/30, floored at 0
func Score(f domain.FundMetrics) float64 {
	var score float64
	if v := f.SharpeRatio; v != nil && *v > 0 {
		score += math.Min(*v/2, 1) * sharpeWeight
	}
	if v := f.Return3Y; v != nil && *v > 0 {
		score += math.Min(*v/30, 1) * return3YWeight
	}
	if v := f.ExpenseRatio; v != nil && *v > 0 {
		score += math.Max(0, 1-*v/2) * expenseWeight
	}
	if v := f.Volatility; v != nil && *v > 0 {
		score += math.Max(0, 1-*v/30) * volatilityWeight
	}
	return score
}

// Best returns the highest scoring fund of class, lowest scheme code on ties
func Best(funds []domain.FundMetrics, class domain.AssetClass) (domain.FundMetrics, bool) {
	var matching []domain.FundMetrics
	for _, f := range funds {
		if classOf(f) == class {
			matching = append(matching, f)
		}
	}
	if len(matching) == 0 {
		return domain.FundMetrics{}, false
	}

	sort.Slice(matching, func(i, j int) bool {
		si, sj := Score(matching[i]), Score(matching[j])
		if si != sj {
			return si > sj
		}
		return matching[i].SchemeCode < matching[j].SchemeCode
	})
	return matching[0], true
}

func classOf(f domain.FundMetrics) domain.AssetClass {
	if f.AssetClass.IsPlannable() {
		return f.AssetClass
	}
	class, _ := enrichment.AssetClassForCategory(f.Category)
	return class
}

// Fill sets the scheme fields of ADD_NEW actions that have none and returns
// how many were filled. Catalog failures are logged and leave actions untouched.
func (r *Recommender) Fill(ctx context.Context, actions []domain.RebalancingAction) int {
	pending := 0
	for _, a := range actions {
		if a.Action == domain.ActionAddNew && a.SchemeCode == nil {
			pending++
		}
	}
	if pending == 0 || r.catalog == nil {
		return 0
	}

	funds, err := r.catalog.Catalog(ctx)
	if err != nil && len(funds) == 0 {
		r.log.Warn().Err(err).Msg("Fund catalog unavailable, ADD_NEW actions left without a scheme")
		return 0
	}

	filled := 0
	for i := range actions {
		a := &actions[i]
		if a.Action != domain.ActionAddNew || a.SchemeCode != nil {
			continue
		}
		fund, ok := Best(funds, a.AssetClass)
		if !ok {
			r.log.Debug().Str("asset_class", string(a.AssetClass)).Msg("No catalog fund for asset class")
			continue
		}
		a.SchemeCode = domain.Int(fund.SchemeCode)
		a.SchemeName = fund.SchemeName
		a.Category = fund.Category
		filled++
	}
	return filled
}
