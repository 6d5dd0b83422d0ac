package testing

import (
	"context"
	"sort"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
)

// ExampleRequest returns the two-fund portfolio used across tests: a 6L
// equity fund held over a year and a 4L debt fund bought 100 days before now,
// against a 40/35/15/5/5 target.
func ExampleRequest(now time.Time) *domain.AnalysisRequest {
	daysBefore := func(n int) *domain.Date {
		d := domain.NewDate(now.AddDate(0, 0, -n))
		return &d
	}
	return &domain.AnalysisRequest{
		RequestID: "example",
		Holdings: []domain.Holding{
			{SchemeCode: 100, Amount: domain.Float(600000), AssetClass: domain.AssetClassEquity, PurchaseDate: daysBefore(400), PurchaseAmount: domain.Float(500000)},
			{SchemeCode: 200, Amount: domain.Float(400000), AssetClass: domain.AssetClassDebt, PurchaseDate: daysBefore(100), PurchaseAmount: domain.Float(380000)},
		},
		TargetAllocation: domain.NewTargetAllocation(0.4, 0.35, 0.15, 0.05, 0.05, 0),
		Profile:          domain.InvestorProfile{RiskTolerance: domain.RiskModerate, HorizonYears: 7},
	}
}

// ExampleFunds returns provider data for the example holdings plus one
// candidate fund for each class the example portfolio lacks
func ExampleFunds() []domain.FundMetrics {
	return []domain.FundMetrics{
		{SchemeCode: 100, SchemeName: "Bluechip Fund", Category: "Large Cap", AssetClass: domain.AssetClassEquity, NAV: domain.Float(50), Return1Y: domain.Float(12)},
		{SchemeCode: 200, SchemeName: "Short Term Fund", Category: "Short Duration", NAV: domain.Float(20), Return1Y: domain.Float(7)},
		{SchemeCode: 300, SchemeName: "Balanced Advantage Fund", Category: "Balanced Advantage", AssetClass: domain.AssetClassHybrid, NAV: domain.Float(35), Return1Y: domain.Float(11), Return3Y: domain.Float(10), SharpeRatio: domain.Float(1.1)},
		{SchemeCode: 400, SchemeName: "Gold ETF FoF", Category: "Gold", AssetClass: domain.AssetClassGold, NAV: domain.Float(18), Return1Y: domain.Float(14)},
		{SchemeCode: 500, SchemeName: "US Equity FoF", Category: "International", AssetClass: domain.AssetClassInternational, NAV: domain.Float(25), Return1Y: domain.Float(16)},
	}
}

// StaticProvider serves a fixed fund list as both metrics provider and catalog
type StaticProvider struct {
	Funds []domain.FundMetrics
	Err   error
}

// BatchLookup returns the known funds among codes
func (p *StaticProvider) BatchLookup(ctx context.Context, codes []int) (map[int]domain.FundMetrics, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	byCode := make(map[int]domain.FundMetrics, len(p.Funds))
	for _, f := range p.Funds {
		byCode[f.SchemeCode] = f
	}
	out := make(map[int]domain.FundMetrics, len(codes))
	for _, code := range codes {
		if f, ok := byCode[code]; ok {
			out[code] = f
		}
	}
	return out, nil
}

// Catalog returns every fund ordered by scheme code
func (p *StaticProvider) Catalog(ctx context.Context) ([]domain.FundMetrics, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	out := append([]domain.FundMetrics(nil), p.Funds...)
	sort.Slice(out, func(i, j int) bool { return out[i].SchemeCode < out[j].SchemeCode })
	return out, nil
}
