package taxlots

import (
	"testing"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = domain.NewDate(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

func daysAgo(n int) *domain.Date {
	d := domain.NewDate(asOf.AddDate(0, 0, -n))
	return &d
}

func TestClassify_Thresholds(t *testing.T) {
	c := NewClassifier(domain.DefaultPolicy())

	tests := []struct {
		name     string
		class    domain.AssetClass
		days     int
		expected domain.TaxStatus
	}{
		{"equity 366 days", domain.AssetClassEquity, 366, domain.TaxStatusLTCG},
		{"equity exactly 365 days", domain.AssetClassEquity, 365, domain.TaxStatusLTCG},
		{"equity 364 days", domain.AssetClassEquity, 364, domain.TaxStatusSTCG},
		{"hybrid 400 days", domain.AssetClassHybrid, 400, domain.TaxStatusLTCG},
		{"international 366 days", domain.AssetClassInternational, 366, domain.TaxStatusLTCG},
		{"gold 366 days", domain.AssetClassGold, 366, domain.TaxStatusLTCG},
		{"debt 400 days", domain.AssetClassDebt, 400, domain.TaxStatusSTCG},
		{"debt 1095 days", domain.AssetClassDebt, 1095, domain.TaxStatusLTCG},
		{"liquid 1094 days", domain.AssetClassLiquid, 1094, domain.TaxStatusSTCG},
		{"unknown 400 days is conservative", domain.AssetClassUnknown, 400, domain.TaxStatusSTCG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.class, daysAgo(tt.days), asOf)
			require.NotNil(t, got.HoldingPeriodDays)
			assert.Equal(t, tt.days, *got.HoldingPeriodDays)
			assert.Equal(t, tt.expected, got.Status)
		})
	}
}

func TestClassify_NoPurchaseDate(t *testing.T) {
	got := NewClassifier(domain.DefaultPolicy()).Classify(domain.AssetClassEquity, nil, asOf)
	assert.Nil(t, got.HoldingPeriodDays)
	assert.Equal(t, domain.TaxStatusNone, got.Status)
}

func TestClassify_FutureDateClampsToZero(t *testing.T) {
	got := NewClassifier(domain.DefaultPolicy()).Classify(domain.AssetClassEquity, daysAgo(-3), asOf)
	require.NotNil(t, got.HoldingPeriodDays)
	assert.Equal(t, 0, *got.HoldingPeriodDays)
	assert.Equal(t, domain.TaxStatusSTCG, got.Status)
}

func TestClassify_CustomPolicy(t *testing.T) {
	p := domain.DefaultPolicy()
	rule := p.TaxRules[domain.AssetClassGold]
	rule.LTCGThresholdDays = 730
	p.TaxRules[domain.AssetClassGold] = rule

	c := NewClassifier(p)
	assert.Equal(t, 730, c.ThresholdDays(domain.AssetClassGold))
	assert.Equal(t, domain.TaxStatusSTCG, c.Classify(domain.AssetClassGold, daysAgo(400), asOf).Status)
}

func TestSellNote(t *testing.T) {
	c := NewClassifier(domain.DefaultPolicy())

	assert.Equal(t, "LTCG applies - 10% tax on gains above ₹1,00,000 per year",
		c.SellNote(domain.AssetClassEquity, domain.TaxStatusLTCG))
	assert.Equal(t, "LTCG applies - 20% tax with indexation benefit",
		c.SellNote(domain.AssetClassDebt, domain.TaxStatusLTCG))
	assert.Empty(t, c.SellNote(domain.AssetClassEquity, domain.TaxStatusSTCG))
	assert.Empty(t, c.SellNote(domain.AssetClassEquity, domain.TaxStatusNone))
}
