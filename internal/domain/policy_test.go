package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy_IsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
}

func TestPolicy_PriorityFor_Boundaries(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, PriorityHigh, p.PriorityFor(HighPriorityGapThreshold))
	assert.Equal(t, PriorityHigh, p.PriorityFor(0.25))
	assert.Equal(t, PriorityMedium, p.PriorityFor(HighPriorityGapThreshold-1e-9))
	assert.Equal(t, PriorityMedium, p.PriorityFor(MediumPriorityGapThreshold))
	assert.Equal(t, PriorityLow, p.PriorityFor(MediumPriorityGapThreshold-1e-9))
	assert.Equal(t, PriorityLow, p.PriorityFor(0))
}

func TestPolicy_TaxRuleFor(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, EquityLTCGThresholdDays, p.TaxRuleFor(AssetClassEquity).LTCGThresholdDays)
	assert.Equal(t, EquityLTCGThresholdDays, p.TaxRuleFor(AssetClassGold).LTCGThresholdDays)
	assert.Equal(t, DebtLTCGThresholdDays, p.TaxRuleFor(AssetClassLiquid).LTCGThresholdDays)
	assert.Equal(t, DebtLTCGThresholdDays, p.TaxRuleFor(AssetClassUnknown).LTCGThresholdDays)

	delete(p.TaxRules, AssetClassHybrid)
	assert.Equal(t, DebtLTCGThresholdDays, p.TaxRuleFor(AssetClassHybrid).LTCGThresholdDays)

	p.TaxRules = nil
	assert.Equal(t, DebtLTCGThresholdDays, p.TaxRuleFor(AssetClassEquity).LTCGThresholdDays)
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"zero tolerance", func(p *Policy) { p.GapTolerance = 0 }},
		{"aligned threshold above one", func(p *Policy) { p.AlignedThreshold = 1.5 }},
		{"medium above high", func(p *Policy) { p.MediumPriorityGap = 0.2 }},
		{"negative exemption", func(p *Policy) { p.LTCGExemption = -1 }},
		{"bad class", func(p *Policy) { p.TaxRules["crypto"] = equityRule() }},
		{"zero threshold", func(p *Policy) {
			r := p.TaxRules[AssetClassDebt]
			r.LTCGThresholdDays = 0
			p.TaxRules[AssetClassDebt] = r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
