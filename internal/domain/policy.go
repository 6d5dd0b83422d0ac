package domain

import (
	"errors"
	"fmt"
)

// Planner defaults
const (
	// DefaultGapTolerance is the drift (as a weight) tolerated before a class is rebalanced
	DefaultGapTolerance = 0.02
	// HighPriorityGapThreshold marks actions HIGH when |gap| is at least this
	HighPriorityGapThreshold = 0.10
	// MediumPriorityGapThreshold marks actions MEDIUM when |gap| is at least this
	MediumPriorityGapThreshold = 0.05
	// AlignedScoreThreshold is the alignment score at or above which a portfolio is aligned
	AlignedScoreThreshold = 0.90
	// DefaultMaxPrimaryIssues caps the issues listed in the summary
	DefaultMaxPrimaryIssues = 3
)

// Holding-period thresholds for long-term classification, in days
const (
	EquityLTCGThresholdDays = 365
	DebtLTCGThresholdDays   = 1095
)

// Tax rates
const (
	EquityLTCGRate      = 0.10
	EquitySTCGRate      = 0.15
	EquityLTCGExemption = 100000.0
	DebtLTCGRate        = 0.20
	DebtSTCGRate        = 0.30
)

// TaxRule describes how gains of one asset class are taxed
type TaxRule struct {
	LTCGThresholdDays int     `toml:"ltcg_threshold_days" json:"ltcg_threshold_days"`
	LTCGRate          float64 `toml:"ltcg_rate" json:"ltcg_rate"`
	STCGRate          float64 `toml:"stcg_rate" json:"stcg_rate"`
	// ExemptionEligible gains share the annual LTCG exemption
	ExemptionEligible bool `toml:"exemption_eligible" json:"exemption_eligible"`
	Indexation        bool `toml:"indexation" json:"indexation"`
}

// Policy is the full set of tunables used by the planner, scorer and tax classifier
type Policy struct {
	GapTolerance      float64                `toml:"gap_tolerance" json:"gap_tolerance"`
	AlignedThreshold  float64                `toml:"aligned_threshold" json:"aligned_threshold"`
	HighPriorityGap   float64                `toml:"high_priority_gap" json:"high_priority_gap"`
	MediumPriorityGap float64                `toml:"medium_priority_gap" json:"medium_priority_gap"`
	MaxPrimaryIssues  int                    `toml:"max_primary_issues" json:"max_primary_issues"`
	LTCGExemption     float64                `toml:"ltcg_exemption" json:"ltcg_exemption"`
	TaxRules          map[AssetClass]TaxRule `toml:"tax_rules" json:"tax_rules"`
}

func equityRule() TaxRule {
	return TaxRule{
		LTCGThresholdDays: EquityLTCGThresholdDays,
		LTCGRate:          EquityLTCGRate,
		STCGRate:          EquitySTCGRate,
		ExemptionEligible: true,
	}
}

func debtRule() TaxRule {
	return TaxRule{
		LTCGThresholdDays: DebtLTCGThresholdDays,
		LTCGRate:          DebtLTCGRate,
		STCGRate:          DebtSTCGRate,
		Indexation:        true,
	}
}

// DefaultPolicy returns the built-in policy. Unknown-class holdings use the
// debt threshold so their gains are never assumed to be long-term early.
func DefaultPolicy() Policy {
	return Policy{
		GapTolerance:      DefaultGapTolerance,
		AlignedThreshold:  AlignedScoreThreshold,
		HighPriorityGap:   HighPriorityGapThreshold,
		MediumPriorityGap: MediumPriorityGapThreshold,
		MaxPrimaryIssues:  DefaultMaxPrimaryIssues,
		LTCGExemption:     EquityLTCGExemption,
		TaxRules: map[AssetClass]TaxRule{
			AssetClassEquity:        equityRule(),
			AssetClassHybrid:        equityRule(),
			AssetClassInternational: equityRule(),
			AssetClassGold:          equityRule(),
			AssetClassDebt:          debtRule(),
			AssetClassLiquid:        debtRule(),
			AssetClassUnknown:       debtRule(),
		},
	}
}

// TaxRuleFor returns the rule for a class, falling back to the unknown-class rule
func (p Policy) TaxRuleFor(class AssetClass) TaxRule {
	if rule, ok := p.TaxRules[class]; ok {
		return rule
	}
	if rule, ok := p.TaxRules[AssetClassUnknown]; ok {
		return rule
	}
	return debtRule()
}

// PriorityFor maps an absolute gap to an action priority
func (p Policy) PriorityFor(absGap float64) Priority {
	switch {
	case absGap >= p.HighPriorityGap:
		return PriorityHigh
	case absGap >= p.MediumPriorityGap:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Validate checks the policy for impossible values
func (p Policy) Validate() error {
	var errs []error
	if p.GapTolerance <= 0 || p.GapTolerance >= 1 {
		errs = append(errs, fmt.Errorf("gap_tolerance must be in (0,1), got %v", p.GapTolerance))
	}
	if p.AlignedThreshold <= 0 || p.AlignedThreshold > 1 {
		errs = append(errs, fmt.Errorf("aligned_threshold must be in (0,1], got %v", p.AlignedThreshold))
	}
	if p.MediumPriorityGap <= 0 || p.HighPriorityGap <= p.MediumPriorityGap {
		errs = append(errs, fmt.Errorf("priority gaps must satisfy 0 < medium (%v) < high (%v)", p.MediumPriorityGap, p.HighPriorityGap))
	}
	if p.MaxPrimaryIssues < 0 {
		errs = append(errs, fmt.Errorf("max_primary_issues must be >= 0, got %d", p.MaxPrimaryIssues))
	}
	if p.LTCGExemption < 0 {
		errs = append(errs, fmt.Errorf("ltcg_exemption must be >= 0, got %v", p.LTCGExemption))
	}
	for class, rule := range p.TaxRules {
		if !class.IsValid() {
			errs = append(errs, fmt.Errorf("tax_rules: unknown asset class %q", class))
			continue
		}
		if rule.LTCGThresholdDays <= 0 {
			errs = append(errs, fmt.Errorf("tax_rules.%s: ltcg_threshold_days must be > 0", class))
		}
		if rule.LTCGRate < 0 || rule.LTCGRate > 1 || rule.STCGRate < 0 || rule.STCGRate > 1 {
			errs = append(errs, fmt.Errorf("tax_rules.%s: rates must be in [0,1]", class))
		}
	}
	return errors.Join(errs...)
}
