package config

import (
	"fmt"
	"os"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

// policyFile mirrors domain.Policy with optional fields so a TOML file only
// needs to name the values it overrides.
type policyFile struct {
	GapTolerance      *float64                  `toml:"gap_tolerance"`
	AlignedThreshold  *float64                  `toml:"aligned_threshold"`
	HighPriorityGap   *float64                  `toml:"high_priority_gap"`
	MediumPriorityGap *float64                  `toml:"medium_priority_gap"`
	MaxPrimaryIssues  *int                      `toml:"max_primary_issues"`
	LTCGExemption     *float64                  `toml:"ltcg_exemption"`
	TaxRules          map[string]taxRuleOverlay `toml:"tax_rules"`
}

type taxRuleOverlay struct {
	LTCGThresholdDays *int     `toml:"ltcg_threshold_days"`
	LTCGRate          *float64 `toml:"ltcg_rate"`
	STCGRate          *float64 `toml:"stcg_rate"`
	ExemptionEligible *bool    `toml:"exemption_eligible"`
	Indexation        *bool    `toml:"indexation"`
}

// LoadPolicy returns the default policy overlaid with the TOML file at path.
// An empty path or a missing file yields the defaults.
func LoadPolicy(path string) (domain.Policy, error) {
	policy := domain.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return policy, nil
	}
	if err != nil {
		return policy, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	return ParsePolicy(data, policy)
}

// ParsePolicy overlays TOML data onto base
func ParsePolicy(data []byte, base domain.Policy) (domain.Policy, error) {
	var file policyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("failed to parse policy: %w", err)
	}

	setFloat(&base.GapTolerance, file.GapTolerance)
	setFloat(&base.AlignedThreshold, file.AlignedThreshold)
	setFloat(&base.HighPriorityGap, file.HighPriorityGap)
	setFloat(&base.MediumPriorityGap, file.MediumPriorityGap)
	setFloat(&base.LTCGExemption, file.LTCGExemption)
	if file.MaxPrimaryIssues != nil {
		base.MaxPrimaryIssues = *file.MaxPrimaryIssues
	}

	rules := make(map[domain.AssetClass]domain.TaxRule, len(base.TaxRules))
	for class, rule := range base.TaxRules {
		rules[class] = rule
	}
	for name, overlay := range file.TaxRules {
		class := domain.AssetClass(name)
		if !class.IsValid() {
			return base, fmt.Errorf("policy tax_rules: unknown asset class %q", name)
		}
		rule := base.TaxRuleFor(class)
		if overlay.LTCGThresholdDays != nil {
			rule.LTCGThresholdDays = *overlay.LTCGThresholdDays
		}
		setFloat(&rule.LTCGRate, overlay.LTCGRate)
		setFloat(&rule.STCGRate, overlay.STCGRate)
		if overlay.ExemptionEligible != nil {
			rule.ExemptionEligible = *overlay.ExemptionEligible
		}
		if overlay.Indexation != nil {
			rule.Indexation = *overlay.Indexation
		}
		rules[class] = rule
	}
	base.TaxRules = rules

	if err := base.Validate(); err != nil {
		return base, fmt.Errorf("invalid policy: %w", err)
	}
	return base, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
