// Package taxlots classifies holdings as long- or short-term capital gains
// lots and estimates the tax realized by a set of sells.
package taxlots

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
)

// Classification is the tax view of one holding
type Classification struct {
	HoldingPeriodDays *int
	Status            domain.TaxStatus
}

// Classifier applies the policy's per-class holding-period thresholds
type Classifier struct {
	policy domain.Policy
}

// NewClassifier creates a classifier for the given policy
func NewClassifier(policy domain.Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify computes the holding period from purchaseDate to asOf and the resulting status.
// Without a purchase date there is no period and no status.
// Purchase dates after asOf are clamped to a zero-day holding.
func (c *Classifier) Classify(class domain.AssetClass, purchaseDate *domain.Date, asOf domain.Date) Classification {
	if purchaseDate == nil || purchaseDate.IsZero() {
		return Classification{Status: domain.TaxStatusNone}
	}

	days := purchaseDate.DaysUntil(asOf)
	if days < 0 {
		days = 0
	}

	status := domain.TaxStatusSTCG
	if days >= c.policy.TaxRuleFor(class).LTCGThresholdDays {
		status = domain.TaxStatusLTCG
	}
	return Classification{HoldingPeriodDays: &days, Status: status}
}

// ThresholdDays returns the LTCG threshold for a class
func (c *Classifier) ThresholdDays(class domain.AssetClass) int {
	return c.policy.TaxRuleFor(class).LTCGThresholdDays
}

// SellNote returns the tax note attached to a SELL. Only long-term lots carry a note.
func (c *Classifier) SellNote(class domain.AssetClass, status domain.TaxStatus) string {
	if status != domain.TaxStatusLTCG {
		return ""
	}
	rule := c.policy.TaxRuleFor(class)
	switch {
	case rule.ExemptionEligible && c.policy.LTCGExemption > 0:
		return fmt.Sprintf("LTCG applies - %s tax on gains above %s per year",
			formatRate(rule.LTCGRate), FormatRupees(c.policy.LTCGExemption))
	case rule.Indexation:
		return fmt.Sprintf("LTCG applies - %s tax with indexation benefit", formatRate(rule.LTCGRate))
	default:
		return fmt.Sprintf("LTCG applies - %s tax on gains", formatRate(rule.LTCGRate))
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*10000)/100, 'f', -1, 64) + "%"
}
