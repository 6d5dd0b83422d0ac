package taxlots

import (
	"fmt"
	"strings"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// Realization is one planned sale with its estimated gain
type Realization struct {
	AssetClass domain.AssetClass
	Status     domain.TaxStatus
	Gain       *float64
}

// Estimate summarizes the tax consequences of a set of realizations
type Estimate struct {
	TotalGain    float64
	LTCGGain     float64
	STCGGain     float64
	LTCGCount    int
	STCGCount    int
	UnknownCount int
	TaxAmount    float64
}

// Estimator computes the tax due on realized gains.
// Losses offset gains within the same bucket only.
type Estimator struct {
	policy domain.Policy
}

// NewEstimator creates an estimator for the given policy
func NewEstimator(policy domain.Policy) *Estimator {
	return &Estimator{policy: policy}
}

// Estimate computes the tax on the realizations. Sales with unknown status
// are counted but not taxed since their holding period is not known.
func (e *Estimator) Estimate(realizations []Realization) Estimate {
	var (
		est         Estimate
		total       = decimal.Zero
		ltcg        = decimal.Zero
		stcg        = decimal.Zero
		exemptLTCG  = decimal.Zero
		exemptGross = decimal.Zero
		taxableLTCG = decimal.Zero
		stcgTax     = decimal.Zero
	)

	for _, r := range realizations {
		gain := decimal.Zero
		if r.Gain != nil {
			gain = decimal.NewFromFloat(*r.Gain)
		}
		total = total.Add(gain)
		rule := e.policy.TaxRuleFor(r.AssetClass)

		switch r.Status {
		case domain.TaxStatusLTCG:
			est.LTCGCount++
			ltcg = ltcg.Add(gain)
			if rule.ExemptionEligible {
				exemptLTCG = exemptLTCG.Add(gain)
				exemptGross = exemptGross.Add(gain.Mul(decimal.NewFromFloat(rule.LTCGRate)))
			} else {
				taxableLTCG = taxableLTCG.Add(gain.Mul(decimal.NewFromFloat(rule.LTCGRate)))
			}
		case domain.TaxStatusSTCG:
			est.STCGCount++
			stcg = stcg.Add(gain)
			stcgTax = stcgTax.Add(gain.Mul(decimal.NewFromFloat(rule.STCGRate)))
		default:
			est.UnknownCount++
		}
	}

	// The annual exemption applies to the combined exemption-eligible long-term
	// gain; the remaining tax is scaled down by the exempt share.
	exemptTax := decimal.Zero
	if over := exemptLTCG.Sub(decimal.NewFromFloat(e.policy.LTCGExemption)); over.IsPositive() {
		exemptTax = exemptGross.Mul(over).Div(exemptLTCG)
	}

	tax := exemptTax.Add(positive(taxableLTCG)).Add(positive(stcgTax))

	est.TotalGain = total.Round(2).InexactFloat64()
	est.LTCGGain = ltcg.Round(2).InexactFloat64()
	est.STCGGain = stcg.Round(2).InexactFloat64()
	est.TaxAmount = tax.Round(0).InexactFloat64()
	return est
}

func positive(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Summary renders the estimate as one sentence
func (est Estimate) Summary() string {
	sells := est.LTCGCount + est.STCGCount + est.UnknownCount
	if sells == 0 {
		return "No sales required - no tax impact."
	}

	var parts []string
	if est.LTCGCount > 0 {
		parts = append(parts, fmt.Sprintf("%d LTCG", est.LTCGCount))
	}
	if est.STCGCount > 0 {
		parts = append(parts, fmt.Sprintf("%d STCG", est.STCGCount))
	}
	if est.UnknownCount > 0 {
		parts = append(parts, fmt.Sprintf("%d with unknown holding period", est.UnknownCount))
	}

	noun := "sales"
	if sells == 1 {
		noun = "sale"
	}
	return fmt.Sprintf("Rebalancing realizes an estimated gain of %s across %d %s (%s); estimated tax %s.",
		FormatRupees(est.TotalGain), sells, noun, strings.Join(parts, ", "), FormatRupees(est.TaxAmount))
}

// FormatRupees formats an amount with Indian digit grouping, e.g. ₹1,00,000
func FormatRupees(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	digits := d.String()

	if len(digits) <= 3 {
		return sign + "₹" + digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}
