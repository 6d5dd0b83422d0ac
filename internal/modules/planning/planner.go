// Package planning turns allocation gaps into a tax-aware, ordered
// transaction plan of SELL, BUY, ADD_NEW and HOLD actions.
package planning

import (
	"fmt"
	"math"
	"sort"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/allocation"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/taxlots"
)

// ZeroValueWarning is reported when no holding resolved a value
const ZeroValueWarning = "Portfolio has no resolvable value; no rebalancing actions were generated"

// oversellEpsilon absorbs rounding of sell amounts to paise
const oversellEpsilon = 0.01

// Input is everything the planner needs for one request
type Input struct {
	Holdings       []domain.EnrichedHolding
	Allocation     allocation.Result
	Options        domain.PlanOptions
	CandidateFunds map[domain.AssetClass]domain.CandidateFund
}

// Plan is the planner's output
type Plan struct {
	Actions []domain.RebalancingAction
	// Realizations are the sells, one per SELL action, for tax estimation
	Realizations []taxlots.Realization
	Warnings     []string
}

// TotalSell returns the sum of SELL amounts as a positive number
func (p *Plan) TotalSell() float64 {
	var total float64
	for _, a := range p.Actions {
		if a.Action == domain.ActionSell {
			total -= a.TransactionAmount
		}
	}
	return round(total, 2)
}

// TotalBuy returns the sum of BUY and ADD_NEW amounts
func (p *Plan) TotalBuy() float64 {
	var total float64
	for _, a := range p.Actions {
		if a.Action == domain.ActionBuy || a.Action == domain.ActionAddNew {
			total += a.TransactionAmount
		}
	}
	return round(total, 2)
}

// Planner builds transaction plans under a policy
type Planner struct {
	policy     domain.Policy
	classifier *taxlots.Classifier
}

// NewPlanner creates a planner
func NewPlanner(policy domain.Policy, classifier *taxlots.Classifier) *Planner {
	return &Planner{policy: policy, classifier: classifier}
}

// Tolerance returns the effective gap tolerance for the options
func (p *Planner) Tolerance(opts domain.PlanOptions) float64 {
	if opts.GapTolerance != nil && *opts.GapTolerance > 0 {
		return *opts.GapTolerance
	}
	return p.policy.GapTolerance
}

// Plan computes the ordered action list. Classes are visited in display
// order and the unknown class is never planned.
func (p *Planner) Plan(in Input) (*Plan, error) {
	plan := &Plan{Actions: []domain.RebalancingAction{}}
	total := in.Allocation.TotalValue
	if total < 0 || math.IsNaN(total) {
		return nil, domain.NewInvariantError("negative total portfolio value %.2f", total)
	}
	if total == 0 {
		plan.Warnings = append(plan.Warnings, ZeroValueWarning)
		return plan, nil
	}

	tolerance := p.Tolerance(in.Options)
	base := total + in.Options.AdditionalInvestment
	byClass := groupByClass(in.Holdings)

	for _, class := range domain.PlannableAssetClasses {
		gap := roundGap(in.Allocation.Gaps[class])
		c := classContext{
			class:       class,
			gap:         gap,
			priority:    p.policy.PriorityFor(math.Abs(gap)),
			targetValue: in.Allocation.Target[class] * base,
			classValue:  in.Allocation.ClassValues[class],
			targetPct:   in.Allocation.Target[class],
			currentPct:  in.Allocation.Current[class],
			base:        base,
			holdings:    byClass[class],
		}

		switch {
		case gap > tolerance:
			p.planSells(plan, c)
		case gap < -tolerance:
			p.planBuy(plan, c, in.CandidateFunds)
		case in.Options.IncludeHold:
			planHolds(plan, c)
		}
	}

	if err := checkNoOversell(plan.Actions, in.Allocation.ClassValues); err != nil {
		return nil, err
	}

	sortActions(plan.Actions)
	return plan, nil
}

type classContext struct {
	class       domain.AssetClass
	gap         float64
	priority    domain.Priority
	targetValue float64
	classValue  float64
	targetPct   float64
	currentPct  float64
	base        float64
	holdings    []domain.EnrichedHolding
}

func (p *Planner) planSells(plan *Plan, c classContext) {
	remaining := round(c.classValue-c.targetValue, 2)
	if remaining <= 0 {
		return
	}

	for _, h := range sellCandidates(c.holdings) {
		if remaining <= 0 {
			break
		}
		sold := math.Min(remaining, h.CurrentValue)
		remaining = round(remaining-sold, 2)

		action := currentAction(domain.ActionSell, c.priority, h, c.base)
		newValue := h.CurrentValue - sold
		action.TargetValue = round(newValue, 2)
		action.TargetWeight = round(newValue/c.base, 4)
		action.TransactionAmount = -round(sold, 2)
		if h.NAV != nil && *h.NAV > 0 {
			action.TransactionUnits = domain.Float(round(sold / *h.NAV, 4))
		}
		action.TaxStatus = h.TaxStatus
		action.HoldingPeriodDays = h.HoldingPeriodDays
		if h.UnrealizedGain != nil && h.CurrentValue > 0 {
			action.EstimatedGain = domain.Float(round(*h.UnrealizedGain*sold/h.CurrentValue, 2))
		}
		action.TaxNote = p.classifier.SellNote(h.AssetClass, h.TaxStatus)
		status := string(h.TaxStatus)
		if status == "" {
			status = "Unknown"
		}
		action.Reason = fmt.Sprintf("Reduce %s overweight (%s); %s eligible", c.class, percent(c.gap), status)

		plan.Actions = append(plan.Actions, action)
		plan.Realizations = append(plan.Realizations, taxlots.Realization{
			AssetClass: h.AssetClass,
			Status:     h.TaxStatus,
			Gain:       action.EstimatedGain,
		})
	}
}

func (p *Planner) planBuy(plan *Plan, c classContext, candidates map[domain.AssetClass]domain.CandidateFund) {
	deficit := round(c.targetValue-c.classValue, 2)
	if deficit <= 0 {
		return
	}

	if largest, ok := largestHolding(c.holdings); ok {
		action := currentAction(domain.ActionBuy, c.priority, largest, c.base)
		newValue := largest.CurrentValue + deficit
		action.TargetValue = round(newValue, 2)
		action.TargetWeight = round(newValue/c.base, 4)
		action.TransactionAmount = deficit
		if largest.NAV != nil && *largest.NAV > 0 {
			action.TransactionUnits = domain.Float(round(deficit / *largest.NAV, 4))
		}
		action.Reason = fmt.Sprintf("Increase %s allocation (gap: %s)", c.class, percent(c.gap))
		plan.Actions = append(plan.Actions, action)
		return
	}

	action := domain.RebalancingAction{
		Action:            domain.ActionAddNew,
		Priority:          c.priority,
		AssetClass:        c.class,
		TargetValue:       deficit,
		TargetWeight:      round(deficit/c.base, 4),
		TransactionAmount: deficit,
		Reason: fmt.Sprintf("Add %s allocation (currently %s vs target %s)",
			c.class, percent(c.currentPct), percent(c.targetPct)),
	}
	if fund, ok := candidates[c.class]; ok && fund.SchemeCode > 0 {
		action.SchemeCode = domain.Int(fund.SchemeCode)
		action.SchemeName = fund.SchemeName
		action.Category = fund.Category
	}
	plan.Actions = append(plan.Actions, action)
}

func planHolds(plan *Plan, c classContext) {
	reason := fmt.Sprintf("%s within tolerance of target (gap: %s)", c.class.Label(), percent(c.gap))
	if len(c.holdings) == 0 {
		if c.targetPct == 0 {
			return
		}
		plan.Actions = append(plan.Actions, domain.RebalancingAction{
			Action:       domain.ActionHold,
			Priority:     c.priority,
			AssetClass:   c.class,
			TargetValue:  round(c.targetValue, 2),
			TargetWeight: c.targetPct,
			Reason:       reason,
		})
		return
	}
	for _, h := range c.holdings {
		action := currentAction(domain.ActionHold, c.priority, h, c.base)
		action.TargetValue = round(h.CurrentValue, 2)
		action.TargetWeight = round(h.CurrentValue/c.base, 4)
		action.TaxStatus = h.TaxStatus
		action.HoldingPeriodDays = h.HoldingPeriodDays
		action.Reason = reason
		plan.Actions = append(plan.Actions, action)
	}
}

// currentAction fills the fields shared by every action on an existing holding
func currentAction(kind domain.ActionKind, priority domain.Priority, h domain.EnrichedHolding, base float64) domain.RebalancingAction {
	weight := h.Weight
	if base > 0 {
		weight = h.CurrentValue / base
	}
	return domain.RebalancingAction{
		Action:        kind,
		Priority:      priority,
		SchemeCode:    domain.Int(h.SchemeCode),
		SchemeName:    h.SchemeName,
		Category:      h.Category,
		AssetClass:    h.AssetClass,
		CurrentValue:  domain.Float(round(h.CurrentValue, 2)),
		CurrentWeight: domain.Float(round(weight, 4)),
		CurrentUnits:  h.Units,
	}
}

func groupByClass(holdings []domain.EnrichedHolding) map[domain.AssetClass][]domain.EnrichedHolding {
	out := make(map[domain.AssetClass][]domain.EnrichedHolding)
	for _, h := range holdings {
		if !h.AssetClass.IsPlannable() {
			continue
		}
		out[h.AssetClass] = append(out[h.AssetClass], h)
	}
	return out
}

// sellCandidates orders a class's holdings for selling: short-term and
// unknown-status lots before long-term ones, then smallest unrealized gain
// (losses first), then scheme code, then request order. Zero-value
// holdings are skipped.
func sellCandidates(holdings []domain.EnrichedHolding) []domain.EnrichedHolding {
	candidates := make([]domain.EnrichedHolding, 0, len(holdings))
	for _, h := range holdings {
		if h.CurrentValue > 0 {
			candidates = append(candidates, h)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := taxRank(a.TaxStatus), taxRank(b.TaxStatus); ra != rb {
			return ra < rb
		}
		if ga, gb := gainOf(a), gainOf(b); ga != gb {
			return ga < gb
		}
		if a.SchemeCode != b.SchemeCode {
			return a.SchemeCode < b.SchemeCode
		}
		return a.Index < b.Index
	})
	return candidates
}

func taxRank(status domain.TaxStatus) int {
	if status == domain.TaxStatusLTCG {
		return 1
	}
	return 0
}

func gainOf(h domain.EnrichedHolding) float64 {
	if h.UnrealizedGain == nil {
		return 0
	}
	return *h.UnrealizedGain
}

// largestHolding picks the holding with the highest value, lowest scheme code on ties
func largestHolding(holdings []domain.EnrichedHolding) (domain.EnrichedHolding, bool) {
	var best domain.EnrichedHolding
	found := false
	for _, h := range holdings {
		if !found ||
			h.CurrentValue > best.CurrentValue ||
			(h.CurrentValue == best.CurrentValue && h.SchemeCode < best.SchemeCode) {
			best = h
			found = true
		}
	}
	return best, found
}

// checkNoOversell verifies that no class sells more than it holds
func checkNoOversell(actions []domain.RebalancingAction, classValues map[domain.AssetClass]float64) error {
	sold := make(map[domain.AssetClass]float64)
	for _, a := range actions {
		if a.Action != domain.ActionSell {
			continue
		}
		if a.TransactionAmount > 0 {
			return domain.NewInvariantError("SELL on scheme %d has positive amount %.2f", derefInt(a.SchemeCode), a.TransactionAmount)
		}
		sold[a.AssetClass] -= a.TransactionAmount
	}
	for class, amount := range sold {
		if amount > classValues[class]+oversellEpsilon {
			return domain.NewInvariantError("%s sells of %.2f exceed class value %.2f", class, amount, classValues[class])
		}
	}
	return nil
}

// sortActions orders by priority, action kind, |amount| descending, asset class, scheme code
func sortActions(actions []domain.RebalancingAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Action.Rank() != b.Action.Rank() {
			return a.Action.Rank() < b.Action.Rank()
		}
		if aa, ab := math.Abs(a.TransactionAmount), math.Abs(b.TransactionAmount); aa != ab {
			return aa > ab
		}
		if a.AssetClass != b.AssetClass {
			return a.AssetClass < b.AssetClass
		}
		return derefInt(a.SchemeCode) < derefInt(b.SchemeCode)
	})
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// roundGap drops float noise so boundary gaps compare exactly
func roundGap(gap float64) float64 {
	return round(gap, 6)
}

func percent(weight float64) string {
	return fmt.Sprintf("%.1f%%", weight*100)
}

func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
