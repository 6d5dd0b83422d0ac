// Package scoring rates how closely a portfolio matches its target
// allocation, before and after a transaction plan.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/allocation"
)

// Alignment is the scored view of a portfolio
type Alignment struct {
	Score          float64
	IsAligned      bool
	ProjectedScore float64
	PrimaryIssues  []string
}

// Scorer computes alignment scores under a policy
type Scorer struct {
	policy domain.Policy
}

// NewScorer creates a scorer
func NewScorer(policy domain.Policy) *Scorer {
	return &Scorer{policy: policy}
}

// Evaluate scores the current allocation and the allocation projected after
// applying the plan's signed amounts.
func (s *Scorer) Evaluate(res allocation.Result, actions []domain.RebalancingAction, tolerance float64) Alignment {
	score := s.Score(res.Gaps)
	return Alignment{
		Score:          score,
		IsAligned:      s.IsAligned(score),
		ProjectedScore: s.ProjectedScore(res, actions),
		PrimaryIssues:  s.PrimaryIssues(res.Gaps, tolerance),
	}
}

// Score is 1 - Σ|gap|/2 clamped to [0,1], rounded to four decimals
func (s *Scorer) Score(gaps domain.Allocation) float64 {
	var drift float64
	for _, gap := range gaps {
		drift += math.Abs(gap)
	}
	score := 1 - drift/2
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*10000) / 10000
}

// IsAligned reports whether score meets the policy's aligned threshold
func (s *Scorer) IsAligned(score float64) bool {
	return score >= s.policy.AlignedThreshold
}

// ProjectedScore re-scores the portfolio as if every action were executed
func (s *Scorer) ProjectedScore(res allocation.Result, actions []domain.RebalancingAction) float64 {
	if res.TotalValue <= 0 {
		return s.Score(res.Gaps)
	}

	values := make(map[domain.AssetClass]float64, len(res.ClassValues))
	for class, v := range res.ClassValues {
		values[class] = v
	}
	for _, a := range actions {
		values[a.AssetClass] += a.TransactionAmount
	}

	var total float64
	for class, v := range values {
		if v < 0 {
			values[class] = 0
			continue
		}
		total += v
	}

	current := allocation.Weights(values, total)
	gaps := make(domain.Allocation, len(current))
	for class, w := range current {
		gaps[class] = w - res.Target[class]
	}
	for class, w := range res.Target {
		gaps[class] = current[class] - w
	}
	return s.Score(gaps)
}

// PrimaryIssues lists the plannable classes drifting past tolerance, largest
// first, ties by class name, capped at the policy's limit.
func (s *Scorer) PrimaryIssues(gaps domain.Allocation, tolerance float64) []string {
	type drift struct {
		class domain.AssetClass
		gap   float64
	}

	var drifts []drift
	for class, gap := range gaps {
		g := math.Round(gap*1e6) / 1e6
		if class.IsPlannable() && math.Abs(g) > tolerance {
			drifts = append(drifts, drift{class: class, gap: g})
		}
	}
	sort.Slice(drifts, func(i, j int) bool {
		ai, aj := math.Abs(drifts[i].gap), math.Abs(drifts[j].gap)
		if ai != aj {
			return ai > aj
		}
		return drifts[i].class < drifts[j].class
	})

	if limit := s.policy.MaxPrimaryIssues; limit >= 0 && len(drifts) > limit {
		drifts = drifts[:limit]
	}

	issues := make([]string, 0, len(drifts))
	for _, d := range drifts {
		direction := "overweight"
		if d.gap < 0 {
			direction = "underweight"
		}
		issues = append(issues, fmt.Sprintf("%s %s by %.0f%%", d.class.Label(), direction, math.Abs(d.gap)*100))
	}
	return issues
}
