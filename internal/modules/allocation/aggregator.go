// Package allocation aggregates enriched holdings into per-asset-class
// allocations and computes drift against a target allocation.
package allocation

import (
	"math"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// ClassAllocation is the allocation of a single asset class
type ClassAllocation struct {
	AssetClass   domain.AssetClass `json:"asset_class"`
	TargetPct    float64           `json:"target_pct"`
	CurrentPct   float64           `json:"current_pct"`
	CurrentValue float64           `json:"current_value"`
	Deviation    float64           `json:"deviation"`
	Holdings     int               `json:"holdings"`
}

// Result is the aggregated view of a portfolio against its target
type Result struct {
	TotalValue  float64
	Current     domain.Allocation
	Target      domain.Allocation
	Gaps        domain.Allocation
	ClassValues map[domain.AssetClass]float64
	Classes     []ClassAllocation
}

// Aggregate sums holdings by asset class and computes gaps over the union of
// classes that are held or targeted. A positive gap means the class is overweight.
// With zero total value every current weight is 0.
func Aggregate(holdings []domain.EnrichedHolding, target domain.Allocation) Result {
	classValues := make(map[domain.AssetClass]float64)
	counts := make(map[domain.AssetClass]int)
	values := make([]float64, 0, len(holdings))
	for _, h := range holdings {
		class := h.AssetClass
		if class == "" {
			class = domain.AssetClassUnknown
		}
		classValues[class] += h.CurrentValue
		counts[class]++
		values = append(values, h.CurrentValue)
	}
	total := floats.Sum(values)

	current := Weights(classValues, total)

	fullTarget := domain.NewAllocation()
	for class, w := range target {
		fullTarget[class] = w
	}

	gaps := make(domain.Allocation, len(current))
	for class := range current {
		gaps[class] = current[class] - fullTarget[class]
	}
	for class := range fullTarget {
		gaps[class] = current[class] - fullTarget[class]
	}

	classes := make([]ClassAllocation, 0, len(gaps))
	for _, class := range gaps.Classes() {
		classes = append(classes, ClassAllocation{
			AssetClass:   class,
			TargetPct:    fullTarget[class],
			CurrentPct:   current[class],
			CurrentValue: round(classValues[class], 2),
			Deviation:    gaps[class],
			Holdings:     counts[class],
		})
	}

	return Result{
		TotalValue:  total,
		Current:     current,
		Target:      fullTarget,
		Gaps:        gaps,
		ClassValues: classValues,
		Classes:     classes,
	}
}

// Weights divides each class value by total. Every plannable class is present.
func Weights(classValues map[domain.AssetClass]float64, total float64) domain.Allocation {
	out := domain.NewAllocation()
	for class, value := range classValues {
		if total > 0 {
			out[class] = value / total
		} else {
			out[class] = 0
		}
	}
	return out
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
