// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssetClass is the coarse bucket a mutual fund scheme is allocated into
type AssetClass string

const (
	AssetClassEquity        AssetClass = "equity"
	AssetClassDebt          AssetClass = "debt"
	AssetClassHybrid        AssetClass = "hybrid"
	AssetClassGold          AssetClass = "gold"
	AssetClassInternational AssetClass = "international"
	AssetClassLiquid        AssetClass = "liquid"
	// AssetClassUnknown marks holdings whose class could not be resolved.
	// Such holdings count towards total value but are never planned.
	AssetClassUnknown AssetClass = "unknown"
)

// PlannableAssetClasses lists the classes a target allocation can name, in display order
var PlannableAssetClasses = []AssetClass{
	AssetClassEquity,
	AssetClassDebt,
	AssetClassHybrid,
	AssetClassGold,
	AssetClassInternational,
	AssetClassLiquid,
}

// IsPlannable reports whether the class is one of the six target classes
func (a AssetClass) IsPlannable() bool {
	for _, c := range PlannableAssetClasses {
		if a == c {
			return true
		}
	}
	return false
}

// IsValid reports whether the class is plannable or explicitly unknown
func (a AssetClass) IsValid() bool {
	return a == AssetClassUnknown || a.IsPlannable()
}

// Label returns the capitalized class name used in human-readable text
func (a AssetClass) Label() string {
	if a == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// ParseAssetClass normalizes free-form input ("Equity", " DEBT ") to an AssetClass.
// Unrecognized values return AssetClassUnknown and false.
func ParseAssetClass(s string) (AssetClass, bool) {
	c := AssetClass(strings.ToLower(strings.TrimSpace(s)))
	if c.IsPlannable() {
		return c, true
	}
	return AssetClassUnknown, false
}

// TaxStatus is the capital-gains classification of a holding
type TaxStatus string

const (
	TaxStatusLTCG TaxStatus = "LTCG"
	TaxStatusSTCG TaxStatus = "STCG"
	// TaxStatusNone is used when the purchase date is not known
	TaxStatusNone TaxStatus = ""
)

// ActionKind is the kind of rebalancing action
type ActionKind string

const (
	ActionSell   ActionKind = "SELL"
	ActionBuy    ActionKind = "BUY"
	ActionAddNew ActionKind = "ADD_NEW"
	ActionHold   ActionKind = "HOLD"
)

// Rank orders action kinds for plan output: sells first, informational holds last
func (k ActionKind) Rank() int {
	switch k {
	case ActionSell:
		return 0
	case ActionBuy:
		return 1
	case ActionAddNew:
		return 2
	default:
		return 3
	}
}

// Priority of a rebalancing action
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank orders priorities, most urgent first
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// RiskTolerance is the investor's stated appetite for risk
type RiskTolerance string

const (
	RiskConservative           RiskTolerance = "Conservative"
	RiskModeratelyConservative RiskTolerance = "Moderately Conservative"
	RiskModerate               RiskTolerance = "Moderate"
	RiskModeratelyAggressive   RiskTolerance = "Moderately Aggressive"
	RiskAggressive             RiskTolerance = "Aggressive"
)

// IsValid reports whether r is one of the known tolerances
func (r RiskTolerance) IsValid() bool {
	switch r {
	case RiskConservative, RiskModeratelyConservative, RiskModerate, RiskModeratelyAggressive, RiskAggressive:
		return true
	}
	return false
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return NewDate(t), nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysUntil returns the number of whole calendar days from d to other
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// Holding is one raw holding as supplied by the caller.
// Duplicate scheme codes are treated as separate lots.
type Holding struct {
	SchemeCode     int        `json:"scheme_code" msgpack:"scheme_code" validate:"required,gt=0"`
	SchemeName     string     `json:"scheme_name,omitempty" msgpack:"scheme_name"`
	Category       string     `json:"category,omitempty" msgpack:"category"`
	AssetClass     AssetClass `json:"asset_class,omitempty" msgpack:"asset_class" validate:"omitempty,asset_class"`
	Amount         *float64   `json:"amount,omitempty" msgpack:"amount" validate:"omitempty,gte=0"`
	Units          *float64   `json:"units,omitempty" msgpack:"units" validate:"omitempty,gte=0"`
	PurchaseDate   *Date      `json:"purchase_date,omitempty" msgpack:"purchase_date"`
	PurchasePrice  *float64   `json:"purchase_price,omitempty" msgpack:"purchase_price" validate:"omitempty,gte=0"`
	PurchaseAmount *float64   `json:"purchase_amount,omitempty" msgpack:"purchase_amount" validate:"omitempty,gte=0"`
}

// TargetAllocation holds the six target weights. All six are required on the wire.
// Weights need not sum to 1.
type TargetAllocation struct {
	Equity        *float64 `json:"equity" msgpack:"equity" validate:"required,gte=0,lte=1"`
	Debt          *float64 `json:"debt" msgpack:"debt" validate:"required,gte=0,lte=1"`
	Hybrid        *float64 `json:"hybrid" msgpack:"hybrid" validate:"required,gte=0,lte=1"`
	Gold          *float64 `json:"gold" msgpack:"gold" validate:"required,gte=0,lte=1"`
	International *float64 `json:"international" msgpack:"international" validate:"required,gte=0,lte=1"`
	Liquid        *float64 `json:"liquid" msgpack:"liquid" validate:"required,gte=0,lte=1"`
}

// NewTargetAllocation builds a fully populated target
func NewTargetAllocation(equity, debt, hybrid, gold, international, liquid float64) TargetAllocation {
	return TargetAllocation{
		Equity:        &equity,
		Debt:          &debt,
		Hybrid:        &hybrid,
		Gold:          &gold,
		International: &international,
		Liquid:        &liquid,
	}
}

// Weights converts the target into an Allocation. Missing fields count as 0.
func (t TargetAllocation) Weights() Allocation {
	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return Allocation{
		AssetClassEquity:        deref(t.Equity),
		AssetClassDebt:          deref(t.Debt),
		AssetClassHybrid:        deref(t.Hybrid),
		AssetClassGold:          deref(t.Gold),
		AssetClassInternational: deref(t.International),
		AssetClassLiquid:        deref(t.Liquid),
	}
}

// Allocation maps asset class to weight
type Allocation map[AssetClass]float64

// NewAllocation returns an allocation with every plannable class set to 0
func NewAllocation() Allocation {
	a := make(Allocation, len(PlannableAssetClasses)+1)
	for _, c := range PlannableAssetClasses {
		a[c] = 0
	}
	return a
}

// Sum returns the total weight
func (a Allocation) Sum() float64 {
	var total float64
	for _, w := range a {
		total += w
	}
	return total
}

// Classes returns the classes present in a, plannable classes first in display order
func (a Allocation) Classes() []AssetClass {
	classes := make([]AssetClass, 0, len(a))
	for _, c := range PlannableAssetClasses {
		if _, ok := a[c]; ok {
			classes = append(classes, c)
		}
	}
	if _, ok := a[AssetClassUnknown]; ok {
		classes = append(classes, AssetClassUnknown)
	}
	return classes
}

// InvestorProfile describes the investor. Unknown JSON fields are ignored.
type InvestorProfile struct {
	RiskTolerance RiskTolerance `json:"risk_tolerance,omitempty" msgpack:"risk_tolerance" validate:"omitempty,risk_tolerance"`
	HorizonYears  int           `json:"horizon_years,omitempty" msgpack:"horizon_years" validate:"gte=0,lte=60"`
	MonthlySIP    *float64      `json:"monthly_sip,omitempty" msgpack:"monthly_sip" validate:"omitempty,gte=0"`
}

// PlanOptions tunes the planner for a single request
type PlanOptions struct {
	// IncludeHold emits HOLD actions for classes within tolerance
	IncludeHold bool `json:"include_hold,omitempty" msgpack:"include_hold"`
	// AdditionalInvestment is fresh cash the investor will add; buys are sized against total+this
	AdditionalInvestment float64 `json:"additional_investment,omitempty" msgpack:"additional_investment" validate:"gte=0"`
	// GapTolerance overrides the configured tolerance when set
	GapTolerance *float64 `json:"gap_tolerance,omitempty" msgpack:"gap_tolerance" validate:"omitempty,gt=0,lt=1"`
}

// CandidateFund is a caller-supplied scheme to use for ADD_NEW actions of a class
type CandidateFund struct {
	SchemeCode int    `json:"scheme_code" msgpack:"scheme_code" validate:"required,gt=0"`
	SchemeName string `json:"scheme_name,omitempty" msgpack:"scheme_name"`
	Category   string `json:"category,omitempty" msgpack:"category"`
}

// AnalysisRequest is the inbound portfolio analysis request
type AnalysisRequest struct {
	RequestID        string                       `json:"request_id,omitempty" msgpack:"request_id" validate:"omitempty,max=128"`
	Holdings         []Holding                    `json:"holdings" msgpack:"holdings" validate:"dive"`
	TargetAllocation TargetAllocation             `json:"target_allocation" msgpack:"target_allocation"`
	Profile          InvestorProfile              `json:"profile" msgpack:"profile"`
	Options          PlanOptions                  `json:"options,omitempty" msgpack:"options"`
	CandidateFunds   map[AssetClass]CandidateFund `json:"candidate_funds,omitempty" msgpack:"candidate_funds" validate:"omitempty,dive,keys,asset_class,endkeys"`
}

// DegradedReason explains why an enriched holding lacks provider data
type DegradedReason string

const (
	DegradedProviderMiss   DegradedReason = "provider_miss"
	DegradedNAVUnavailable DegradedReason = "nav_unavailable"
)

// EnrichedHolding is a holding joined with fund metrics and tax classification.
// It is created once per request and not mutated afterwards.
type EnrichedHolding struct {
	SchemeCode        int            `json:"scheme_code" msgpack:"scheme_code"`
	SchemeName        string         `json:"scheme_name" msgpack:"scheme_name"`
	Category          string         `json:"category" msgpack:"category"`
	AssetClass        AssetClass     `json:"asset_class" msgpack:"asset_class"`
	CurrentValue      float64        `json:"current_value" msgpack:"current_value"`
	Weight            float64        `json:"weight" msgpack:"weight"`
	Units             *float64       `json:"units,omitempty" msgpack:"units"`
	NAV               *float64       `json:"nav,omitempty" msgpack:"nav"`
	Return1Y          *float64       `json:"return_1y,omitempty" msgpack:"return_1y"`
	Return3Y          *float64       `json:"return_3y,omitempty" msgpack:"return_3y"`
	Volatility        *float64       `json:"volatility,omitempty" msgpack:"volatility"`
	SharpeRatio       *float64       `json:"sharpe_ratio,omitempty" msgpack:"sharpe_ratio"`
	HoldingPeriodDays *int           `json:"holding_period_days,omitempty" msgpack:"holding_period_days"`
	TaxStatus         TaxStatus      `json:"tax_status,omitempty" msgpack:"tax_status"`
	PurchaseAmount    *float64       `json:"purchase_amount,omitempty" msgpack:"purchase_amount"`
	UnrealizedGain    *float64       `json:"unrealized_gain,omitempty" msgpack:"unrealized_gain"`
	Degraded          bool           `json:"degraded,omitempty" msgpack:"degraded"`
	DegradedReason    DegradedReason `json:"degraded_reason,omitempty" msgpack:"degraded_reason"`

	// Index is the position of the holding in the request, used as the final tie-breaker
	Index int `json:"-" msgpack:"index"`
}

// RebalancingAction is one step of the transaction plan
type RebalancingAction struct {
	Action            ActionKind `json:"action" msgpack:"action"`
	Priority          Priority   `json:"priority" msgpack:"priority"`
	SchemeCode        *int       `json:"scheme_code,omitempty" msgpack:"scheme_code"`
	SchemeName        string     `json:"scheme_name,omitempty" msgpack:"scheme_name"`
	Category          string     `json:"category,omitempty" msgpack:"category"`
	AssetClass        AssetClass `json:"asset_class" msgpack:"asset_class"`
	CurrentValue      *float64   `json:"current_value,omitempty" msgpack:"current_value"`
	CurrentWeight     *float64   `json:"current_weight,omitempty" msgpack:"current_weight"`
	CurrentUnits      *float64   `json:"current_units,omitempty" msgpack:"current_units"`
	TargetValue       float64    `json:"target_value" msgpack:"target_value"`
	TargetWeight      float64    `json:"target_weight" msgpack:"target_weight"`
	TransactionAmount float64    `json:"transaction_amount" msgpack:"transaction_amount"`
	TransactionUnits  *float64   `json:"transaction_units,omitempty" msgpack:"transaction_units"`
	TaxStatus         TaxStatus  `json:"tax_status,omitempty" msgpack:"tax_status"`
	HoldingPeriodDays *int       `json:"holding_period_days,omitempty" msgpack:"holding_period_days"`
	EstimatedGain     *float64   `json:"estimated_gain,omitempty" msgpack:"estimated_gain"`
	Reason            string     `json:"reason" msgpack:"reason"`
	TaxNote           string     `json:"tax_note,omitempty" msgpack:"tax_note"`
}

// CategoryBreakdown summarizes holdings sharing a fund category
type CategoryBreakdown struct {
	Count      int     `json:"count" msgpack:"count"`
	Allocation float64 `json:"allocation" msgpack:"allocation"`
	Value      float64 `json:"value" msgpack:"value"`
}

// CurrentMetrics are portfolio-level value-weighted metrics
type CurrentMetrics struct {
	TotalValue         float64                      `json:"total_value" msgpack:"total_value"`
	TotalHoldings      int                          `json:"total_holdings" msgpack:"total_holdings"`
	DegradedHoldings   int                          `json:"degraded_holdings" msgpack:"degraded_holdings"`
	WeightedReturn1Y   *float64                     `json:"weighted_return_1y,omitempty" msgpack:"weighted_return_1y"`
	WeightedReturn3Y   *float64                     `json:"weighted_return_3y,omitempty" msgpack:"weighted_return_3y"`
	WeightedVolatility *float64                     `json:"weighted_volatility,omitempty" msgpack:"weighted_volatility"`
	WeightedSharpe     *float64                     `json:"weighted_sharpe,omitempty" msgpack:"weighted_sharpe"`
	CategoryBreakdown  map[string]CategoryBreakdown `json:"category_breakdown" msgpack:"category_breakdown"`
}

// AnalysisSummary is the plan summary
type AnalysisSummary struct {
	IsAligned               bool     `json:"is_aligned" msgpack:"is_aligned"`
	AlignmentScore          float64  `json:"alignment_score" msgpack:"alignment_score"`
	ProjectedAlignmentScore float64  `json:"projected_alignment_score" msgpack:"projected_alignment_score"`
	PrimaryIssues           []string `json:"primary_issues" msgpack:"primary_issues"`
	TotalSellAmount         float64  `json:"total_sell_amount" msgpack:"total_sell_amount"`
	TotalBuyAmount          float64  `json:"total_buy_amount" msgpack:"total_buy_amount"`
	// NetTransaction is sells minus buys; negative means fresh cash is needed
	NetTransaction   float64  `json:"net_transaction" msgpack:"net_transaction"`
	TaxImpactSummary string   `json:"tax_impact_summary" msgpack:"tax_impact_summary"`
	EstimatedTax     float64  `json:"estimated_tax" msgpack:"estimated_tax"`
	Warnings         []string `json:"warnings,omitempty" msgpack:"warnings"`
}

// AnalysisResponse is the outbound analysis result
type AnalysisResponse struct {
	RequestID          string              `json:"request_id" msgpack:"request_id"`
	AsOf               Date                `json:"as_of" msgpack:"as_of"`
	CurrentAllocation  Allocation          `json:"current_allocation" msgpack:"current_allocation"`
	TargetAllocation   Allocation          `json:"target_allocation" msgpack:"target_allocation"`
	AllocationGaps     Allocation          `json:"allocation_gaps" msgpack:"allocation_gaps"`
	CurrentMetrics     CurrentMetrics      `json:"current_metrics" msgpack:"current_metrics"`
	Holdings           []EnrichedHolding   `json:"holdings" msgpack:"holdings"`
	RebalancingActions []RebalancingAction `json:"rebalancing_actions" msgpack:"rebalancing_actions"`
	Summary            AnalysisSummary     `json:"summary" msgpack:"summary"`
	ModelVersion       string              `json:"model_version" msgpack:"model_version"`
	LatencyMS          float64             `json:"latency_ms" msgpack:"latency_ms"`
	// SnapshotID is set when the analysis was recorded for audit
	SnapshotID string `json:"snapshot_id,omitempty" msgpack:"-"`
}

// FundMetrics is what the fund metrics provider knows about a scheme
type FundMetrics struct {
	SchemeCode   int        `json:"scheme_code"`
	SchemeName   string     `json:"scheme_name"`
	FundHouse    string     `json:"fund_house,omitempty"`
	Category     string     `json:"category"`
	AssetClass   AssetClass `json:"asset_class,omitempty"`
	NAV          *float64   `json:"nav,omitempty"`
	Return1Y     *float64   `json:"return_1y,omitempty"`
	Return3Y     *float64   `json:"return_3y,omitempty"`
	Return5Y     *float64   `json:"return_5y,omitempty"`
	Volatility   *float64   `json:"volatility,omitempty"`
	SharpeRatio  *float64   `json:"sharpe_ratio,omitempty"`
	ExpenseRatio *float64   `json:"expense_ratio,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}
