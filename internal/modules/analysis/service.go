// Package analysis runs the portfolio analysis pipeline: validation,
// enrichment, aggregation, planning, recommendation and scoring.
package analysis

import (
	"context"
	"math"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/allocation"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/enrichment"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/planning"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/recommendation"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/scoring"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/taxlots"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ModelVersion identifies the planner rule set
const ModelVersion = "tax-aware-rebalancer-v1"

// allocationSumTolerance bounds the drift of Σ current allocation from 1
const allocationSumTolerance = 1e-6

// Service orchestrates one analysis per call. It holds no per-request state.
type Service struct {
	policy      domain.Policy
	validator   *Validator
	enricher    *enrichment.Enricher
	planner     *planning.Planner
	scorer      *scoring.Scorer
	estimator   *taxlots.Estimator
	recommender *recommendation.Recommender
	recorder    domain.AnalysisRecorder
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates the analysis service. recommender and recorder may be nil.
func NewService(
	policy domain.Policy,
	provider domain.FundMetricsProvider,
	lookupTimeout time.Duration,
	recommender *recommendation.Recommender,
	recorder domain.AnalysisRecorder,
	log zerolog.Logger,
) *Service {
	classifier := taxlots.NewClassifier(policy)
	return &Service{
		policy:      policy,
		validator:   NewValidator(),
		enricher:    enrichment.NewEnricher(provider, classifier, lookupTimeout, log),
		planner:     planning.NewPlanner(policy, classifier),
		scorer:      scoring.NewScorer(policy),
		estimator:   taxlots.NewEstimator(policy),
		recommender: recommender,
		recorder:    recorder,
		now:         time.Now,
		log:         log.With().Str("service", "analysis").Logger(),
	}
}

// SetClock replaces the clock used for holding periods and as_of
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Policy returns the effective policy
func (s *Service) Policy() domain.Policy {
	return s.policy
}

// Analyze runs the full pipeline for one request. All failures are *domain.AnalysisError.
func (s *Service) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	start := time.Now()
	asOf := domain.NewDate(s.now())

	if req != nil {
		normalize(req)
	}
	if err := s.validator.Validate(req, asOf); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := s.log.With().Str("request_id", requestID).Logger()

	enriched, err := s.enricher.Enrich(ctx, req.Holdings, asOf)
	if err != nil {
		log.Warn().Err(err).Msg("Enrichment aborted")
		return nil, err
	}

	agg := allocation.Aggregate(enriched.Holdings, req.TargetAllocation.Weights())
	if agg.TotalValue > 0 {
		if sum := agg.Current.Sum(); math.Abs(sum-1) > allocationSumTolerance {
			err := domain.NewInvariantError("current allocation sums to %.9f", sum)
			log.Error().Err(err).Msg("Allocation invariant violated")
			return nil, err
		}
	}

	plan, err := s.planner.Plan(planning.Input{
		Holdings:       enriched.Holdings,
		Allocation:     agg,
		Options:        req.Options,
		CandidateFunds: req.CandidateFunds,
	})
	if err != nil {
		log.Error().Err(err).Msg("Planning failed")
		return nil, err
	}

	if s.recommender != nil {
		if filled := s.recommender.Fill(ctx, plan.Actions); filled > 0 {
			log.Debug().Int("filled", filled).Msg("Recommended funds for new asset classes")
		}
	}

	alignment := s.scorer.Evaluate(agg, plan.Actions, s.planner.Tolerance(req.Options))
	tax := s.estimator.Estimate(plan.Realizations)

	totalSell, totalBuy := plan.TotalSell(), plan.TotalBuy()
	warnings := append(append([]string{}, enriched.Warnings...), plan.Warnings...)

	resp := &domain.AnalysisResponse{
		RequestID:          requestID,
		AsOf:               asOf,
		CurrentAllocation:  agg.Current,
		TargetAllocation:   agg.Target,
		AllocationGaps:     roundAllocation(agg.Gaps, 6),
		CurrentMetrics:     enriched.Metrics,
		Holdings:           enriched.Holdings,
		RebalancingActions: plan.Actions,
		Summary: domain.AnalysisSummary{
			IsAligned:               alignment.IsAligned,
			AlignmentScore:          alignment.Score,
			ProjectedAlignmentScore: alignment.ProjectedScore,
			PrimaryIssues:           alignment.PrimaryIssues,
			TotalSellAmount:         totalSell,
			TotalBuyAmount:          totalBuy,
			NetTransaction:          math.Round((totalSell-totalBuy)*100) / 100,
			TaxImpactSummary:        tax.Summary(),
			EstimatedTax:            tax.TaxAmount,
			Warnings:                warnings,
		},
		ModelVersion: ModelVersion,
	}
	resp.LatencyMS = float64(time.Since(start).Microseconds()) / 1000

	if s.recorder != nil {
		// Recording outlives a cancelled request
		id, err := s.recorder.Record(context.WithoutCancel(ctx), req, resp)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to record analysis snapshot")
		} else {
			resp.SnapshotID = id
		}
	}

	log.Info().
		Int("holdings", len(resp.Holdings)).
		Int("actions", len(resp.RebalancingActions)).
		Float64("alignment_score", resp.Summary.AlignmentScore).
		Float64("latency_ms", resp.LatencyMS).
		Msg("Portfolio analyzed")

	return resp, nil
}

func roundAllocation(a domain.Allocation, decimals int) domain.Allocation {
	multiplier := math.Pow(10, float64(decimals))
	out := make(domain.Allocation, len(a))
	for class, w := range a {
		out[class] = math.Round(w*multiplier) / multiplier
	}
	return out
}
