package summarizer

import (
	"context"

	"github.com/google/uuid"

	"sumd/internal/profile"
)

// Compare summarizes text with the baseline and then the optimized profile.
// Each run is measured on its own; the reductions are relative to the
// baseline.
func (s *Service) Compare(ctx context.Context, text string) (Comparison, error) {
	if err := s.Validate(text); err != nil {
		return Comparison{}, err
	}
	runID := uuid.NewString()
	base, err := s.Summarize(ctx, text, profile.Baseline)
	if err != nil {
		return Comparison{}, err
	}
	opt, err := s.Summarize(ctx, text, profile.Optimized)
	if err != nil {
		return Comparison{}, err
	}
	c := Comparison{
		RunID:               runID,
		Baseline:            base,
		Optimized:           opt,
		LatencyReductionPct: ReductionPct(base.LatencyMS, opt.LatencyMS),
	}
	if base.EnergyOK && opt.EnergyOK {
		c.EnergyReductionPct = ReductionPct(base.EnergyWh, opt.EnergyWh)
	}
	s.log.Info().Str("run_id", runID).
		Float64("latency_reduction_pct", c.LatencyReductionPct).
		Float64("energy_reduction_pct", c.EnergyReductionPct).
		Msg("comparison finished")
	return c, nil
}

// ReductionPct is (baseline-optimized)/baseline*100, or 0 when the baseline
// is not positive.
func ReductionPct(baseline, optimized float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (baseline - optimized) / baseline * 100
}
