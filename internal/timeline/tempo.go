package timeline

import (
	"fmt"
	"math"
)

// Defaults for tempo planning. All of these are operating policy, not
// physical limits, and are overridable through PlanConfig.
const (
	DefaultMinFactor       = 0.5
	DefaultMaxFactor       = 2.0
	DefaultRatioEpsilon    = 0.02
	DefaultMaxTotalStretch = 4.0
)

// PlanConfig bounds how aggressively rendered speech may be re-timed.
type PlanConfig struct {
	// MinFactor and MaxFactor bound each elementary tempo factor. Factors
	// below one lengthen audio, above one shorten it.
	MinFactor float64
	MaxFactor float64
	// RatioEpsilon is the drift below which no adjustment is planned at all,
	// avoiding audible artifacts for imperceptible mismatches.
	RatioEpsilon float64
	// MaxTotalStretch caps the overall duration ratio in either direction.
	// Ratios beyond it are clamped and flagged rather than rejected.
	MaxTotalStretch float64
}

// DefaultPlanConfig returns the stock operating window.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		MinFactor:       DefaultMinFactor,
		MaxFactor:       DefaultMaxFactor,
		RatioEpsilon:    DefaultRatioEpsilon,
		MaxTotalStretch: DefaultMaxTotalStretch,
	}
}

func (c PlanConfig) normalized() PlanConfig {
	if c.MinFactor <= 0 {
		c.MinFactor = DefaultMinFactor
	}
	if c.MaxFactor <= 0 {
		c.MaxFactor = DefaultMaxFactor
	}
	if c.RatioEpsilon <= 0 {
		c.RatioEpsilon = DefaultRatioEpsilon
	}
	if c.MaxTotalStretch <= 0 {
		c.MaxTotalStretch = DefaultMaxTotalStretch
	}
	return c
}

// Plan is an ordered chain of elementary tempo factors. Applying the factors
// sequentially to rendered audio maps it onto its target duration; an empty
// plan means the rendered duration is already close enough.
type Plan struct {
	Factors []float64
	// Clamped is set when the required ratio exceeded MaxTotalStretch and the
	// chain only reaches the maximum achievable stretch. Callers surface this
	// as a non-fatal sync-quality warning.
	Clamped bool
}

// Empty reports whether no tempo adjustment is needed.
func (p Plan) Empty() bool {
	return len(p.Factors) == 0
}

// Product returns the composite tempo factor of the chain, 1.0 when empty.
func (p Plan) Product() float64 {
	product := 1.0
	for _, factor := range p.Factors {
		product *= factor
	}
	return product
}

// PlanTempo computes the tempo chain mapping renderedDuration onto
// targetDuration.
//
// The required ratio is target/rendered; the tempo factor to apply is its
// inverse, since factors above one shorten audio. A single factor is planned
// whenever it fits the operating bounds; otherwise the ratio is decomposed
// into a chain of bound-clamped factors whose product converges on the
// needed tempo. Ratios beyond MaxTotalStretch are clamped to the maximum
// achievable chain and flagged, never rejected.
func PlanTempo(renderedDuration, targetDuration float64, cfg PlanConfig) (Plan, error) {
	if renderedDuration <= 0 {
		return Plan{}, fmt.Errorf("tempo plan: rendered duration %.3f must be positive", renderedDuration)
	}
	if targetDuration <= 0 {
		return Plan{}, fmt.Errorf("tempo plan: target duration %.3f must be positive", targetDuration)
	}
	cfg = cfg.normalized()

	ratio := targetDuration / renderedDuration
	if math.Abs(ratio-1) <= cfg.RatioEpsilon {
		return Plan{}, nil
	}

	plan := Plan{}
	if ratio > cfg.MaxTotalStretch {
		ratio = cfg.MaxTotalStretch
		plan.Clamped = true
	} else if ratio < 1/cfg.MaxTotalStretch {
		ratio = 1 / cfg.MaxTotalStretch
		plan.Clamped = true
	}

	remaining := 1 / ratio
	for remaining < cfg.MinFactor || remaining > cfg.MaxFactor {
		if remaining < cfg.MinFactor {
			plan.Factors = append(plan.Factors, cfg.MinFactor)
			remaining /= cfg.MinFactor
		} else {
			plan.Factors = append(plan.Factors, cfg.MaxFactor)
			remaining /= cfg.MaxFactor
		}
	}
	if math.Abs(remaining-1) > 1e-9 || len(plan.Factors) == 0 {
		plan.Factors = append(plan.Factors, remaining)
	}
	return plan, nil
}
