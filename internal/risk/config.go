package risk

import (
	"fmt"
	"math"
)

// weightTolerance is the allowed deviation when checking that factor
// weights sum to 1.0.
const weightTolerance = 1e-9

// Weights holds the contribution of each factor category to the base score.
type Weights struct {
	UserHistory          float64 `json:"userHistory"`
	DeviceRisk           float64 `json:"deviceRisk"`
	GeographicRisk       float64 `json:"geographicRisk"`
	TransactionPattern   float64 `json:"transactionPattern"`
	ExternalVerification float64 `json:"externalVerification"`
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.UserHistory + w.DeviceRisk + w.GeographicRisk + w.TransactionPattern + w.ExternalVerification
}

// For returns the weight for a category, or 0 for an unknown category.
func (w Weights) For(c FactorCategory) float64 {
	switch c {
	case FactorUserHistory:
		return w.UserHistory
	case FactorDeviceRisk:
		return w.DeviceRisk
	case FactorGeographicRisk:
		return w.GeographicRisk
	case FactorTransactionPattern:
		return w.TransactionPattern
	case FactorExternalVerification:
		return w.ExternalVerification
	default:
		return 0
	}
}

// Thresholds holds the lower bound of each non-LOW bucket. The four buckets
// partition [0,100]: [0,Medium) LOW, [Medium,High) MEDIUM, [High,Critical)
// HIGH, [Critical,100] CRITICAL.
type Thresholds struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// ScoringConfig is the validated weight/threshold table for the engine.
type ScoringConfig struct {
	Weights    Weights    `json:"weights"`
	Thresholds Thresholds `json:"thresholds"`
}

// DefaultScoringConfig returns the production weight and bucket tables.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			UserHistory:          0.25,
			DeviceRisk:           0.20,
			GeographicRisk:       0.15,
			TransactionPattern:   0.20,
			ExternalVerification: 0.20,
		},
		Thresholds: Thresholds{
			Medium:   25,
			High:     50,
			Critical: 75,
		},
	}
}

// Validate checks the weight and threshold invariants. Called once at
// engine construction so scoring never operates on a broken table.
func (c ScoringConfig) Validate() error {
	for _, cat := range FactorCategories {
		w := c.Weights.For(cat)
		if w < 0 || w > 1 {
			return fmt.Errorf("risk: weight for %s out of range: %v", cat, w)
		}
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("risk: factor weights must sum to 1.0, got %v", sum)
	}
	t := c.Thresholds
	if !(0 < t.Medium && t.Medium < t.High && t.High < t.Critical && t.Critical <= 100) {
		return fmt.Errorf("risk: thresholds must satisfy 0 < medium < high < critical <= 100, got %+v", t)
	}
	return nil
}

// LevelFor classifies a score into its risk level. Buckets are half-open
// on the left edge, so a score exactly at a threshold takes the higher level.
func (c ScoringConfig) LevelFor(score float64) Level {
	switch {
	case score < c.Thresholds.Medium:
		return LevelLow
	case score < c.Thresholds.High:
		return LevelMedium
	case score < c.Thresholds.Critical:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
