// Package verify aggregates third-party verification checks into a single
// risk signal.
//
// Five independent checks run per transaction: sanctions-list screening,
// credit-score lookup, identity verification, fraud-detection scoring, and
// device intelligence. Checks are issued concurrently and always settle —
// a provider timeout or transport failure becomes a structured ERROR
// result and never aborts the other four.
package verify

import (
	"context"
	"time"

	"github.com/chichastore/riskd/internal/risk"
)

// Status is a single check's outcome.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusReview Status = "REVIEW"
	StatusFail   Status = "FAIL"
	StatusError  Status = "ERROR"
)

// Service names, in the order checks are reported.
const (
	ServiceSanctions = "sanctions_screening"
	ServiceCredit    = "credit_score"
	ServiceIdentity  = "identity_verification"
	ServiceFraud     = "fraud_detection"
	ServiceDevice    = "device_intelligence"
)

// Result is the outcome of one verification check.
type Result struct {
	Service string         `json:"service"`
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Summary is the aggregated outcome of all five checks.
type Summary struct {
	OverallRiskLevel risk.Level `json:"overallRiskLevel"`
	AverageWeight    float64    `json:"averageWeight"`
	Details          []Result   `json:"details"`
}

// Client issues the five provider checks. Implementations must catch their
// own network and transport errors; the aggregator additionally converts
// any returned error, panic, or timeout into an ERROR result, so a client
// failure can never propagate out of an assessment.
type Client interface {
	SanctionsCheck(ctx context.Context, userID, country string) (*Result, error)
	CreditScore(ctx context.Context, userID string) (*Result, error)
	VerifyIdentity(ctx context.Context, userID string) (*Result, error)
	FraudCheck(ctx context.Context, tx *risk.Transaction) (*Result, error)
	DeviceIntelligence(ctx context.Context, fingerprint, ipAddress string) (*Result, error)
}

// statusWeight maps a check outcome to its numeric risk weight. An unknown
// status counts as REVIEW.
func statusWeight(s Status) float64 {
	switch s {
	case StatusPass:
		return 1
	case StatusReview:
		return 5
	case StatusFail:
		return 10
	case StatusError:
		return 8
	default:
		return 5
	}
}

// levelForAverage classifies the mean check weight. Boundaries are
// inclusive on the upper edge: an all-ERROR run averages exactly 8 and is
// HIGH, not CRITICAL.
func levelForAverage(avg float64) risk.Level {
	switch {
	case avg <= 2:
		return risk.LevelLow
	case avg <= 5:
		return risk.LevelMedium
	case avg <= 8:
		return risk.LevelHigh
	default:
		return risk.LevelCritical
	}
}

// FactorScore maps the aggregated level onto the 0-100 factor scale used
// by the scoring engine. The values sit inside their target bucket so the
// external factor alone cannot drag the weighted score across a boundary
// the verification outcome did not itself cross.
func FactorScore(level risk.Level) float64 {
	switch level {
	case risk.LevelLow:
		return 10
	case risk.LevelMedium:
		return 40
	case risk.LevelHigh:
		return 70
	case risk.LevelCritical:
		return 95
	default:
		return 95
	}
}

// DefaultCheckTimeout bounds each provider call so total assessment
// latency stays bounded; expiry converts to an ERROR result.
const DefaultCheckTimeout = 3 * time.Second
