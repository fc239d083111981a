package risk

import (
	"context"
	"math"
	"strings"
)

// Scorer strategies. Each takes the category's inputs from the transaction
// and returns a score in [0,100] plus a detail map for the audit trail.
// The formulas below are defaults; hosts may inject their own strategies.

// UserHistoryScorer scores the user's account history.
type UserHistoryScorer interface {
	ScoreUserHistory(ctx context.Context, tx *Transaction) (float64, map[string]any)
}

// DeviceRiskScorer scores the device the transaction originates from.
type DeviceRiskScorer interface {
	ScoreDeviceRisk(ctx context.Context, tx *Transaction) (float64, map[string]any)
}

// GeographicRiskScorer scores the transaction's origin country.
type GeographicRiskScorer interface {
	ScoreGeographicRisk(ctx context.Context, tx *Transaction) (float64, map[string]any)
}

// TransactionPatternScorer scores amount/frequency/method anomalies.
type TransactionPatternScorer interface {
	ScoreTransactionPattern(ctx context.Context, tx *Transaction) (float64, map[string]any)
}

// ExternalVerificationScorer folds third-party verification outcomes into a
// factor score. Implemented by the verify package's aggregator adapter.
type ExternalVerificationScorer interface {
	ScoreExternalVerification(ctx context.Context, tx *Transaction) (float64, map[string]any)
}

// ---------------------------------------------------------------------------
// HeuristicUserHistoryScorer
// ---------------------------------------------------------------------------

// HeuristicUserHistoryScorer scores on dispute ratio and account age.
// A 10%+ dispute ratio maxes the dispute component; accounts younger than
// a week carry most of the age component. A user with no transaction
// history at all gets a flat cold-start score.
type HeuristicUserHistoryScorer struct{}

const coldStartUserScore = 35

func (HeuristicUserHistoryScorer) ScoreUserHistory(_ context.Context, tx *Transaction) (float64, map[string]any) {
	u := tx.User
	detail := map[string]any{
		"accountAgeDays":    u.AccountAgeDays,
		"totalTransactions": u.TotalTransactions,
	}

	if u.TotalTransactions == 0 {
		detail["coldStart"] = true
		return coldStartUserScore, detail
	}

	disputeRatio := float64(u.DisputeCount) / float64(u.TotalTransactions)
	detail["disputeRatio"] = disputeRatio

	// Disputes dominate: 60 points, saturating at a 10% ratio.
	disputes := math.Min(disputeRatio/0.10, 1.0) * 60

	// Account age: 40 points for a brand-new account, decaying to 0 at 90 days.
	age := 0.0
	if u.AccountAgeDays < 90 {
		age = (1 - u.AccountAgeDays/90) * 40
	}

	return ClampScore(disputes + age), detail
}

// ---------------------------------------------------------------------------
// HeuristicDeviceRiskScorer
// ---------------------------------------------------------------------------

// HeuristicDeviceRiskScorer scores on fingerprint presence and recognition.
// Missing fingerprints score worse than unrecognized ones: a client that
// strips fingerprinting is a stronger fraud signal than a new laptop.
type HeuristicDeviceRiskScorer struct{}

func (HeuristicDeviceRiskScorer) ScoreDeviceRisk(_ context.Context, tx *Transaction) (float64, map[string]any) {
	detail := map[string]any{"knownDevice": tx.KnownDevice}
	switch {
	case tx.DeviceFingerprint == "":
		detail["fingerprintMissing"] = true
		return 70, detail
	case tx.KnownDevice:
		return 10, detail
	default:
		return 45, detail
	}
}

// ---------------------------------------------------------------------------
// GeographicRiskScorer
// ---------------------------------------------------------------------------

// ListGeographicScorer scores against a configured set of high-risk
// countries (ISO 3166-1 alpha-2). An absent country code scores midway:
// the caller could not geolocate, which is itself mildly suspicious.
type ListGeographicScorer struct {
	highRisk map[string]bool
}

// NewListGeographicScorer builds a scorer from country codes.
func NewListGeographicScorer(countries []string) *ListGeographicScorer {
	m := make(map[string]bool, len(countries))
	for _, c := range countries {
		m[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &ListGeographicScorer{highRisk: m}
}

func (s *ListGeographicScorer) ScoreGeographicRisk(_ context.Context, tx *Transaction) (float64, map[string]any) {
	country := strings.ToUpper(strings.TrimSpace(tx.Country))
	detail := map[string]any{"country": country}
	switch {
	case country == "":
		detail["countryUnknown"] = true
		return 40, detail
	case s.highRisk[country]:
		detail["highRiskRegion"] = true
		return 85, detail
	default:
		return 15, detail
	}
}

// ---------------------------------------------------------------------------
// HeuristicTransactionPatternScorer
// ---------------------------------------------------------------------------

// methodRisk maps payment methods to a base risk component.
var methodRisk = map[string]float64{
	"card":          10,
	"bank_transfer": 5,
	"wallet":        15,
	"prepaid_card":  30,
	"crypto":        40,
}

// HeuristicTransactionPatternScorer scores on amount deviation from the
// user's average, short-window frequency, and payment method.
type HeuristicTransactionPatternScorer struct{}

func (HeuristicTransactionPatternScorer) ScoreTransactionPattern(_ context.Context, tx *Transaction) (float64, map[string]any) {
	detail := map[string]any{"paymentMethod": tx.PaymentMethod}

	// Amount anomaly: 40 points, log-scaled. 10x the user's average = full
	// component. No average on record falls back to an absolute threshold.
	amount := 0.0
	switch {
	case tx.User.AverageAmount > 0 && tx.Amount > tx.User.AverageAmount:
		ratio := tx.Amount / tx.User.AverageAmount
		amount = math.Min(math.Log10(ratio), 1.0) * 40
		detail["amountRatio"] = ratio
	case tx.User.AverageAmount == 0 && tx.Amount >= 1000:
		amount = 25
		detail["largeFirstAmount"] = true
	}

	// Frequency anomaly: 35 points, saturating at 10 transactions in the
	// last hour.
	freq := math.Min(float64(tx.Frequency.LastHour)/10, 1.0) * 35
	detail["txLastHour"] = tx.Frequency.LastHour

	// Payment method component: 25 points max, scaled from the method table.
	method, ok := methodRisk[strings.ToLower(tx.PaymentMethod)]
	if !ok {
		method = 20 // unrecognized method
	}
	method = method / 40 * 25

	return ClampScore(amount + freq + method), detail
}
