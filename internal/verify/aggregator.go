package verify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chichastore/riskd/internal/metrics"
	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/traces"
)

// Aggregator fans the five checks out concurrently and folds the settled
// results into one summary.
type Aggregator struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewAggregator creates an aggregator over the given provider client.
// A non-positive timeout falls back to DefaultCheckTimeout.
func NewAggregator(client Client, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{client: client, timeout: timeout, logger: logger}
}

// RunComprehensiveVerification issues all five checks concurrently and
// waits for every one of them to settle. It never returns an error: each
// individual failure is already an ERROR result, and the aggregate over
// five ERROR results is still a valid summary.
func (a *Aggregator) RunComprehensiveVerification(ctx context.Context, tx *risk.Transaction) *Summary {
	ctx, span := traces.StartSpan(ctx, "verify.comprehensive", traces.TransactionID(tx.ID))
	defer span.End()

	type check struct {
		service string
		run     func(context.Context) (*Result, error)
	}
	checks := []check{
		{ServiceSanctions, func(ctx context.Context) (*Result, error) {
			return a.client.SanctionsCheck(ctx, tx.UserID, tx.Country)
		}},
		{ServiceCredit, func(ctx context.Context) (*Result, error) {
			return a.client.CreditScore(ctx, tx.UserID)
		}},
		{ServiceIdentity, func(ctx context.Context) (*Result, error) {
			return a.client.VerifyIdentity(ctx, tx.UserID)
		}},
		{ServiceFraud, func(ctx context.Context) (*Result, error) {
			return a.client.FraudCheck(ctx, tx)
		}},
		{ServiceDevice, func(ctx context.Context) (*Result, error) {
			return a.client.DeviceIntelligence(ctx, tx.DeviceFingerprint, tx.IPAddress)
		}},
	}

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			results[i] = a.runOne(ctx, tx.ID, c.service, c.run)
		}(i, c)
	}
	wg.Wait()

	var total float64
	for _, r := range results {
		total += statusWeight(r.Status)
		metrics.VerificationChecksTotal.WithLabelValues(r.Service, string(r.Status)).Inc()
	}
	avg := total / float64(len(results))

	return &Summary{
		OverallRiskLevel: levelForAverage(avg),
		AverageWeight:    avg,
		Details:          results,
	}
}

// runOne executes a single check with its own timeout, converting every
// failure mode (error return, panic, timeout) into an ERROR result.
func (a *Aggregator) runOne(ctx context.Context, txID, service string, run func(context.Context) (*Result, error)) (out Result) {
	start := time.Now()
	defer func() {
		metrics.VerificationDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			a.logger.Error("verification check panicked",
				"service", service,
				"transaction_id", txID,
				"panic", r,
			)
			out = errorResult(service, "check panicked")
		}
	}()

	checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := run(checkCtx)
	if err != nil {
		a.logger.Warn("verification check failed",
			"service", service,
			"transaction_id", txID,
			"error", err,
		)
		return errorResult(service, err.Error())
	}
	if res == nil {
		return errorResult(service, "provider returned no result")
	}
	res.Service = service
	return *res
}

func errorResult(service, reason string) Result {
	return Result{
		Service: service,
		Status:  StatusError,
		Details: map[string]any{"error": reason},
	}
}

// FactorAdapter exposes the aggregator as the scoring engine's external
// verification strategy.
type FactorAdapter struct {
	agg *Aggregator
}

// NewFactorAdapter wraps an aggregator for factor collection.
func NewFactorAdapter(agg *Aggregator) *FactorAdapter {
	return &FactorAdapter{agg: agg}
}

// ScoreExternalVerification runs the comprehensive verification and maps
// its categorical outcome onto the 0-100 factor scale. The per-check
// results ride along in the factor detail for the audit trail.
func (f *FactorAdapter) ScoreExternalVerification(ctx context.Context, tx *risk.Transaction) (float64, map[string]any) {
	summary := f.agg.RunComprehensiveVerification(ctx, tx)
	return FactorScore(summary.OverallRiskLevel), map[string]any{
		"overallRiskLevel": string(summary.OverallRiskLevel),
		"averageWeight":    summary.AverageWeight,
		"results":          summary.Details,
	}
}
