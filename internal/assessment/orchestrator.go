// Package assessment orchestrates the full risk evaluation of a
// transaction: base weighted scoring, custom rule escalation, the binding
// decision, and the audit record.
package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chichastore/riskd/internal/idgen"
	"github.com/chichastore/riskd/internal/metrics"
	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/rules"
	"github.com/chichastore/riskd/internal/traces"
)

// customRuleDampening scales the custom-rule contribution before it is
// added to the base score. Custom rules can escalate a transaction but
// cannot by themselves dominate the statistical base assessment.
const customRuleDampening = 0.5

// Result pairs the final assessment with its binding decision.
type Result struct {
	Assessment *risk.Assessment `json:"riskAssessment"`
	Decision   risk.Decision    `json:"riskDecision"`
}

// Orchestrator runs the scoring engine and the custom rule engine over a
// transaction and merges their outputs. Stateless; safe for concurrent use.
type Orchestrator struct {
	engine  *risk.Engine
	rules   *rules.Engine
	records risk.RecordStore // nil disables the audit trail
	logger  *slog.Logger
}

// NewOrchestrator wires the orchestrator. records may be nil.
func NewOrchestrator(engine *risk.Engine, ruleEngine *rules.Engine, records risk.RecordStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{engine: engine, rules: ruleEngine, records: records, logger: logger}
}

// Assess produces the final assessment and decision for a transaction.
//
// The base assessment and the custom-rule pass are independent and run
// concurrently; the adjusted score is base + customTotal×0.5, reclassified
// with the engine's bucket table. The only error path is caller
// abandonment — a decision is never rendered from a partial evaluation.
func (o *Orchestrator) Assess(ctx context.Context, tx *risk.Transaction) (*Result, error) {
	if tx == nil || tx.ID == "" {
		return nil, fmt.Errorf("assessment: transaction with id is required")
	}

	ctx, span := traces.StartSpan(ctx, "assessment.assess",
		traces.TransactionID(tx.ID),
		traces.UserID(tx.UserID),
	)
	defer span.End()

	start := time.Now()

	var (
		wg      sync.WaitGroup
		base    *risk.Assessment
		baseErr error
		outcome rules.Outcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		base, baseErr = o.engine.Assess(ctx, tx)
	}()
	go func() {
		defer wg.Done()
		outcome = o.rules.EvaluateTransaction(ctx, tx)
	}()
	wg.Wait()

	if baseErr != nil {
		return nil, baseErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assessment: abandoned: %w", err)
	}

	cfg := o.engine.Config()
	adjusted := risk.ClampScore(base.Score + outcome.TotalCustomRiskScore*customRuleDampening)

	final := *base
	final.Score = adjusted
	final.Level = cfg.LevelFor(adjusted)
	final.MatchedRules = outcome.MatchedRules

	decision := risk.Decide(final.Level)

	span.SetAttributes(
		traces.RiskScore(final.Score),
		traces.RiskLevel(string(final.Level)),
		traces.DecisionAction(string(decision.Action)),
		traces.MatchedRules(len(final.MatchedRules)),
	)
	metrics.AssessmentsTotal.WithLabelValues(string(final.Level)).Inc()
	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	metrics.AssessmentDuration.Observe(time.Since(start).Seconds())

	o.logger.Info("transaction assessed",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"base_score", base.Score,
		"custom_score", outcome.TotalCustomRiskScore,
		"final_score", final.Score,
		"level", string(final.Level),
		"action", string(decision.Action),
		"matched_rules", len(final.MatchedRules),
	)

	o.record(tx, &final, decision)

	return &Result{Assessment: &final, Decision: decision}, nil
}

// record writes the audit trail entry asynchronously and best-effort. The
// decision has already been rendered; a failed audit write must not undo it.
func (o *Orchestrator) record(tx *risk.Transaction, a *risk.Assessment, d risk.Decision) {
	if o.records == nil {
		return
	}
	rec := &risk.Record{
		ID:            idgen.WithPrefix("rec_"),
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Assessment:    *a,
		Decision:      d,
		CreatedAt:     time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.records.Record(ctx, rec); err != nil {
			o.logger.Warn("failed to persist assessment record",
				"record_id", rec.ID,
				"transaction_id", rec.TransactionID,
				"error", err,
			)
		}
	}()
}
