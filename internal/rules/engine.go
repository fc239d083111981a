package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chichastore/riskd/internal/idgen"
	"github.com/chichastore/riskd/internal/metrics"
	"github.com/chichastore/riskd/internal/risk"
)

// Engine manages the custom rule catalog and evaluates it per transaction.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates a rule engine over the given store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// CreateInput is the operator-supplied rule definition.
type CreateInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Conditions  []Condition `json:"conditions"`
	RiskScore   float64     `json:"riskScore"`
	Priority    int         `json:"priority"`
}

// CreateRule validates and persists a new rule, active by default.
func (e *Engine) CreateRule(ctx context.Context, in CreateInput, createdBy string) (*Rule, error) {
	now := time.Now().UTC()
	rule := &Rule{
		ID:          idgen.WithPrefix("rule_"),
		Name:        in.Name,
		Description: in.Description,
		Conditions:  in.Conditions,
		RiskScore:   in.RiskScore,
		Priority:    in.Priority,
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	e.logger.Info("custom rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"priority", rule.Priority,
		"created_by", createdBy,
	)
	return rule, nil
}

// Patch holds partial updates for a rule. Nil fields are left unchanged.
type Patch struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Conditions  *[]Condition `json:"conditions,omitempty"`
	RiskScore   *float64     `json:"riskScore,omitempty"`
	Priority    *int         `json:"priority,omitempty"`
	Active      *bool        `json:"isActive,omitempty"`
}

// UpdateRule applies a patch to an existing rule. Returns ErrRuleNotFound
// for an unknown id and ErrInvalidRule if the patched rule is malformed.
func (e *Engine) UpdateRule(ctx context.Context, id string, patch Patch) (*Rule, error) {
	rule, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		rule.Name = *patch.Name
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.Conditions != nil {
		rule.Conditions = *patch.Conditions
	}
	if patch.RiskScore != nil {
		rule.RiskScore = *patch.RiskScore
	}
	if patch.Priority != nil {
		rule.Priority = *patch.Priority
	}
	if patch.Active != nil {
		rule.Active = *patch.Active
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("update rule %s: %w", id, err)
	}
	return rule, nil
}

// DisableRule deactivates a rule. Idempotent: disabling an already
// disabled rule succeeds. Rules are never hard-deleted.
func (e *Engine) DisableRule(ctx context.Context, id string) (*Rule, error) {
	rule, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return rule, nil
	}

	rule.Active = false
	rule.UpdatedAt = time.Now().UTC()
	if err := e.store.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("disable rule %s: %w", id, err)
	}
	e.logger.Info("custom rule disabled", "rule_id", id)
	return rule, nil
}

// GetRule returns a single rule by id.
func (e *Engine) GetRule(ctx context.Context, id string) (*Rule, error) {
	return e.store.Get(ctx, id)
}

// ListRules returns rules matching the filter in evaluation order.
func (e *Engine) ListRules(ctx context.Context, f Filter) ([]*Rule, error) {
	return e.store.List(ctx, f)
}

// Outcome is the aggregate result of evaluating all active rules.
type Outcome struct {
	TotalCustomRiskScore float64            `json:"totalCustomRiskScore"`
	MatchedRules         []risk.MatchedRule `json:"matchedRules"`
}

// EvaluateTransaction evaluates all active rules against a transaction in
// priority order and accumulates the contributions of matching rules.
//
// This method never fails the assessment: if the rule catalog cannot be
// loaded or a rule panics mid-evaluation, the whole pass degrades to a
// zero outcome and the failure is logged. A risk assessment must always
// produce an answer even when the rule subsystem is unhealthy.
func (e *Engine) EvaluateTransaction(ctx context.Context, tx *risk.Transaction) (out Outcome) {
	out = Outcome{MatchedRules: []risk.MatchedRule{}}

	currentRule := ""
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("custom rule evaluation panicked, degrading to zero contribution",
				"rule_id", currentRule,
				"transaction_id", tx.ID,
				"panic", r,
			)
			metrics.RuleEvaluationFailuresTotal.Inc()
			out = Outcome{TotalCustomRiskScore: 0, MatchedRules: []risk.MatchedRule{}}
		}
	}()

	active, err := e.store.ListActive(ctx)
	if err != nil {
		e.logger.Error("failed to load active rules, degrading to zero contribution",
			"transaction_id", tx.ID,
			"error", err,
		)
		metrics.RuleEvaluationFailuresTotal.Inc()
		return Outcome{TotalCustomRiskScore: 0, MatchedRules: []risk.MatchedRule{}}
	}

	for _, rule := range active {
		currentRule = rule.ID
		res := rule.Evaluate(tx)
		if !res.Matches {
			continue
		}
		out.TotalCustomRiskScore += res.RiskScore
		out.MatchedRules = append(out.MatchedRules, risk.MatchedRule{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			RiskScore: res.RiskScore,
		})
		metrics.CustomRuleMatchesTotal.WithLabelValues(rule.Name).Inc()
	}
	return out
}
