// Package rules implements admin-defined custom risk rules.
//
// Compliance operators create priority-ordered rules, each a list of
// field/operator/value conditions plus a risk score contribution. Active
// rules are evaluated against every transaction; matches raise the final
// risk score. Rules are soft-deleted (deactivated) only, preserving the
// audit trail.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chichastore/riskd/internal/risk"
)

// Errors
var (
	ErrRuleNotFound = errors.New("rules: rule not found")
	ErrInvalidRule  = errors.New("rules: invalid rule")
)

// Operator compares a transaction field against a rule value.
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
	OpContains    Operator = "CONTAINS"
	OpNotContains Operator = "NOT_CONTAINS"
)

func validOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpNotContains:
		return true
	}
	return false
}

// Condition is one field comparison. A rule matches only when every
// condition matches.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Rule is an admin-defined custom risk rule.
type Rule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions"`
	RiskScore   float64     `json:"riskScore"` // contribution when matched, [0,100]
	Priority    int         `json:"priority"`
	Active      bool        `json:"isActive"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// EvalResult is the transient outcome of applying one rule.
type EvalResult struct {
	Matches   bool    `json:"matches"`
	RiskScore float64 `json:"riskScore"`
}

// Validate checks the rule definition. Invalid rules are rejected at
// create/update time so evaluation never sees a malformed one.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidRule)
	}
	for i, c := range r.Conditions {
		if !validField(c.Field) {
			return fmt.Errorf("%w: condition %d references unknown field %q", ErrInvalidRule, i, c.Field)
		}
		if !validOperator(c.Operator) {
			return fmt.Errorf("%w: condition %d has unknown operator %q", ErrInvalidRule, i, c.Operator)
		}
		if c.Value == nil {
			return fmt.Errorf("%w: condition %d has no value", ErrInvalidRule, i)
		}
	}
	if r.RiskScore < 0 || r.RiskScore > 100 {
		return fmt.Errorf("%w: risk score contribution must be in [0,100], got %v", ErrInvalidRule, r.RiskScore)
	}
	return nil
}

// Evaluate applies the rule to a transaction. Inactive rules never match.
func (r *Rule) Evaluate(tx *risk.Transaction) EvalResult {
	if !r.Active {
		return EvalResult{}
	}
	for _, c := range r.Conditions {
		if !c.matches(tx) {
			return EvalResult{}
		}
	}
	return EvalResult{Matches: true, RiskScore: r.RiskScore}
}

// Filter narrows rule listings.
type Filter struct {
	Active    *bool
	CreatedBy string
}

// Store persists custom risk rules. List and ListActive return rules in
// evaluation order: priority descending, ties broken by creation time
// ascending (earliest first).
type Store interface {
	Create(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, id string) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	List(ctx context.Context, f Filter) ([]*Rule, error)
	ListActive(ctx context.Context) ([]*Rule, error)
}
