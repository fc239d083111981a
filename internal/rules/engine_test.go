package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chichastore/riskd/internal/risk"
)

func TestCreateRule(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), nil)

	rule, err := e.CreateRule(ctx, CreateInput{
		Name:       "velocity spike",
		Conditions: []Condition{{FieldTxLastHour, OpGreaterThan, 5}},
		RiskScore:  25,
		Priority:   10,
	}, "ops@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.Active) // active by default
	assert.Equal(t, "ops@example.com", rule.CreatedBy)

	got, err := e.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "velocity spike", got.Name)
}

func TestCreateRule_Invalid(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), nil)

	_, err := e.CreateRule(ctx, CreateInput{Name: "no conditions", RiskScore: 10}, "")
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = e.CreateRule(ctx, CreateInput{
		Name:       "bad score",
		Conditions: []Condition{{FieldAmount, OpGreaterThan, 10.0}},
		RiskScore:  500,
	}, "")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestUpdateRule(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), nil)

	rule, err := e.CreateRule(ctx, CreateInput{
		Name:       "orig",
		Conditions: []Condition{{FieldAmount, OpGreaterThan, 10.0}},
		RiskScore:  20,
	}, "")
	require.NoError(t, err)

	newScore := 35.0
	newName := "renamed"
	updated, err := e.UpdateRule(ctx, rule.ID, Patch{Name: &newName, RiskScore: &newScore})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 35.0, updated.RiskScore)
	assert.Equal(t, rule.Conditions, updated.Conditions) // untouched fields preserved

	// Patch that breaks validation is rejected without persisting.
	badScore := 200.0
	_, err = e.UpdateRule(ctx, rule.ID, Patch{RiskScore: &badScore})
	assert.ErrorIs(t, err, ErrInvalidRule)

	got, _ := e.GetRule(ctx, rule.ID)
	assert.Equal(t, 35.0, got.RiskScore)
}

func TestUpdateRule_NotFound(t *testing.T) {
	e := NewEngine(NewMemoryStore(), nil)
	name := "x"
	_, err := e.UpdateRule(context.Background(), "rule_missing", Patch{Name: &name})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestDisableRule(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), nil)

	rule, err := e.CreateRule(ctx, CreateInput{
		Name:       "r",
		Conditions: []Condition{{FieldAmount, OpGreaterThan, 10.0}},
		RiskScore:  20,
	}, "")
	require.NoError(t, err)

	disabled, err := e.DisableRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Active)

	// Idempotent.
	disabled, err = e.DisableRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Active)

	// Soft delete: still retrievable.
	got, err := e.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = e.DisableRule(ctx, "rule_missing")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestEvaluateTransaction_AccumulatesMatches(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore(), nil)

	mk := func(name string, priority int, score float64, conds ...Condition) *Rule {
		r, err := e.CreateRule(ctx, CreateInput{
			Name: name, Conditions: conds, RiskScore: score, Priority: priority,
		}, "")
		require.NoError(t, err)
		return r
	}

	big := mk("big amount", 10, 30, Condition{FieldAmount, OpGreaterThan, 100.0})
	ng := mk("risky country", 5, 20, Condition{FieldCountry, OpEquals, "NG"})
	mk("crypto only", 20, 40, Condition{FieldPaymentMethod, OpEquals, "crypto"})

	out := e.EvaluateTransaction(ctx, &risk.Transaction{
		ID: "tx_1", Amount: 250, Country: "NG", PaymentMethod: "card",
	})

	assert.Equal(t, 50.0, out.TotalCustomRiskScore)
	require.Len(t, out.MatchedRules, 2)
	// Matches are reported in evaluation order: priority descending.
	assert.Equal(t, big.ID, out.MatchedRules[0].RuleID)
	assert.Equal(t, ng.ID, out.MatchedRules[1].RuleID)
}

func TestEvaluateTransaction_NoMatches(t *testing.T) {
	e := NewEngine(NewMemoryStore(), nil)
	out := e.EvaluateTransaction(context.Background(), &risk.Transaction{ID: "tx_1"})
	assert.Equal(t, 0.0, out.TotalCustomRiskScore)
	assert.NotNil(t, out.MatchedRules)
	assert.Empty(t, out.MatchedRules)
}

// failingStore simulates a broken rule catalog backend.
type failingStore struct{ MemoryStore }

func (f *failingStore) ListActive(ctx context.Context) ([]*Rule, error) {
	return nil, errors.New("connection refused")
}

func TestEvaluateTransaction_StoreFailureDegradesToZero(t *testing.T) {
	e := NewEngine(&failingStore{}, nil)
	out := e.EvaluateTransaction(context.Background(), &risk.Transaction{ID: "tx_1"})
	assert.Equal(t, 0.0, out.TotalCustomRiskScore)
	assert.Empty(t, out.MatchedRules)
}

// corruptStore returns a nil rule, which panics the evaluation loop.
type corruptStore struct{ MemoryStore }

func (c *corruptStore) ListActive(ctx context.Context) ([]*Rule, error) {
	return []*Rule{nil}, nil
}

func TestEvaluateTransaction_PanicDegradesToZero(t *testing.T) {
	e := NewEngine(&corruptStore{}, nil)
	out := e.EvaluateTransaction(context.Background(), &risk.Transaction{ID: "tx_1"})
	assert.Equal(t, 0.0, out.TotalCustomRiskScore)
	assert.Empty(t, out.MatchedRules)
}
