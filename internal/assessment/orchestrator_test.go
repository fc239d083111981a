package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/rules"
)

// fixedScorer feeds a constant score into every factor category.
type fixedScorer struct{ score float64 }

func (s fixedScorer) ScoreUserHistory(context.Context, *risk.Transaction) (float64, map[string]any) {
	return s.score, nil
}
func (s fixedScorer) ScoreDeviceRisk(context.Context, *risk.Transaction) (float64, map[string]any) {
	return s.score, nil
}
func (s fixedScorer) ScoreGeographicRisk(context.Context, *risk.Transaction) (float64, map[string]any) {
	return s.score, nil
}
func (s fixedScorer) ScoreTransactionPattern(context.Context, *risk.Transaction) (float64, map[string]any) {
	return s.score, nil
}
func (s fixedScorer) ScoreExternalVerification(context.Context, *risk.Transaction) (float64, map[string]any) {
	return s.score, nil
}

func fixedEngine(t *testing.T, score float64) *risk.Engine {
	t.Helper()
	s := fixedScorer{score: score}
	e, err := risk.NewEngine(risk.DefaultScoringConfig(), risk.NewCollector(s, s, s, s, s, nil), nil)
	require.NoError(t, err)
	return e
}

func assessTx() *risk.Transaction {
	return &risk.Transaction{ID: "tx_1", UserID: "user_1", Amount: 250, Country: "NG"}
}

func TestAssess_NoRuleMatches(t *testing.T) {
	o := NewOrchestrator(fixedEngine(t, 10), rules.NewEngine(rules.NewMemoryStore(), nil), nil, nil)

	res, err := o.Assess(context.Background(), assessTx())
	require.NoError(t, err)

	assert.InDelta(t, 10.0, res.Assessment.Score, 1e-9)
	assert.Equal(t, risk.LevelLow, res.Assessment.Level)
	assert.Empty(t, res.Assessment.MatchedRules)
	assert.Equal(t, risk.ActionApprove, res.Decision.Action)
	assert.False(t, res.Decision.RequiresReview)
}

func TestAssess_CustomRulesEscalate(t *testing.T) {
	ruleEngine := rules.NewEngine(rules.NewMemoryStore(), nil)
	rule, err := ruleEngine.CreateRule(context.Background(), rules.CreateInput{
		Name:       "risky country",
		Conditions: []rules.Condition{{Field: rules.FieldCountry, Operator: rules.OpEquals, Value: "NG"}},
		RiskScore:  30,
	}, "ops")
	require.NoError(t, err)

	// Base 40 (MEDIUM) + 30 x 0.5 = 55 crosses into HIGH.
	o := NewOrchestrator(fixedEngine(t, 40), ruleEngine, nil, nil)

	res, err := o.Assess(context.Background(), assessTx())
	require.NoError(t, err)

	assert.InDelta(t, 55.0, res.Assessment.Score, 1e-9)
	assert.Equal(t, risk.LevelHigh, res.Assessment.Level)
	require.Len(t, res.Assessment.MatchedRules, 1)
	assert.Equal(t, rule.ID, res.Assessment.MatchedRules[0].RuleID)
	assert.Equal(t, 30.0, res.Assessment.MatchedRules[0].RiskScore)

	assert.Equal(t, risk.ActionBlock, res.Decision.Action)
	assert.True(t, res.Decision.NotifyCompliance)
	assert.False(t, res.Decision.ReportToAuthorities)
}

func TestAssess_AdjustedScoreClamped(t *testing.T) {
	ruleEngine := rules.NewEngine(rules.NewMemoryStore(), nil)
	for i := 0; i < 3; i++ {
		_, err := ruleEngine.CreateRule(context.Background(), rules.CreateInput{
			Name:       "stack",
			Conditions: []rules.Condition{{Field: rules.FieldAmount, Operator: rules.OpGreaterThan, Value: 0.0}},
			RiskScore:  100,
		}, "ops")
		require.NoError(t, err)
	}

	o := NewOrchestrator(fixedEngine(t, 90), ruleEngine, nil, nil)

	res, err := o.Assess(context.Background(), assessTx())
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Assessment.Score)
	assert.Equal(t, risk.LevelCritical, res.Assessment.Level)
	assert.True(t, res.Decision.ReportToAuthorities)
}

func TestAssess_InvalidTransaction(t *testing.T) {
	o := NewOrchestrator(fixedEngine(t, 10), rules.NewEngine(rules.NewMemoryStore(), nil), nil, nil)

	_, err := o.Assess(context.Background(), nil)
	assert.Error(t, err)

	_, err = o.Assess(context.Background(), &risk.Transaction{UserID: "user_1"})
	assert.Error(t, err)
}

func TestAssess_CancelledContext(t *testing.T) {
	o := NewOrchestrator(fixedEngine(t, 10), rules.NewEngine(rules.NewMemoryStore(), nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Assess(ctx, assessTx())
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestAssess_WritesAuditRecord(t *testing.T) {
	records := risk.NewMemoryRecordStore()
	o := NewOrchestrator(fixedEngine(t, 60), rules.NewEngine(rules.NewMemoryStore(), nil), records, nil)

	res, err := o.Assess(context.Background(), assessTx())
	require.NoError(t, err)

	// The audit write is asynchronous.
	require.Eventually(t, func() bool {
		recs, _ := records.ListByTransaction(context.Background(), "tx_1")
		return len(recs) == 1
	}, time.Second, 10*time.Millisecond)

	recs, err := records.ListByTransaction(context.Background(), "tx_1")
	require.NoError(t, err)
	assert.Equal(t, res.Assessment.Score, recs[0].Assessment.Score)
	assert.Equal(t, res.Decision, recs[0].Decision)
	assert.Equal(t, "user_1", recs[0].UserID)
}
