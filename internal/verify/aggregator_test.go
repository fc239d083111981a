package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chichastore/riskd/internal/risk"
)

// scriptedClient lets a test script per-service behavior; unscripted
// services PASS.
type scriptedClient struct {
	scripts map[string]func(ctx context.Context) (*Result, error)
}

func (c *scriptedClient) run(ctx context.Context, service string) (*Result, error) {
	if fn, ok := c.scripts[service]; ok {
		return fn(ctx)
	}
	return &Result{Service: service, Status: StatusPass}, nil
}

func (c *scriptedClient) SanctionsCheck(ctx context.Context, _, _ string) (*Result, error) {
	return c.run(ctx, ServiceSanctions)
}
func (c *scriptedClient) CreditScore(ctx context.Context, _ string) (*Result, error) {
	return c.run(ctx, ServiceCredit)
}
func (c *scriptedClient) VerifyIdentity(ctx context.Context, _ string) (*Result, error) {
	return c.run(ctx, ServiceIdentity)
}
func (c *scriptedClient) FraudCheck(ctx context.Context, _ *risk.Transaction) (*Result, error) {
	return c.run(ctx, ServiceFraud)
}
func (c *scriptedClient) DeviceIntelligence(ctx context.Context, _, _ string) (*Result, error) {
	return c.run(ctx, ServiceDevice)
}

func verifyTx() *risk.Transaction {
	return &risk.Transaction{ID: "tx_1", UserID: "user_1", Country: "DE"}
}

func TestRunComprehensiveVerification_AllPass(t *testing.T) {
	agg := NewAggregator(&StaticClient{}, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	require.Len(t, s.Details, 5)
	assert.Equal(t, risk.LevelLow, s.OverallRiskLevel)
	assert.InDelta(t, 1.0, s.AverageWeight, 1e-9)
}

func TestRunComprehensiveVerification_ResultsInServiceOrder(t *testing.T) {
	agg := NewAggregator(&StaticClient{}, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	want := []string{ServiceSanctions, ServiceCredit, ServiceIdentity, ServiceFraud, ServiceDevice}
	require.Len(t, s.Details, len(want))
	for i, svc := range want {
		assert.Equal(t, svc, s.Details[i].Service)
	}
}

func TestRunComprehensiveVerification_MixedStatuses(t *testing.T) {
	agg := NewAggregator(&StaticClient{Statuses: map[string]Status{
		ServiceCredit:   StatusReview,
		ServiceIdentity: StatusFail,
		ServiceFraud:    StatusError,
	}}, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	// (1 + 5 + 10 + 8 + 1) / 5 = 5 -> MEDIUM on the inclusive boundary.
	assert.InDelta(t, 5.0, s.AverageWeight, 1e-9)
	assert.Equal(t, risk.LevelMedium, s.OverallRiskLevel)
}

func TestRunComprehensiveVerification_AllError(t *testing.T) {
	statuses := map[string]Status{}
	for _, svc := range []string{ServiceSanctions, ServiceCredit, ServiceIdentity, ServiceFraud, ServiceDevice} {
		statuses[svc] = StatusError
	}
	agg := NewAggregator(&StaticClient{Statuses: statuses}, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	assert.InDelta(t, 8.0, s.AverageWeight, 1e-9)
	assert.Equal(t, risk.LevelHigh, s.OverallRiskLevel) // not CRITICAL
}

func TestRunComprehensiveVerification_ClientErrorSettlesAsError(t *testing.T) {
	client := &scriptedClient{scripts: map[string]func(ctx context.Context) (*Result, error){
		ServiceCredit: func(context.Context) (*Result, error) {
			return nil, errors.New("bureau unreachable")
		},
	}}
	agg := NewAggregator(client, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	require.Len(t, s.Details, 5)

	for _, r := range s.Details {
		if r.Service == ServiceCredit {
			assert.Equal(t, StatusError, r.Status)
			assert.Contains(t, r.Details["error"], "bureau unreachable")
		} else {
			assert.Equal(t, StatusPass, r.Status)
		}
	}
}

func TestRunComprehensiveVerification_PanicSettlesAsError(t *testing.T) {
	client := &scriptedClient{scripts: map[string]func(ctx context.Context) (*Result, error){
		ServiceFraud: func(context.Context) (*Result, error) {
			panic("model blew up")
		},
	}}
	agg := NewAggregator(client, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	require.Len(t, s.Details, 5)
	assert.Equal(t, StatusError, s.Details[3].Status)
	assert.Equal(t, ServiceFraud, s.Details[3].Service)
}

func TestRunComprehensiveVerification_TimeoutSettlesAsError(t *testing.T) {
	client := &scriptedClient{scripts: map[string]func(ctx context.Context) (*Result, error){
		ServiceDevice: func(ctx context.Context) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	agg := NewAggregator(client, 20*time.Millisecond, nil)

	start := time.Now()
	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, s.Details, 5)
	assert.Equal(t, StatusError, s.Details[4].Status)
}

func TestRunComprehensiveVerification_NilResultSettlesAsError(t *testing.T) {
	client := &scriptedClient{scripts: map[string]func(ctx context.Context) (*Result, error){
		ServiceIdentity: func(context.Context) (*Result, error) {
			return nil, nil
		},
	}}
	agg := NewAggregator(client, time.Second, nil)

	s := agg.RunComprehensiveVerification(context.Background(), verifyTx())
	assert.Equal(t, StatusError, s.Details[2].Status)
}

func TestFactorAdapter(t *testing.T) {
	agg := NewAggregator(&StaticClient{}, time.Second, nil)
	adapter := NewFactorAdapter(agg)

	score, detail := adapter.ScoreExternalVerification(context.Background(), verifyTx())
	assert.Equal(t, 10.0, score)
	assert.Equal(t, string(risk.LevelLow), detail["overallRiskLevel"])
	assert.Len(t, detail["results"].([]Result), 5)
}
