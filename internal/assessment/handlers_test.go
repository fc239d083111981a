package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chichastore/riskd/internal/history"
	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/rules"
)

func testRouter(t *testing.T, score float64, hist history.Provider, records risk.RecordStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := NewOrchestrator(fixedEngine(t, score), rules.NewEngine(rules.NewMemoryStore(), nil), records, nil)
	h := NewHandler(o, hist, records)

	r := gin.New()
	v1 := r.Group("/v1")
	h.RegisterRoutes(v1)
	admin := r.Group("/v1/admin")
	h.RegisterAdminRoutes(admin)
	return r
}

func postAssess(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/v1/assess", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssessTransaction_OK(t *testing.T) {
	r := testRouter(t, 10, nil, nil)

	w := postAssess(t, r, map[string]any{
		"id": "tx_1", "userId": "user_1", "amount": 99.5, "currency": "USD", "paymentMethod": "card",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Assessment struct {
			Score float64    `json:"score"`
			Level risk.Level `json:"level"`
		} `json:"riskAssessment"`
		Decision risk.Decision `json:"riskDecision"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, risk.LevelLow, resp.Assessment.Level)
	assert.Equal(t, risk.ActionApprove, resp.Decision.Action)
}

func TestAssessTransaction_Validation(t *testing.T) {
	r := testRouter(t, 10, nil, nil)

	// Malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/v1/assess", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing ids.
	w = postAssess(t, r, map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-positive amount.
	w = postAssess(t, r, map[string]any{"id": "tx_1", "userId": "user_1", "amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bad currency code.
	w = postAssess(t, r, map[string]any{"id": "tx_1", "userId": "user_1", "amount": 10, "currency": "usd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssessTransaction_FillsFrequencyFromHistory(t *testing.T) {
	hist := history.NewMemoryProvider()
	for i := 0; i < 4; i++ {
		require.NoError(t, hist.RecordTransaction(context.Background(), "user_1", time.Now()))
	}

	gin.SetMode(gin.TestMode)
	ruleEngine := rules.NewEngine(rules.NewMemoryStore(), nil)
	_, err := ruleEngine.CreateRule(context.Background(), rules.CreateInput{
		Name:       "velocity",
		Conditions: []rules.Condition{{Field: rules.FieldTxLastHour, Operator: rules.OpGreaterThan, Value: 3}},
		RiskScore:  20,
	}, "ops")
	require.NoError(t, err)

	o := NewOrchestrator(fixedEngine(t, 10), ruleEngine, nil, nil)
	h := NewHandler(o, hist, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/v1"))

	// Caller supplied no frequency; the rule can only match if the handler
	// filled it in from the history window.
	w := postAssess(t, r, map[string]any{"id": "tx_1", "userId": "user_1", "amount": 50})
	require.Equal(t, http.StatusOK, w.Code)

	var resp Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Assessment.MatchedRules, 1)
	assert.Equal(t, "velocity", resp.Assessment.MatchedRules[0].RuleName)
}

func TestAssessTransaction_ApprovalRecordedInHistory(t *testing.T) {
	hist := history.NewMemoryProvider()
	r := testRouter(t, 10, hist, nil) // LOW, approves

	w := postAssess(t, r, map[string]any{"id": "tx_1", "userId": "user_1", "amount": 50})
	require.Equal(t, http.StatusOK, w.Code)

	stats, err := hist.Stats(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LastHour)
}

func TestAssessTransaction_BlockedNotRecordedInHistory(t *testing.T) {
	hist := history.NewMemoryProvider()
	r := testRouter(t, 80, hist, nil) // CRITICAL, blocks

	w := postAssess(t, r, map[string]any{"id": "tx_1", "userId": "user_1", "amount": 50})
	require.Equal(t, http.StatusOK, w.Code)

	stats, err := hist.Stats(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.LastHour)
}

func TestListAssessments(t *testing.T) {
	records := risk.NewMemoryRecordStore()
	require.NoError(t, records.Record(context.Background(), &risk.Record{
		ID: "rec_1", TransactionID: "tx_1", UserID: "user_1",
		Assessment: risk.Assessment{Score: 55, Level: risk.LevelHigh},
		Decision:   risk.Decide(risk.LevelHigh),
	}))

	r := testRouter(t, 10, nil, records)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/assessments/transaction/tx_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int           `json:"count"`
		Records []risk.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "rec_1", resp.Records[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/assessments/user/user_1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListAssessments_Disabled(t *testing.T) {
	r := testRouter(t, 10, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/assessments/transaction/tx_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
