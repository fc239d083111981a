package assessment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chichastore/riskd/internal/history"
	"github.com/chichastore/riskd/internal/logging"
	"github.com/chichastore/riskd/internal/risk"
	"github.com/chichastore/riskd/internal/validation"
)

// Handler exposes the assessment endpoint the payment-authorization flow
// calls before capturing funds.
type Handler struct {
	orch    *Orchestrator
	history history.Provider // nil: caller-supplied frequency only
	records risk.RecordStore // nil: record listing disabled
}

// NewHandler creates the assessment handler.
func NewHandler(orch *Orchestrator, hist history.Provider, records risk.RecordStore) *Handler {
	return &Handler{orch: orch, history: hist, records: records}
}

// RegisterRoutes sets up the public assess route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/assess", h.AssessTransaction)
}

// RegisterAdminRoutes sets up audit-trail listing for compliance review.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/assessments/transaction/:id", h.ListByTransaction)
	r.GET("/assessments/user/:id", h.ListByUser)
}

// AssessTransaction handles POST /v1/assess.
//
// When a history provider is configured and the caller did not supply
// frequency metadata, recent counts are read from the shared window; an
// approved transaction is recorded back into it so future frequency
// checks see it.
func (h *Handler) AssessTransaction(c *gin.Context) {
	var tx risk.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed transaction"})
		return
	}
	if tx.ID == "" || tx.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "id and userId are required"})
		return
	}
	if tx.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "amount must be positive"})
		return
	}
	if tx.Currency != "" && !validation.IsValidCurrency(tx.Currency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "currency must be an ISO 4217 code"})
		return
	}

	ctx := c.Request.Context()

	if h.history != nil && tx.Frequency == (risk.FrequencyStats{}) {
		stats, err := h.history.Stats(ctx, tx.UserID)
		if err != nil {
			// Frequency is one input among many; assess without it.
			logging.L(ctx).Warn("history lookup failed", "user_id", tx.UserID, "error", err)
		} else {
			tx.Frequency = stats
		}
	}

	result, err := h.orch.Assess(ctx, &tx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assessment_aborted", "message": "assessment did not complete"})
		return
	}

	if h.history != nil && result.Decision.Action == risk.ActionApprove {
		if err := h.history.RecordTransaction(ctx, tx.UserID, time.Now()); err != nil {
			logging.L(ctx).Warn("history record failed", "user_id", tx.UserID, "error", err)
		}
	}

	c.JSON(http.StatusOK, result)
}

// ListByTransaction handles GET /v1/admin/assessments/transaction/:id.
func (h *Handler) ListByTransaction(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "records_disabled", "message": "no record store configured"})
		return
	}
	recs, err := h.records.ListByTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// ListByUser handles GET /v1/admin/assessments/user/:id.
func (h *Handler) ListByUser(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "records_disabled", "message": "no record store configured"})
		return
	}
	recs, err := h.records.ListByUser(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}
