package rules

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chichastore/riskd/internal/validation"
)

// Handler provides the admin HTTP endpoints for rule management.
type Handler struct {
	engine *Engine
}

// NewHandler creates a rule management handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up rule CRUD under the given (already authenticated)
// router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/rules", h.CreateRule)
	r.GET("/rules", h.ListRules)
	r.GET("/rules/:id", h.GetRule)
	r.PATCH("/rules/:id", h.UpdateRule)
	r.POST("/rules/:id/disable", h.DisableRule)
}

// CreateRule handles POST /v1/admin/rules.
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed rule definition"})
		return
	}
	req.Name = validation.SanitizeString(req.Name, 200)
	req.Description = validation.SanitizeString(req.Description, 2000)

	createdBy := c.GetHeader("X-Operator")

	rule, err := h.engine.CreateRule(c.Request.Context(), req, createdBy)
	if err != nil {
		if errors.Is(err, ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rule", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create rule"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules handles GET /v1/admin/rules?active=&createdBy=.
func (h *Handler) ListRules(c *gin.Context) {
	var f Filter
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "active must be true or false"})
			return
		}
		f.Active = &active
	}
	f.CreatedBy = c.Query("createdBy")

	rulesList, err := h.engine.ListRules(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rulesList, "count": len(rulesList)})
}

// GetRule handles GET /v1/admin/rules/:id.
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.engine.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule handles PATCH /v1/admin/rules/:id.
func (h *Handler) UpdateRule(c *gin.Context) {
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed patch"})
		return
	}
	if patch.Name != nil {
		sanitized := validation.SanitizeString(*patch.Name, 200)
		patch.Name = &sanitized
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DisableRule handles POST /v1/admin/rules/:id/disable.
func (h *Handler) DisableRule(c *gin.Context) {
	rule, err := h.engine.DisableRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "rule_not_found", "message": "no rule with that id"})
	case errors.Is(err, ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rule", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "rule operation failed"})
	}
}
