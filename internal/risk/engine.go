package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/chichastore/riskd/internal/idgen"
)

// Engine combines collected factors into a weighted base assessment.
type Engine struct {
	cfg       ScoringConfig
	collector *Collector
	logger    *slog.Logger
}

// NewEngine creates a scoring engine. The config is validated here so a
// broken weight table fails at startup, not per-transaction.
func NewEngine(cfg ScoringConfig, collector *Collector, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk: invalid scoring config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, collector: collector, logger: logger}, nil
}

// Config returns the engine's scoring configuration.
func (e *Engine) Config() ScoringConfig { return e.cfg }

// Assess computes the base assessment for a transaction: gathers the five
// factors, folds them into the weighted score, and classifies the level.
// The only error path is caller abandonment — a partially gathered factor
// set must never be turned into an assessment.
func (e *Engine) Assess(ctx context.Context, tx *Transaction) (*Assessment, error) {
	factors := e.collector.Collect(ctx, tx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("risk: assessment abandoned: %w", err)
	}

	var score float64
	for _, f := range factors {
		score += f.Score * e.cfg.Weights.For(f.Category)
	}
	score = ClampScore(roundScore(score))

	a := &Assessment{
		ID:            idgen.WithPrefix("risk_"),
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Score:         score,
		Level:         e.cfg.LevelFor(score),
		Factors:       factors,
		EvaluatedAt:   time.Now().UTC(),
	}

	e.logger.Debug("base risk assessment computed",
		"transaction_id", tx.ID,
		"score", a.Score,
		"level", string(a.Level),
	)
	return a, nil
}

// roundScore keeps scores at 3 decimal places for stable persistence.
func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
