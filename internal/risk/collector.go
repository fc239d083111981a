package risk

import (
	"context"
	"log/slog"
	"sync"
)

// Collector gathers the five risk factors for a transaction. The factor
// computations are read-only and independent, so they run concurrently;
// the collector waits for all of them and returns factors in canonical
// category order.
type Collector struct {
	userHistory UserHistoryScorer
	device      DeviceRiskScorer
	geographic  GeographicRiskScorer
	pattern     TransactionPatternScorer
	external    ExternalVerificationScorer
	logger      *slog.Logger
}

// NewCollector wires the five scoring strategies together.
func NewCollector(
	userHistory UserHistoryScorer,
	device DeviceRiskScorer,
	geographic GeographicRiskScorer,
	pattern TransactionPatternScorer,
	external ExternalVerificationScorer,
	logger *slog.Logger,
) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		userHistory: userHistory,
		device:      device,
		geographic:  geographic,
		pattern:     pattern,
		external:    external,
		logger:      logger,
	}
}

// Collect computes all five factors concurrently. A scorer that panics is
// absorbed into a neutral mid-scale factor rather than taking down the
// assessment; the caller always receives exactly five factors.
func (c *Collector) Collect(ctx context.Context, tx *Transaction) []Factor {
	type scoreFn func(context.Context, *Transaction) (float64, map[string]any)

	fns := map[FactorCategory]scoreFn{
		FactorUserHistory:          c.userHistory.ScoreUserHistory,
		FactorDeviceRisk:           c.device.ScoreDeviceRisk,
		FactorGeographicRisk:       c.geographic.ScoreGeographicRisk,
		FactorTransactionPattern:   c.pattern.ScoreTransactionPattern,
		FactorExternalVerification: c.external.ScoreExternalVerification,
	}

	factors := make([]Factor, len(FactorCategories))
	var wg sync.WaitGroup
	for i, cat := range FactorCategories {
		wg.Add(1)
		go func(i int, cat FactorCategory, fn scoreFn) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("factor scorer panicked",
						"category", string(cat),
						"transaction_id", tx.ID,
						"panic", r,
					)
					factors[i] = Factor{Category: cat, Score: 50, Detail: map[string]any{"scorerFailed": true}}
				}
			}()
			score, detail := fn(ctx, tx)
			factors[i] = Factor{Category: cat, Score: ClampScore(score), Detail: detail}
		}(i, cat, fns[cat])
	}
	wg.Wait()

	return factors
}
