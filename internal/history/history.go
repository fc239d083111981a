// Package history tracks recent transaction activity per user.
//
// The transaction-pattern scorer needs short-window frequency counts; this
// package supplies them from a sliding window of recorded transactions.
// Production uses Redis sorted sets so counts survive restarts and are
// shared across instances; the in-memory provider covers dev and tests.
package history

import (
	"context"
	"time"

	"github.com/chichastore/riskd/internal/risk"
)

// Window bounds for frequency stats.
const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Provider supplies recent transaction frequency for a user and records
// completed transactions into the window.
type Provider interface {
	Stats(ctx context.Context, userID string) (risk.FrequencyStats, error)
	RecordTransaction(ctx context.Context, userID string, at time.Time) error
}
