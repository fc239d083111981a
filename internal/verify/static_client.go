package verify

import (
	"context"

	"github.com/chichastore/riskd/internal/risk"
)

// StaticClient returns fixed outcomes. Used in development when no
// verification gateway is configured, and as a test double.
type StaticClient struct {
	// Statuses overrides per-service outcomes; missing services PASS.
	Statuses map[string]Status
}

func (c *StaticClient) result(service string) (*Result, error) {
	status := StatusPass
	if c.Statuses != nil {
		if s, ok := c.Statuses[service]; ok {
			status = s
		}
	}
	return &Result{Service: service, Status: status, Details: map[string]any{"static": true}}, nil
}

func (c *StaticClient) SanctionsCheck(ctx context.Context, userID, country string) (*Result, error) {
	return c.result(ServiceSanctions)
}

func (c *StaticClient) CreditScore(ctx context.Context, userID string) (*Result, error) {
	return c.result(ServiceCredit)
}

func (c *StaticClient) VerifyIdentity(ctx context.Context, userID string) (*Result, error) {
	return c.result(ServiceIdentity)
}

func (c *StaticClient) FraudCheck(ctx context.Context, tx *risk.Transaction) (*Result, error) {
	return c.result(ServiceFraud)
}

func (c *StaticClient) DeviceIntelligence(ctx context.Context, fingerprint, ipAddress string) (*Result, error) {
	return c.result(ServiceDevice)
}
