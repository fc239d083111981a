package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chichastore/riskd/internal/risk"
)

// HTTPClient calls the verification providers over JSON HTTP. Providers
// share a gateway base URL and API key; each check has its own path.
//
// Transport failures and non-2xx responses are returned as ERROR results
// with a nil error — the client absorbs its own failures per the Client
// contract, and the aggregator's error conversion is a second line of
// defense, not the primary one.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient creates a provider client. A nil *http.Client uses
// http.DefaultClient; per-check deadlines come from the caller's context.
func NewHTTPClient(baseURL, apiKey string, httpc *http.Client) *HTTPClient {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, httpc: httpc}
}

// providerResponse is the wire shape all providers respond with.
type providerResponse struct {
	Status  Status         `json:"status"`
	Details map[string]any `json:"details"`
}

func (c *HTTPClient) SanctionsCheck(ctx context.Context, userID, country string) (*Result, error) {
	return c.post(ctx, ServiceSanctions, "/v1/sanctions/check", map[string]any{
		"userId":  userID,
		"country": country,
	})
}

func (c *HTTPClient) CreditScore(ctx context.Context, userID string) (*Result, error) {
	return c.post(ctx, ServiceCredit, "/v1/credit/score", map[string]any{
		"userId": userID,
	})
}

func (c *HTTPClient) VerifyIdentity(ctx context.Context, userID string) (*Result, error) {
	return c.post(ctx, ServiceIdentity, "/v1/identity/verify", map[string]any{
		"userId": userID,
	})
}

func (c *HTTPClient) FraudCheck(ctx context.Context, tx *risk.Transaction) (*Result, error) {
	return c.post(ctx, ServiceFraud, "/v1/fraud/analyze", map[string]any{
		"transactionId": tx.ID,
		"userId":        tx.UserID,
		"amount":        tx.Amount,
		"currency":      tx.Currency,
		"paymentMethod": tx.PaymentMethod,
		"ipAddress":     tx.IPAddress,
	})
}

func (c *HTTPClient) DeviceIntelligence(ctx context.Context, fingerprint, ipAddress string) (*Result, error) {
	return c.post(ctx, ServiceDevice, "/v1/device/analyze", map[string]any{
		"fingerprint": fingerprint,
		"ipAddress":   ipAddress,
	})
}

func (c *HTTPClient) post(ctx context.Context, service, path string, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return errResult(service, fmt.Sprintf("encode request: %v", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errResult(service, fmt.Sprintf("build request: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errResult(service, fmt.Sprintf("transport: %v", err)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errResult(service, fmt.Sprintf("provider returned %d", resp.StatusCode)), nil
	}

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return errResult(service, fmt.Sprintf("decode response: %v", err)), nil
	}

	switch pr.Status {
	case StatusPass, StatusReview, StatusFail, StatusError:
	default:
		return errResult(service, fmt.Sprintf("provider returned unknown status %q", pr.Status)), nil
	}

	return &Result{Service: service, Status: pr.Status, Details: pr.Details}, nil
}

func errResult(service, reason string) *Result {
	r := errorResult(service, reason)
	return &r
}
