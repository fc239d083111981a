// Package risk implements transaction risk assessment for the storefront
// payment flow.
//
// Every proposed transaction is scored against 5 weighted factors: user
// history, device risk, geographic risk, transaction pattern, and external
// verification. Scores range from 0 (safe) to 100 (high risk) and map onto
// four levels (LOW/MEDIUM/HIGH/CRITICAL) that drive the authorization
// decision before funds are captured.
package risk

import (
	"context"
	"time"
)

// Level is the categorical risk bucket derived from a numeric score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// FactorCategory identifies one of the five scored dimensions.
type FactorCategory string

const (
	FactorUserHistory          FactorCategory = "user_history"
	FactorDeviceRisk           FactorCategory = "device_risk"
	FactorGeographicRisk       FactorCategory = "geographic_risk"
	FactorTransactionPattern   FactorCategory = "transaction_pattern"
	FactorExternalVerification FactorCategory = "external_verification"
)

// FactorCategories lists all categories in canonical order. Factor slices
// produced by the collector follow this order.
var FactorCategories = []FactorCategory{
	FactorUserHistory,
	FactorDeviceRisk,
	FactorGeographicRisk,
	FactorTransactionPattern,
	FactorExternalVerification,
}

// UserSnapshot carries the account history inputs for scoring. Populated by
// the caller from the user/transaction data source.
type UserSnapshot struct {
	AccountAgeDays    float64 `json:"accountAgeDays"`
	TotalTransactions int     `json:"totalTransactions"`
	AverageAmount     float64 `json:"averageAmount"`
	DisputeCount      int     `json:"disputeCount"`
}

// FrequencyStats carries recent transaction counts for the user.
type FrequencyStats struct {
	LastHour    int `json:"lastHour"`
	Last24Hours int `json:"last24Hours"`
}

// Transaction is the immutable input to the engine. Device fingerprints and
// geo country are supplied by the caller; this engine does not collect them.
type Transaction struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	Amount            float64        `json:"amount"`
	Currency          string         `json:"currency"`
	PaymentMethod     string         `json:"paymentMethod"`
	DeviceFingerprint string         `json:"deviceFingerprint,omitempty"`
	KnownDevice       bool           `json:"knownDevice,omitempty"`
	IPAddress         string         `json:"ipAddress,omitempty"`
	Country           string         `json:"country,omitempty"`
	CardBIN           string         `json:"cardBin,omitempty"`
	BankAccountID     string         `json:"bankAccountId,omitempty"`
	User              UserSnapshot   `json:"user"`
	Frequency         FrequencyStats `json:"frequency"`
	CreatedAt         time.Time      `json:"createdAt,omitempty"`
}

// Factor is one scored dimension of a transaction.
type Factor struct {
	Category FactorCategory `json:"category"`
	Score    float64        `json:"score"` // [0,100]
	Detail   map[string]any `json:"detail,omitempty"`
}

// MatchedRule records a custom rule that fired during evaluation.
type MatchedRule struct {
	RuleID    string  `json:"ruleId"`
	RuleName  string  `json:"ruleName"`
	RiskScore float64 `json:"riskScore"`
}

// Assessment is the result of evaluating a single transaction. Produced
// fresh per evaluation and never mutated afterwards.
type Assessment struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transactionId"`
	UserID        string        `json:"userId"`
	Score         float64       `json:"score"` // [0,100]
	Level         Level         `json:"level"`
	Factors       []Factor      `json:"factors"`
	MatchedRules  []MatchedRule `json:"matchedCustomRules,omitempty"`
	EvaluatedAt   time.Time     `json:"evaluatedAt"`
}

// Action is the binding authorization outcome.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReview  Action = "REVIEW"
	ActionBlock   Action = "BLOCK"
)

// Decision is the binding outcome of an assessment, including compliance
// side-effect flags the caller must honor.
type Decision struct {
	Action                 Action `json:"action"`
	RequiresReview         bool   `json:"requiresReview"`
	AdditionalVerification bool   `json:"additionalVerification,omitempty"`
	NotifyCompliance       bool   `json:"notifyCompliance,omitempty"`
	ReportToAuthorities    bool   `json:"reportToAuthorities,omitempty"`
}

// Record is the persisted audit trail entry for one assessment.
type Record struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transactionId"`
	UserID        string     `json:"userId"`
	Assessment    Assessment `json:"assessment"`
	Decision      Decision   `json:"decision"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// RecordStore persists assessment records for audit.
type RecordStore interface {
	Record(ctx context.Context, rec *Record) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error)
}
