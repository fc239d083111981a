package rules

import (
	"strconv"
	"strings"

	"github.com/chichastore/riskd/internal/risk"
)

// Transaction fields addressable from rule conditions.
const (
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
	FieldPaymentMethod     = "payment_method"
	FieldCountry           = "country"
	FieldIPAddress         = "ip_address"
	FieldDeviceFingerprint = "device_fingerprint"
	FieldUserID            = "user_id"
	FieldCardBIN           = "card_bin"
	FieldTxLastHour        = "tx_last_hour"
	FieldAccountAgeDays    = "account_age_days"
)

func validField(f string) bool {
	switch f {
	case FieldAmount, FieldCurrency, FieldPaymentMethod, FieldCountry,
		FieldIPAddress, FieldDeviceFingerprint, FieldUserID, FieldCardBIN,
		FieldTxLastHour, FieldAccountAgeDays:
		return true
	}
	return false
}

// transactionValue extracts the addressed field from a transaction.
func transactionValue(tx *risk.Transaction, field string) any {
	switch field {
	case FieldAmount:
		return tx.Amount
	case FieldCurrency:
		return tx.Currency
	case FieldPaymentMethod:
		return tx.PaymentMethod
	case FieldCountry:
		return tx.Country
	case FieldIPAddress:
		return tx.IPAddress
	case FieldDeviceFingerprint:
		return tx.DeviceFingerprint
	case FieldUserID:
		return tx.UserID
	case FieldCardBIN:
		return tx.CardBIN
	case FieldTxLastHour:
		return float64(tx.Frequency.LastHour)
	case FieldAccountAgeDays:
		return tx.User.AccountAgeDays
	default:
		return nil
	}
}

// matches applies one condition. Ordering operators require both sides to
// be numeric; string operators compare case-insensitively so rule authors
// don't trip over "US" vs "us".
func (c Condition) matches(tx *risk.Transaction) bool {
	actual := transactionValue(tx, c.Field)
	if actual == nil {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return equalValues(actual, c.Value)
	case OpNotEquals:
		return !equalValues(actual, c.Value)
	case OpGreaterThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		return aok && bok && a > b
	case OpLessThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		return aok && bok && a < b
	case OpContains:
		return strings.Contains(lower(actual), lower(c.Value))
	case OpNotContains:
		return !strings.Contains(lower(actual), lower(c.Value))
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return strings.EqualFold(lower(a), lower(b))
}

// toFloat normalizes the numeric types JSON decoding and field extraction
// can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func lower(v any) string {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
