package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCurrency(t *testing.T) {
	assert.True(t, IsValidCurrency("USD"))
	assert.True(t, IsValidCurrency("EUR"))
	assert.False(t, IsValidCurrency("usd"))
	assert.False(t, IsValidCurrency("USDT"))
	assert.False(t, IsValidCurrency(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "abc", SanitizeString("abcdef", 3))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 100))
}
