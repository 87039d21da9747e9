package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0x1234567890abcdef1234567890abcdef12345678"))
	assert.True(t, IsValidAddress("0x1234567890ABCDEF1234567890ABCDEF12345678"))
	assert.False(t, IsValidAddress("0x123"))
	assert.False(t, IsValidAddress("not-an-address"))
	assert.False(t, IsValidAddress(""))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabcdef", NormalizeAddress("0xABCDEF"))
	assert.Equal(t, "0xabcdef", NormalizeAddress("ABCDEF"))
}

func TestNormalizeTxHash(t *testing.T) {
	assert.Equal(t, "0xdeadbeef", NormalizeTxHash("0xDEADBEEF"))
	assert.Equal(t, "0xdeadbeef", NormalizeTxHash("DEADBEEF"))
}

func TestGetEventSignature(t *testing.T) {
	// keccak256("Transfer(address,address,uint256)") is a well-known constant
	assert.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		GetEventSignature("Transfer(address,address,uint256)"))
}
