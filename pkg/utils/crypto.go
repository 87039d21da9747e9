package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// IsValidAddress checks if a string is a valid Ethereum address
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress normalizes an address to lowercase with 0x prefix
func NormalizeAddress(address string) string {
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return strings.ToLower(address)
}

// NormalizeTxHash normalizes a transaction hash to lowercase with 0x prefix
func NormalizeTxHash(hash string) string {
	if !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	return strings.ToLower(hash)
}

// GetEventSignature returns the keccak256 hash of an event signature
func GetEventSignature(signature string) string {
	hash := crypto.Keccak256Hash([]byte(signature))
	return hash.Hex()
}
