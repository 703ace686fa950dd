package offer

import "github.com/mr-tron/base58"

// AddressLen is the size in bytes of a Solana public key.
const AddressLen = 32

// ValidAddress reports whether s is the base58 encoding of a 32-byte public key.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	b, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(b) == AddressLen
}
