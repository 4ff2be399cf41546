package solana

import (
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a base58-encoded 32-byte public key.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}
