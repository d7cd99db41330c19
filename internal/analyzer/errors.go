package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// ErrInvalidAddress is returned for wallet strings that are not a base58 ed25519 public key
var ErrInvalidAddress = errors.New("invalid wallet address")

const publicKeyLength = 32

// ValidateAddress checks that addr decodes to a 32-byte public key
func ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	decoded := base58.Decode(addr)
	if len(decoded) != publicKeyLength {
		return fmt.Errorf("%w: %q does not decode to a %d-byte public key", ErrInvalidAddress, addr, publicKeyLength)
	}
	return nil
}
