package model

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of a bank or account address.
const AddressLen = 32

// ErrInvalidAddress is returned when an identifier is not a base58-encoded
// 32-byte address.
var ErrInvalidAddress = errors.New("model: invalid address")

// MarketID identifies one bank. The zero value is not a valid identifier.
type MarketID string

// AccountID identifies one lending account.
type AccountID string

// ParseMarketID validates and returns a bank address.
func ParseMarketID(s string) (MarketID, error) {
	if err := validateAddress(s); err != nil {
		return "", err
	}
	return MarketID(s), nil
}

// ParseAccountID validates and returns an account address.
func ParseAccountID(s string) (AccountID, error) {
	if err := validateAddress(s); err != nil {
		return "", err
	}
	return AccountID(s), nil
}

// MarketIDFromBytes encodes raw address bytes.
func MarketIDFromBytes(b [AddressLen]byte) MarketID {
	return MarketID(base58.Encode(b[:]))
}

// AccountIDFromBytes encodes raw address bytes.
func AccountIDFromBytes(b [AddressLen]byte) AccountID {
	return AccountID(base58.Encode(b[:]))
}

func (id MarketID) String() string  { return string(id) }
func (id AccountID) String() string { return string(id) }

func validateAddress(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != AddressLen {
		return fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	return nil
}
