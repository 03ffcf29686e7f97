/*

This file contains the helpers for account identities. The vault identifies callers,
owners, receivers and external protocols by sdk.AccAddress; the empty address plays
the role of the zero address.

*/

package types

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// IsZeroAddress reports whether addr is unset.
func IsZeroAddress(addr sdk.AccAddress) bool {
	return addr == nil || addr.Empty()
}

// AddressKey returns the map key used for per-account bookkeeping.
func AddressKey(addr sdk.AccAddress) string {
	return addr.String()
}

// SameAddress compares two possibly empty addresses.
func SameAddress(a, b sdk.AccAddress) bool {
	if IsZeroAddress(a) || IsZeroAddress(b) {
		return IsZeroAddress(a) && IsZeroAddress(b)
	}
	return a.Equals(b)
}

// DeriveAddress returns a deterministic module-style address for a named component,
// e.g. DeriveAddress("uservault", owner, []byte("uusdc")).
func DeriveAddress(name string, keys ...[]byte) sdk.AccAddress {
	return sdk.AccAddress(address.Module(name, keys...))
}

// ParseAddress decodes a bech32 account address, rejecting empty input.
func ParseAddress(bech32 string) (sdk.AccAddress, error) {
	if bech32 == "" {
		return nil, ErrInvalidAddress.Wrap("address cannot be empty")
	}
	addr, err := sdk.AccAddressFromBech32(bech32)
	if err != nil {
		return nil, ErrInvalidAddress.Wrapf("%s: %s", bech32, err)
	}
	return addr, nil
}

// MustTestAddress builds a 20 byte address from a short label. Intended for tests and
// simulated environments.
func MustTestAddress(label string) sdk.AccAddress {
	if len(label) == 0 || len(label) > 20 {
		panic(fmt.Sprintf("invalid test address label %q", label))
	}
	bz := make([]byte, 20)
	copy(bz, label)
	return sdk.AccAddress(bz)
}
