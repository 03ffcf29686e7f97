package types

import (
	"errors"
	"fmt"
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{nil, CategoryNone},
		{ErrInvalidAmount.Wrap("zero"), CategoryValidation},
		{ErrInvalidProtocolName, CategoryValidation},
		{ErrUnauthorized.Wrapf("%s", "bob"), CategoryAuthorization},
		{ErrInsufficientAllowance, CategoryAuthorization},
		{ErrAllocationExceedsBalance, CategoryInvariant},
		{fmt.Errorf("burn: %w", ErrInsufficientBalance), CategoryInvariant},
		{ErrEnforcedPause, CategoryInvariant},
		{errorsmod.Wrap(ErrProtocolAddressNotSet, "aave"), CategoryExternalDependency},
		{ErrInvalidOracleResponse, CategoryExternalDependency},
		{errors.New("boom"), CategoryUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryOf(tc.err), "%v", tc.err)
	}
}

func TestIsRegistered(t *testing.T) {
	assert.True(t, IsRegistered(ErrReentrantCall.Wrap("deposit")))
	assert.False(t, IsRegistered(errors.New("plain")))
	assert.False(t, IsRegistered(nil))
}

func TestZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress(nil))
	assert.True(t, IsZeroAddress(sdk.AccAddress{}))
	assert.False(t, IsZeroAddress(MustTestAddress("alice")))

	assert.True(t, SameAddress(nil, sdk.AccAddress{}))
	assert.True(t, SameAddress(MustTestAddress("alice"), MustTestAddress("alice")))
	assert.False(t, SameAddress(MustTestAddress("alice"), nil))
	assert.False(t, SameAddress(MustTestAddress("alice"), MustTestAddress("bob")))
}

func TestDeriveAddressIsDeterministic(t *testing.T) {
	owner := MustTestAddress("alice")
	a := DeriveAddress(ModuleName, owner, []byte("uusdc"))
	b := DeriveAddress(ModuleName, owner, []byte("uusdc"))
	c := DeriveAddress(ModuleName, owner, []byte("uatom"))

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, IsZeroAddress(a))
}

func TestParseAddress(t *testing.T) {
	addr := MustTestAddress("alice")
	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(addr))

	_, err = ParseAddress("")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ParseAddress("not-bech32")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestMustTestAddressPanicsOnBadLabel(t *testing.T) {
	assert.Panics(t, func() { MustTestAddress("") })
	assert.Panics(t, func() { MustTestAddress("this-label-is-far-too-long") })
}
