/*

This file registers the vault error taxonomy. Every failure returned by a vault entry point
wraps exactly one of these errors, so callers can branch with errors.Is and transports can
map them onto gRPC status codes.

*/

package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
	"google.golang.org/grpc/codes"
)

// ModuleName is the codespace the vault errors are registered under.
const ModuleName = "uservault"

// Validation errors
var (
	ErrInvalidAmount       = errorsmod.RegisterWithGRPCCode(ModuleName, 2, codes.InvalidArgument, "invalid amount")
	ErrInvalidAddress      = errorsmod.RegisterWithGRPCCode(ModuleName, 3, codes.InvalidArgument, "invalid address")
	ErrInvalidProtocolName = errorsmod.RegisterWithGRPCCode(ModuleName, 4, codes.InvalidArgument, "invalid protocol name")
	ErrInvalidUsername     = errorsmod.RegisterWithGRPCCode(ModuleName, 5, codes.InvalidArgument, "invalid username")
)

// Authorization errors
var (
	ErrUnauthorized          = errorsmod.RegisterWithGRPCCode(ModuleName, 10, codes.PermissionDenied, "caller is not the owner")
	ErrInsufficientAllowance = errorsmod.RegisterWithGRPCCode(ModuleName, 11, codes.PermissionDenied, "insufficient allowance")
	ErrUserNotRegistered     = errorsmod.RegisterWithGRPCCode(ModuleName, 12, codes.PermissionDenied, "user not registered")
)

// Invariant violations
var (
	ErrAllocationExceedsBalance = errorsmod.RegisterWithGRPCCode(ModuleName, 20, codes.FailedPrecondition, "allocation exceeds balance")
	ErrInsufficientBalance      = errorsmod.RegisterWithGRPCCode(ModuleName, 21, codes.FailedPrecondition, "insufficient balance")
	ErrEnforcedPause            = errorsmod.RegisterWithGRPCCode(ModuleName, 22, codes.FailedPrecondition, "enforced pause")
	ErrExpectedPause            = errorsmod.RegisterWithGRPCCode(ModuleName, 23, codes.FailedPrecondition, "expected pause")
	ErrReentrantCall            = errorsmod.RegisterWithGRPCCode(ModuleName, 24, codes.Aborted, "reentrant call")
	ErrMathematical             = errorsmod.RegisterWithGRPCCode(ModuleName, 25, codes.OutOfRange, "arithmetic error")
	ErrUserAlreadyRegistered    = errorsmod.RegisterWithGRPCCode(ModuleName, 26, codes.AlreadyExists, "user already registered")
	ErrUsernameTaken            = errorsmod.RegisterWithGRPCCode(ModuleName, 27, codes.AlreadyExists, "username taken")
)

// External dependency errors
var (
	ErrProtocolAddressNotSet = errorsmod.RegisterWithGRPCCode(ModuleName, 30, codes.Unavailable, "protocol address not set")
	ErrInvalidOracleResponse = errorsmod.RegisterWithGRPCCode(ModuleName, 31, codes.Unavailable, "invalid oracle response")
	ErrExternalCall          = errorsmod.RegisterWithGRPCCode(ModuleName, 32, codes.Unavailable, "external call failed")
	ErrPriceFeedNotSet       = errorsmod.RegisterWithGRPCCode(ModuleName, 33, codes.Unavailable, "price feed not set")
)

// Category classifies an error for callers that only care about the failure class.
type Category string

const (
	CategoryNone               Category = ""
	CategoryValidation         Category = "validation"
	CategoryAuthorization      Category = "authorization"
	CategoryInvariant          Category = "invariant"
	CategoryExternalDependency Category = "external_dependency"
	CategoryUnknown            Category = "unknown"
)

var categories = []struct {
	category Category
	errs     []error
}{
	{CategoryValidation, []error{ErrInvalidAmount, ErrInvalidAddress, ErrInvalidProtocolName, ErrInvalidUsername}},
	{CategoryAuthorization, []error{ErrUnauthorized, ErrInsufficientAllowance, ErrUserNotRegistered}},
	{CategoryInvariant, []error{
		ErrAllocationExceedsBalance, ErrInsufficientBalance, ErrEnforcedPause, ErrExpectedPause,
		ErrReentrantCall, ErrMathematical, ErrUserAlreadyRegistered, ErrUsernameTaken,
	}},
	{CategoryExternalDependency, []error{ErrProtocolAddressNotSet, ErrInvalidOracleResponse, ErrExternalCall, ErrPriceFeedNotSet}},
}

// CategoryOf returns the taxonomy class of err.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	for _, c := range categories {
		if errorsmod.IsOf(err, c.errs...) {
			return c.category
		}
	}
	return CategoryUnknown
}

// IsRegistered reports whether err wraps one of the vault errors.
func IsRegistered(err error) bool {
	var sdkErr *errorsmod.Error
	return errors.As(err, &sdkErr) && sdkErr.Codespace() == ModuleName
}
