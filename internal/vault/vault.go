// Package vault implements a per-user tokenized vault: deposits of an underlying asset
// are converted into proportional ownership shares, idle funds can be deployed into
// external yield protocols, and the whole position is valued through a price feed.
//
// Mutating entry points take the calling account explicitly and are serialized by a
// reentrancy guard; a failing call leaves no partial state behind.
package vault

import (
	"sync"
	"sync/atomic"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/allocation"
	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/ledger"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/types"
)

// Config holds the construction parameters of a vault. Every collaborator is required;
// Sink defaults to discarding records.
type Config struct {
	Address   sdk.AccAddress
	Asset     Asset
	Owner     sdk.AccAddress
	Factory   Factory
	PriceFeed oracle.PriceFeed
	Name      string
	Symbol    string
	Sink      events.Sink
}

// Vault is a single user's vault over one underlying asset.
type Vault struct {
	address sdk.AccAddress
	asset   Asset
	factory Factory
	oracle  *oracle.Client
	name    string
	symbol  string
	sink    events.Sink
	log     zerolog.Logger

	entered atomic.Bool

	// mu guards the fields below. It is never held across a collaborator call.
	mu                sync.RWMutex
	owner             sdk.AccAddress
	paused            bool
	shares            *ledger.Ledger
	allocations       *allocation.Registry
	compoundPrincipal sdkmath.Int
}

// New validates cfg and returns an unpaused vault with no shares outstanding.
func New(cfg Config) (*Vault, error) {
	switch {
	case types.IsZeroAddress(cfg.Address):
		return nil, types.ErrInvalidAddress.Wrap("vault address cannot be empty")
	case cfg.Asset == nil:
		return nil, types.ErrInvalidAddress.Wrap("asset cannot be nil")
	case types.IsZeroAddress(cfg.Owner):
		return nil, types.ErrInvalidAddress.Wrap("owner address cannot be empty")
	case cfg.Factory == nil:
		return nil, types.ErrInvalidAddress.Wrap("factory cannot be nil")
	case cfg.PriceFeed == nil:
		return nil, types.ErrInvalidAddress.Wrap("price feed cannot be nil")
	}

	client, err := oracle.NewClient(cfg.PriceFeed)
	if err != nil {
		return nil, err
	}
	sink := cfg.Sink
	if sink == nil {
		sink = events.Nop
	}

	v := &Vault{
		address:           cfg.Address,
		asset:             cfg.Asset,
		factory:           cfg.Factory,
		oracle:            client,
		name:              cfg.Name,
		symbol:            cfg.Symbol,
		sink:              sink,
		owner:             cfg.Owner,
		shares:            ledger.New(),
		allocations:       allocation.New(),
		compoundPrincipal: sdkmath.ZeroInt(),
	}
	v.log = logger.GetForComponent("vault").With().
		Str("vault", cfg.Address.String()).
		Str("asset", cfg.Asset.Denom()).
		Logger()

	v.log.Info().
		Str("owner", cfg.Owner.String()).
		Str("name", cfg.Name).
		Str("symbol", cfg.Symbol).
		Msg("Vault created")
	return v, nil
}

func (v *Vault) Address() sdk.AccAddress {
	return v.address
}

// Asset returns the denom of the underlying token.
func (v *Vault) Asset() string {
	return v.asset.Denom()
}

func (v *Vault) Name() string {
	return v.name
}

func (v *Vault) Symbol() string {
	return v.symbol
}

// Decimals of the share equal those of the underlying asset.
func (v *Vault) Decimals() uint8 {
	return v.asset.Decimals()
}

func (v *Vault) Owner() sdk.AccAddress {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.owner
}

func (v *Vault) IsPaused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused
}
