// Package factory is the registry vaults are created by. Its owner configures the
// protocol adapters and per-asset price feeds that every vault looks up.
package factory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/protocols"
	"github.com/elys-network/uservault/internal/types"
	"github.com/elys-network/uservault/internal/vault"
)

const maxUsernameLength = 32

// User is a registered vault creator.
type User struct {
	Address      sdk.AccAddress `json:"address"`
	Username     string         `json:"username"`
	Bio          string         `json:"bio"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Factory holds adapter configuration and the vaults created through it.
type Factory struct {
	address sdk.AccAddress
	owner   sdk.AccAddress
	sink    events.Sink
	log     zerolog.Logger

	mu          sync.RWMutex
	lendingPool protocols.LendingPool
	moneyMarket protocols.MoneyMarket
	priceFeeds  map[string]oracle.PriceFeed
	users       map[string]User
	usernames   map[string]struct{}
	vaults      map[string][]*vault.Vault
	all         []*vault.Vault
}

// New creates a factory. Records emitted by vaults it creates go to sink.
func New(address, owner sdk.AccAddress, sink events.Sink) (*Factory, error) {
	if types.IsZeroAddress(address) {
		return nil, types.ErrInvalidAddress.Wrap("factory address cannot be empty")
	}
	if types.IsZeroAddress(owner) {
		return nil, types.ErrInvalidAddress.Wrap("factory owner cannot be empty")
	}
	return &Factory{
		address:    address,
		owner:      owner,
		sink:       sink,
		log:        logger.GetForComponent("factory"),
		priceFeeds: make(map[string]oracle.PriceFeed),
		users:      make(map[string]User),
		usernames:  make(map[string]struct{}),
		vaults:     make(map[string][]*vault.Vault),
	}, nil
}

func (f *Factory) Address() sdk.AccAddress {
	return f.address
}

func (f *Factory) Owner() sdk.AccAddress {
	return f.owner
}

// LendingPool returns nil until SetLendingPool is called.
func (f *Factory) LendingPool() protocols.LendingPool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lendingPool
}

// MoneyMarket returns nil until SetMoneyMarket is called.
func (f *Factory) MoneyMarket() protocols.MoneyMarket {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.moneyMarket
}

func (f *Factory) requireOwner(caller sdk.AccAddress) error {
	if !types.SameAddress(caller, f.owner) {
		return types.ErrUnauthorized.Wrapf("%s is not the factory owner", caller)
	}
	return nil
}

func (f *Factory) SetLendingPool(caller sdk.AccAddress, pool protocols.LendingPool) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if pool == nil || types.IsZeroAddress(pool.Address()) {
		return types.ErrInvalidAddress.Wrap("lending pool address cannot be empty")
	}
	f.mu.Lock()
	f.lendingPool = pool
	f.mu.Unlock()

	f.log.Info().Str("address", pool.Address().String()).Msg("Lending pool configured")
	return nil
}

func (f *Factory) SetMoneyMarket(caller sdk.AccAddress, market protocols.MoneyMarket) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if market == nil || types.IsZeroAddress(market.Address()) {
		return types.ErrInvalidAddress.Wrap("money market address cannot be empty")
	}
	f.mu.Lock()
	f.moneyMarket = market
	f.mu.Unlock()

	f.log.Info().Str("address", market.Address().String()).Msg("Money market configured")
	return nil
}

// SetAssetPriceFeed registers the feed pinned into vaults created for denom afterwards.
// Existing vaults keep the feed they were created with.
func (f *Factory) SetAssetPriceFeed(caller sdk.AccAddress, denom string, feed oracle.PriceFeed) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if err := sdk.ValidateDenom(denom); err != nil {
		return types.ErrInvalidAddress.Wrapf("asset %q: %s", denom, err)
	}
	if feed == nil {
		return types.ErrInvalidAddress.Wrap("price feed cannot be nil")
	}
	f.mu.Lock()
	f.priceFeeds[denom] = feed
	f.mu.Unlock()

	f.log.Info().Str("asset", denom).Msg("Price feed configured")
	return nil
}

func (f *Factory) PriceFeed(denom string) (oracle.PriceFeed, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	feed, ok := f.priceFeeds[denom]
	return feed, ok
}

// RegisterUser records caller under a unique username.
func (f *Factory) RegisterUser(caller sdk.AccAddress, username, bio string) (User, error) {
	if types.IsZeroAddress(caller) {
		return User{}, types.ErrInvalidAddress.Wrap("caller cannot be empty")
	}
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return User{}, types.ErrInvalidUsername.Wrapf("username must be 1 to %d characters", maxUsernameLength)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := types.AddressKey(caller)
	if _, ok := f.users[key]; ok {
		return User{}, types.ErrUserAlreadyRegistered.Wrap(caller.String())
	}
	if _, ok := f.usernames[strings.ToLower(username)]; ok {
		return User{}, types.ErrUsernameTaken.Wrap(username)
	}

	user := User{Address: caller, Username: username, Bio: bio, RegisteredAt: time.Now().UTC()}
	f.users[key] = user
	f.usernames[strings.ToLower(username)] = struct{}{}

	f.log.Info().Str("user", caller.String()).Str("username", username).Msg("User registered")
	return user, nil
}

func (f *Factory) User(account sdk.AccAddress) (User, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	user, ok := f.users[types.AddressKey(account)]
	return user, ok
}

// CreateVault deploys a new vault over asset owned by caller. The caller must be
// registered and the asset must have a price feed.
func (f *Factory) CreateVault(_ context.Context, caller sdk.AccAddress, asset vault.Asset, name, symbol string) (*vault.Vault, error) {
	if _, ok := f.User(caller); !ok {
		return nil, types.ErrUserNotRegistered.Wrap(caller.String())
	}
	if asset == nil {
		return nil, types.ErrInvalidAddress.Wrap("asset cannot be nil")
	}
	feed, ok := f.PriceFeed(asset.Denom())
	if !ok {
		return nil, types.ErrPriceFeedNotSet.Wrapf("no price feed for %s", asset.Denom())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := types.AddressKey(caller)
	index := len(f.vaults[key])
	address := types.DeriveAddress(types.ModuleName, f.address, caller, []byte(asset.Denom()), []byte(fmt.Sprint(index)))

	v, err := vault.New(vault.Config{
		Address:   address,
		Asset:     asset,
		Owner:     caller,
		Factory:   f,
		PriceFeed: feed,
		Name:      name,
		Symbol:    symbol,
		Sink:      f.sink,
	})
	if err != nil {
		return nil, err
	}
	f.vaults[key] = append(f.vaults[key], v)
	f.all = append(f.all, v)

	f.log.Info().
		Str("user", caller.String()).
		Str("vault", address.String()).
		Str("asset", asset.Denom()).
		Msg("Vault created")
	return v, nil
}

// UserVaults returns the vaults created by user, oldest first.
func (f *Factory) UserVaults(user sdk.AccAddress) []*vault.Vault {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*vault.Vault(nil), f.vaults[types.AddressKey(user)]...)
}

// Vaults returns every vault created through the factory, oldest first.
func (f *Factory) Vaults() []*vault.Vault {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*vault.Vault(nil), f.all...)
}

// Vault finds a vault by address.
func (f *Factory) Vault(address sdk.AccAddress) (*vault.Vault, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, v := range f.all {
		if v.Address().Equals(address) {
			return v, true
		}
	}
	return nil, false
}
