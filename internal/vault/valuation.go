package vault

import (
	"context"
	"time"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/types"
)

// GetAssetPriceUSD is the feed's latest price at 18 decimals.
func (v *Vault) GetAssetPriceUSD(ctx context.Context) (fixedpoint.Value, error) {
	return v.oracle.AssetPriceUSD(ctx)
}

// GetTotalValueUSD is totalAssets, rescaled to 18 decimals, times the asset price.
func (v *Vault) GetTotalValueUSD(ctx context.Context) (fixedpoint.Value, error) {
	total, err := v.TotalAssets(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return v.oracle.ValueUSD(ctx, total, v.Decimals())
}

// GetSharePriceUSD is the USD value of one whole share, or the whole vault value while no
// shares exist.
func (v *Vault) GetSharePriceUSD(ctx context.Context) (fixedpoint.Value, error) {
	value, err := v.GetTotalValueUSD(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return oracle.SharePrice(value, v.TotalSupply(), v.Decimals())
}

// Snapshot gathers every valuation figure at once. Figures come from separate reads
// and are only consistent while no mutating call runs.
func (v *Vault) Snapshot(ctx context.Context) (types.ValuationSnapshot, error) {
	idle, err := v.IdleBalance(ctx)
	if err != nil {
		return types.ValuationSnapshot{}, err
	}
	aave, err := v.GetAaveBalance(ctx)
	if err != nil {
		return types.ValuationSnapshot{}, err
	}
	total, err := v.TotalAssets(ctx)
	if err != nil {
		return types.ValuationSnapshot{}, err
	}
	price, err := v.GetAssetPriceUSD(ctx)
	if err != nil {
		return types.ValuationSnapshot{}, err
	}
	value, err := oracle.Value(fixedpoint.New(total, v.Decimals()), price)
	if err != nil {
		return types.ValuationSnapshot{}, err
	}
	supply := v.TotalSupply()
	sharePrice, err := oracle.SharePrice(value, supply, v.Decimals())
	if err != nil {
		return types.ValuationSnapshot{}, err
	}

	return types.ValuationSnapshot{
		Vault:           v.address.String(),
		Timestamp:       time.Now().UTC(),
		TotalAssets:     total,
		TotalSupply:     supply,
		IdleBalance:     idle,
		AaveBalance:     aave,
		CompoundBalance: v.GetCompoundBalance(),
		TotalAllocated:  v.GetTotalAllocated(),
		Allocations:     v.Allocations(),
		AssetPriceUSD:   price.Amount,
		TotalValueUSD:   value.Amount,
		SharePriceUSD:   sharePrice.Amount,
		Paused:          v.IsPaused(),
	}, nil
}
