// Package planner reconciles a vault's declared protocol allocations with the capital
// actually deployed, producing the deploy and withdraw calls that close the gap.
package planner

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/types"
)

const bpsDenominator = 10_000

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidInput  = errors.New("planner input contains invalid values")
	ErrInvalidParams = errors.New("planner parameters contain invalid values")
)

// Kind is the direction of an action.
type Kind string

const (
	Deploy   Kind = "deploy"
	Withdraw Kind = "withdraw"
)

// Action is one adapter call.
type Action struct {
	Protocol types.ProtocolName `json:"protocol"`
	Kind     Kind               `json:"kind"`
	Amount   sdkmath.Int        `json:"amount"`
}

// Plan lists withdrawals, executed first, then deposits funded by idle plus withdrawn assets.
type Plan struct {
	Withdrawals []Action `json:"withdrawals"`
	Deposits    []Action `json:"deposits"`
}

// Empty reports whether the plan has no actions.
func (p Plan) Empty() bool {
	return len(p.Withdrawals) == 0 && len(p.Deposits) == 0
}

// Actions returns withdrawals followed by deposits.
func (p Plan) Actions() []Action {
	return append(append([]Action(nil), p.Withdrawals...), p.Deposits...)
}

// Params bound how aggressively a plan rebalances.
type Params struct {
	// ThresholdBps ignores deviations smaller than this share of the target.
	ThresholdBps uint32
	// MaxWithdrawBps caps total withdrawals per plan as a share of total assets; 0 is unlimited.
	MaxWithdrawBps uint32
}

// DefaultParams rebalance on a 2% deviation and withdraw at most 10% of assets per plan.
var DefaultParams = Params{ThresholdBps: 200, MaxWithdrawBps: 1_000}

// Input is the vault state a plan is computed from.
type Input struct {
	Declared    map[types.ProtocolName]sdkmath.Int
	Deployed    map[types.ProtocolName]sdkmath.Int
	Idle        sdkmath.Int
	TotalAssets sdkmath.Int
}

// Source is the vault view the planner reads.
type Source interface {
	Allocations() []types.AllocationEntry
	GetAaveBalance(ctx context.Context) (sdkmath.Int, error)
	GetCompoundBalance() sdkmath.Int
	IdleBalance(ctx context.Context) (sdkmath.Int, error)
	TotalAssets(ctx context.Context) (sdkmath.Int, error)
}

// Executor performs adapter calls on behalf of caller.
type Executor interface {
	DeployToAave(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) error
	WithdrawFromAave(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) error
	DeployToCompound(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) error
	WithdrawFromCompound(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) error
}

// ReadInput captures the planner input from a live vault.
func ReadInput(ctx context.Context, src Source) (Input, error) {
	aave, err := src.GetAaveBalance(ctx)
	if err != nil {
		return Input{}, err
	}
	idle, err := src.IdleBalance(ctx)
	if err != nil {
		return Input{}, err
	}
	total, err := src.TotalAssets(ctx)
	if err != nil {
		return Input{}, err
	}

	declared := make(map[types.ProtocolName]sdkmath.Int)
	for _, entry := range src.Allocations() {
		declared[entry.Protocol] = entry.Amount
	}
	return Input{
		Declared: declared,
		Deployed: map[types.ProtocolName]sdkmath.Int{
			types.ProtocolAave:     aave,
			types.ProtocolCompound: src.GetCompoundBalance(),
		},
		Idle:        idle,
		TotalAssets: total,
	}, nil
}

// GeneratePlan computes the actions moving deployed balances toward declared allocations.
// Only protocols with an adapter are planned; other declared names are bookkeeping only.
func GeneratePlan(in Input, params Params) (Plan, error) {
	planLogger := logger.GetForComponent("planner")

	if err := validateInputs(in, params); err != nil {
		planLogger.Error().Err(err).Msg("Input validation failed")
		return Plan{}, err
	}

	withdrawals, deposits := analyzeRequiredChanges(in, params, planLogger)

	withdrawals, err := applyWithdrawalLimit(withdrawals, in.TotalAssets, params, planLogger)
	if err != nil {
		return Plan{}, err
	}

	available := in.Idle
	for _, w := range withdrawals {
		available = available.Add(w.Amount)
	}
	var funded []Action
	for _, d := range deposits {
		amount := sdkmath.MinInt(d.Amount, available)
		if !amount.IsPositive() {
			planLogger.Debug().Str("protocol", string(d.Protocol)).Msg("No idle assets left to fund deposit")
			continue
		}
		available = available.Sub(amount)
		funded = append(funded, Action{Protocol: d.Protocol, Kind: Deploy, Amount: amount})
	}

	plan := Plan{Withdrawals: withdrawals, Deposits: funded}
	planLogger.Info().
		Int("withdrawals", len(plan.Withdrawals)).
		Int("deposits", len(plan.Deposits)).
		Msg("Rebalance plan generated")
	return plan, nil
}

func validateInputs(in Input, params Params) error {
	if params.ThresholdBps > bpsDenominator || params.MaxWithdrawBps > bpsDenominator {
		return fmt.Errorf("%w: basis points must be at most %d", ErrInvalidParams, bpsDenominator)
	}
	for _, amount := range []sdkmath.Int{in.Idle, in.TotalAssets} {
		if amount.IsNil() || amount.IsNegative() {
			return fmt.Errorf("%w: idle and total assets must be non-negative", ErrInvalidInput)
		}
	}
	for _, set := range []map[types.ProtocolName]sdkmath.Int{in.Declared, in.Deployed} {
		for name, amount := range set {
			if amount.IsNil() || amount.IsNegative() {
				return fmt.Errorf("%w: %s amount must be non-negative", ErrInvalidInput, name)
			}
		}
	}
	return nil
}

func amountOf(set map[types.ProtocolName]sdkmath.Int, name types.ProtocolName) sdkmath.Int {
	if amount, ok := set[name]; ok {
		return amount
	}
	return sdkmath.ZeroInt()
}

// analyzeRequiredChanges splits adapter protocols into withdrawals and unfunded deposits.
func analyzeRequiredChanges(in Input, params Params, log zerolog.Logger) ([]Action, []Action) {
	var withdrawals, deposits []Action
	for _, name := range []types.ProtocolName{types.ProtocolAave, types.ProtocolCompound} {
		target := amountOf(in.Declared, name)
		current := amountOf(in.Deployed, name)
		delta := target.Sub(current)

		log.Debug().
			Str("protocol", string(name)).
			Str("target", target.String()).
			Str("current", current.String()).
			Str("delta", delta.String()).
			Msg("Protocol rebalancing analysis")

		if delta.IsZero() {
			continue
		}
		// full exits ignore the threshold
		if !target.IsZero() && delta.Abs().MulRaw(bpsDenominator).LT(target.MulRaw(int64(params.ThresholdBps))) {
			continue
		}
		if delta.IsNegative() {
			withdrawals = append(withdrawals, Action{Protocol: name, Kind: Withdraw, Amount: delta.Neg()})
		} else {
			deposits = append(deposits, Action{Protocol: name, Kind: Deploy, Amount: delta})
		}
	}
	return withdrawals, deposits
}

// applyWithdrawalLimit scales withdrawals down pro rata when they exceed the per-plan cap.
func applyWithdrawalLimit(withdrawals []Action, totalAssets sdkmath.Int, params Params, log zerolog.Logger) ([]Action, error) {
	if params.MaxWithdrawBps == 0 || len(withdrawals) == 0 {
		return withdrawals, nil
	}

	maxWithdrawal := totalAssets.MulRaw(int64(params.MaxWithdrawBps)).QuoRaw(bpsDenominator)
	total := sdkmath.ZeroInt()
	for _, w := range withdrawals {
		total = total.Add(w.Amount)
	}
	if total.LTE(maxWithdrawal) {
		return withdrawals, nil
	}

	log.Warn().
		Str("totalWithdrawal", total.String()).
		Str("maxWithdrawal", maxWithdrawal.String()).
		Msg("Withdrawal amount exceeds limit, scaling down")

	capped := make([]Action, 0, len(withdrawals))
	for _, w := range withdrawals {
		amount, err := fixedpoint.MulDiv(w.Amount, maxWithdrawal, total, fixedpoint.Floor)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		if amount.IsPositive() {
			capped = append(capped, Action{Protocol: w.Protocol, Kind: Withdraw, Amount: amount})
		}
	}
	return capped, nil
}

// Execute runs the plan as caller, withdrawals first, stopping at the first failure.
// It returns how many actions succeeded.
func Execute(ctx context.Context, exec Executor, caller sdk.AccAddress, plan Plan) (int, error) {
	done := 0
	for _, action := range plan.Actions() {
		if err := execute(ctx, exec, caller, action); err != nil {
			return done, fmt.Errorf("%s %s %s: %w", action.Kind, action.Amount, action.Protocol, err)
		}
		done++
	}
	return done, nil
}

func execute(ctx context.Context, exec Executor, caller sdk.AccAddress, action Action) error {
	switch {
	case action.Protocol == types.ProtocolAave && action.Kind == Deploy:
		return exec.DeployToAave(ctx, caller, action.Amount)
	case action.Protocol == types.ProtocolAave && action.Kind == Withdraw:
		return exec.WithdrawFromAave(ctx, caller, action.Amount)
	case action.Protocol == types.ProtocolCompound && action.Kind == Deploy:
		return exec.DeployToCompound(ctx, caller, action.Amount)
	case action.Protocol == types.ProtocolCompound && action.Kind == Withdraw:
		return exec.WithdrawFromCompound(ctx, caller, action.Amount)
	default:
		return fmt.Errorf("%w: unsupported action %s on %s", ErrInvalidInput, action.Kind, action.Protocol)
	}
}
