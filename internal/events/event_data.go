package events

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// EventType names a record emitted by a vault.
type EventType string

const (
	Deposit                   EventType = "Deposit"
	Withdraw                  EventType = "Withdraw"
	ProtocolAllocationChanged EventType = "ProtocolAllocationChanged"
	ProtocolDeployed          EventType = "ProtocolDeployed"
	ProtocolWithdrawn         EventType = "ProtocolWithdrawn"
	Transfer                  EventType = "Transfer"
	Approval                  EventType = "Approval"
	Paused                    EventType = "Paused"
	Unpaused                  EventType = "Unpaused"
	OwnershipTransferred      EventType = "OwnershipTransferred"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// DepositData is emitted by deposit and mint.
type DepositData struct {
	Sender   sdk.AccAddress `json:"sender"`
	Receiver sdk.AccAddress `json:"receiver"`
	Assets   sdkmath.Int    `json:"assets"`
	Shares   sdkmath.Int    `json:"shares"`
}

// EventType returns the event type for DepositData
func (d *DepositData) EventType() EventType {
	return Deposit
}

// WithdrawData is emitted by withdraw and redeem.
type WithdrawData struct {
	Sender   sdk.AccAddress `json:"sender"`
	Receiver sdk.AccAddress `json:"receiver"`
	Owner    sdk.AccAddress `json:"owner"`
	Assets   sdkmath.Int    `json:"assets"`
	Shares   sdkmath.Int    `json:"shares"`
}

// EventType returns the event type for WithdrawData
func (d *WithdrawData) EventType() EventType {
	return Withdraw
}

// ProtocolAllocationChangedData records a change of declared allocation.
type ProtocolAllocationChangedData struct {
	Protocol  string      `json:"protocol"`
	OldAmount sdkmath.Int `json:"old_amount"`
	NewAmount sdkmath.Int `json:"new_amount"`
}

// EventType returns the event type for ProtocolAllocationChangedData
func (d *ProtocolAllocationChangedData) EventType() EventType {
	return ProtocolAllocationChanged
}

// ProtocolDeployedData records idle funds moved into a protocol.
type ProtocolDeployedData struct {
	Protocol string      `json:"protocol"`
	Amount   sdkmath.Int `json:"amount"`
}

// EventType returns the event type for ProtocolDeployedData
func (d *ProtocolDeployedData) EventType() EventType {
	return ProtocolDeployed
}

// ProtocolWithdrawnData records funds recalled from a protocol.
type ProtocolWithdrawnData struct {
	Protocol string      `json:"protocol"`
	Amount   sdkmath.Int `json:"amount"`
}

// EventType returns the event type for ProtocolWithdrawnData
func (d *ProtocolWithdrawnData) EventType() EventType {
	return ProtocolWithdrawn
}

// TransferData records a share movement. Mints have an empty From, burns an empty To.
type TransferData struct {
	From   sdk.AccAddress `json:"from"`
	To     sdk.AccAddress `json:"to"`
	Amount sdkmath.Int    `json:"amount"`
}

// EventType returns the event type for TransferData
func (d *TransferData) EventType() EventType {
	return Transfer
}

// ApprovalData records a share allowance update.
type ApprovalData struct {
	Owner   sdk.AccAddress `json:"owner"`
	Spender sdk.AccAddress `json:"spender"`
	Amount  sdkmath.Int    `json:"amount"`
}

// EventType returns the event type for ApprovalData
func (d *ApprovalData) EventType() EventType {
	return Approval
}

// PausedData contains data for Paused events
type PausedData struct {
	Account sdk.AccAddress `json:"account"`
}

// EventType returns the event type for PausedData
func (d *PausedData) EventType() EventType {
	return Paused
}

// UnpausedData contains data for Unpaused events
type UnpausedData struct {
	Account sdk.AccAddress `json:"account"`
}

// EventType returns the event type for UnpausedData
func (d *UnpausedData) EventType() EventType {
	return Unpaused
}

// OwnershipTransferredData contains data for OwnershipTransferred events
type OwnershipTransferredData struct {
	PreviousOwner sdk.AccAddress `json:"previous_owner"`
	NewOwner      sdk.AccAddress `json:"new_owner"`
}

// EventType returns the event type for OwnershipTransferredData
func (d *OwnershipTransferredData) EventType() EventType {
	return OwnershipTransferred
}
