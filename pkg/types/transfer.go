package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"xchain-multisend/pkg/network"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than 0")
	ErrNoRecipients      = errors.New("at least one recipient is required")
)

// Send is one (recipient, amount) pair of a multisend. Field names match the
// contract's Send struct so the ABI encoder can map them.
type Send struct {
	To     common.Address
	Amount *big.Int
}

// TransferIntent is everything needed to submit one multisend. It is built
// right before submission and discarded afterwards.
type TransferIntent struct {
	Source      network.Network
	Destination network.Network
	Amount      *big.Int // per recipient, in wei
	Recipients  []common.Address
}

// NewTransferIntent snapshots the recipient list
func NewTransferIntent(dir network.Direction, amount *big.Int, recipients []common.Address) *TransferIntent {
	snapshot := make([]common.Address, len(recipients))
	copy(snapshot, recipients)

	var amt *big.Int
	if amount != nil {
		amt = new(big.Int).Set(amount)
	}

	return &TransferIntent{
		Source:      dir.Source,
		Destination: dir.Destination,
		Amount:      amt,
		Recipients:  snapshot,
	}
}

// Validate checks the intent can be submitted
func (ti *TransferIntent) Validate() error {
	if ti.Source.ChainID == ti.Destination.ChainID {
		return network.ErrSameNetwork
	}
	if ti.Amount == nil || ti.Amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	if len(ti.Recipients) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Sends returns the per-recipient payouts in recipient order
func (ti *TransferIntent) Sends() []Send {
	sends := make([]Send, len(ti.Recipients))
	for i, r := range ti.Recipients {
		sends[i] = Send{To: r, Amount: new(big.Int).Set(ti.Amount)}
	}
	return sends
}

// Total is the value attached to the transaction
func (ti *TransferIntent) Total() *big.Int {
	if ti.Amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(ti.Amount, big.NewInt(int64(len(ti.Recipients))))
}

// DestinationChainID is the chain id argument of the contract call
func (ti *TransferIntent) DestinationChainID() *big.Int {
	return new(big.Int).SetUint64(ti.Destination.ChainID)
}
