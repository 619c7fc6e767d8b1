package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"xchain-multisend/pkg/network"
)

// TxState is the lifecycle position of a submitted transaction
type TxState string

const (
	TxUnknown  TxState = "unknown"  // node has never seen it
	TxPending  TxState = "pending"  // in the mempool
	TxSuccess  TxState = "success"  // mined, status 1
	TxReverted TxState = "reverted" // mined, status 0
)

// TxStatus is what the source chain knows about a multisend transaction
type TxStatus struct {
	Hash        common.Hash     `json:"hash"`
	Network     string          `json:"network"`
	State       TxState         `json:"state"`
	To          *common.Address `json:"to,omitempty"`
	Value       *big.Int        `json:"value,omitempty"`
	Nonce       uint64          `json:"nonce"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	GasUsed     uint64          `json:"gas_used,omitempty"`
}

// IsFinal reports whether polling the status can stop
func (s *TxStatus) IsFinal() bool {
	return s.State == TxSuccess || s.State == TxReverted
}

// TransactionStatus looks up a transaction and its receipt on a network
func (s *Submitter) TransactionStatus(ctx context.Context, n network.Network, hash common.Hash) (*TxStatus, error) {
	client, err := s.pool.Get(ctx, n)
	if err != nil {
		return nil, err
	}

	status := &TxStatus{Hash: hash, Network: n.Name, State: TxUnknown}

	tx, isPending, err := client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	status.To = tx.To()
	status.Value = tx.Value()
	status.Nonce = tx.Nonce()

	if isPending {
		status.State = TxPending
		return status, nil
	}

	receipt, err := client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		status.State = TxPending
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	status.BlockNumber = receipt.BlockNumber.Uint64()
	status.GasUsed = receipt.GasUsed
	status.State = ReceiptState(receipt)
	return status, nil
}

// ReceiptState maps a mined receipt to its final state
func ReceiptState(receipt *ethtypes.Receipt) TxState {
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return TxReverted
	}
	return TxSuccess
}
