package submit

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/chain"
	"xchain-multisend/pkg/contract"
	"xchain-multisend/pkg/logging"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrChainMismatch       = errors.New("RPC endpoint serves a different chain")
	ErrNoContract          = errors.New("no multisend contract deployed")
	ErrReverted            = errors.New("transaction reverted")
)

// gasBufferPercent is added on top of the node's gas estimate
const gasBufferPercent = 20

// Options configures a Submitter
type Options struct {
	ContractAddress common.Address
	PrivateKey      *ecdsa.PrivateKey
	GasLimit        uint64   // 0 means estimate
	GasPrice        *big.Int // nil means ask the node
}

// Submitter signs and broadcasts multisend transactions on the source chain
// of a transfer intent.
type Submitter struct {
	pool   *chain.Pool
	opts   Options
	from   common.Address
	logger *zap.Logger
}

// Result describes a broadcast multisend transaction
type Result struct {
	TxHash   common.Hash    `json:"tx_hash"`
	RelayID  common.Hash    `json:"relay_id"`
	From     common.Address `json:"from"`
	Value    *big.Int       `json:"value"`
	Nonce    uint64         `json:"nonce"`
	GasLimit uint64         `json:"gas_limit"`
	GasPrice *big.Int       `json:"gas_price"`
	ChainID  uint64         `json:"chain_id"`
}

// NewSubmitter creates a submitter signing with opts.PrivateKey
func NewSubmitter(pool *chain.Pool, opts Options, logger *zap.Logger) (*Submitter, error) {
	if opts.PrivateKey == nil {
		return nil, fmt.Errorf("private key not configured")
	}
	if opts.ContractAddress == (common.Address{}) {
		return nil, fmt.Errorf("contract address not configured")
	}

	return &Submitter{
		pool:   pool,
		opts:   opts,
		from:   crypto.PubkeyToAddress(opts.PrivateKey.PublicKey),
		logger: logging.OrNop(logger),
	}, nil
}

// From is the account paying for the multisend
func (s *Submitter) From() common.Address {
	return s.from
}

// Submit sends one multisend transaction for the intent. Contract reverts
// are decoded into the contract's declared errors; everything else from the
// node is returned wrapped but otherwise untouched.
func (s *Submitter) Submit(ctx context.Context, intent *types.TransferIntent) (*Result, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	client, err := s.pool.Get(ctx, intent.Source)
	if err != nil {
		return nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID.Uint64() != intent.Source.ChainID {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrChainMismatch, intent.Source.ChainID, chainID)
	}

	data, err := contract.PackSend(intent.DestinationChainID(), intent.Sends())
	if err != nil {
		return nil, err
	}

	value := intent.Total()

	balance, err := client.BalanceAt(ctx, s.from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: have %s ETH, need %s ETH", ErrInsufficientBalance,
			amount.FormatEther(balance), amount.FormatEther(value))
	}

	msg := ethereum.CallMsg{
		From:  s.from,
		To:    &s.opts.ContractAddress,
		Value: value,
		Data:  data,
	}

	// Dry run first: surfaces contract reverts and yields the relay id
	out, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("multisend call would fail: %w", contract.DecodeRevert(err))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w at %s on %s", ErrNoContract, s.opts.ContractAddress.Hex(), intent.Source.Name)
	}
	relayID, err := contract.UnpackSendResult(out)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.gasPrice(ctx, client)
	if err != nil {
		return nil, err
	}

	gasLimit, err := s.gasLimit(ctx, client, msg)
	if err != nil {
		return nil, err
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &s.opts.ContractAddress,
		Value:    value,
		Data:     data,
	})

	signer := ethtypes.LatestSignerForChainID(chainID)
	signedTx, err := ethtypes.SignTx(tx, signer, s.opts.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	s.logger.Debug("Sending multisend transaction",
		zap.String("source", intent.Source.Name),
		zap.String("destination", intent.Destination.Name),
		zap.Int("recipients", len(intent.Recipients)),
		zap.Stringer("value", value),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit),
	)

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", contract.DecodeRevert(err))
	}

	s.logger.Info("Multisend transaction sent",
		zap.Stringer("tx", signedTx.Hash()),
		zap.Stringer("relay_id", relayID),
	)

	return &Result{
		TxHash:   signedTx.Hash(),
		RelayID:  relayID,
		From:     s.from,
		Value:    value,
		Nonce:    nonce,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		ChainID:  intent.Source.ChainID,
	}, nil
}

// WaitForReceipt polls the source chain every interval until the receipt of
// hash is available or ctx is done. A mined but failed transaction returns
// the receipt together with ErrReverted.
func (s *Submitter) WaitForReceipt(ctx context.Context, n network.Network, hash common.Hash, interval time.Duration) (*ethtypes.Receipt, error) {
	client, err := s.pool.Get(ctx, n)
	if err != nil {
		return nil, err
	}

	operation := func() (*ethtypes.Receipt, error) {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil && receipt == nil {
			err = ethereum.NotFound
		}
		return receipt, err
	}
	notify := func(err error, next time.Duration) {
		if !errors.Is(err, ethereum.NotFound) {
			s.logger.Warn("Failed to fetch receipt, retrying",
				zap.Stringer("tx", hash),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}
	}

	receipt, err := backoff.RetryNotifyWithData(operation,
		backoff.WithContext(backoff.NewConstantBackOff(interval), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return receipt, nil
}

func (s *Submitter) gasPrice(ctx context.Context, client chain.Client) (*big.Int, error) {
	if s.opts.GasPrice != nil {
		return new(big.Int).Set(s.opts.GasPrice), nil
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (s *Submitter) gasLimit(ctx context.Context, client chain.Client, msg ethereum.CallMsg) (uint64, error) {
	if s.opts.GasLimit != 0 {
		return s.opts.GasLimit, nil
	}

	estimated, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", contract.DecodeRevert(err))
	}
	return estimated * (100 + gasBufferPercent) / 100, nil
}
