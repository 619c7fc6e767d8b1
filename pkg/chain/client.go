package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"xchain-multisend/pkg/logging"
	"xchain-multisend/pkg/network"
)

// Client is the subset of ethclient.Client used by this tool. It exists so
// that submission and balance polling can run against a mock in tests.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	Close()
}

var _ Client = (*ethclient.Client)(nil)

// Dial connects to the RPC endpoint of a network
func Dial(ctx context.Context, n network.Network) (Client, error) {
	if n.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", n.Name)
	}

	client, err := ethclient.DialContext(ctx, n.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint of %s: %w", n.Name, err)
	}
	return client, nil
}

// Pool keeps one client per chain id. Clients are dialed on first use.
type Pool struct {
	mu      sync.Mutex
	clients map[uint64]Client
	logger  *zap.Logger
}

func NewPool(logger *zap.Logger) *Pool {
	return &Pool{
		clients: make(map[uint64]Client),
		logger:  logging.OrNop(logger),
	}
}

// Register installs a client for a chain id, replacing any existing one
func (p *Pool) Register(chainID uint64, c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.clients[chainID]; ok && old != c {
		old.Close()
	}
	p.clients[chainID] = c
}

// Get returns the client of a network, dialing it if needed
func (p *Pool) Get(ctx context.Context, n network.Network) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[n.ChainID]; ok {
		return c, nil
	}

	p.logger.Debug("Dialing network",
		zap.String("network", n.Name),
		zap.Uint64("chain_id", n.ChainID),
		zap.String("rpc_url", n.RPCURL),
	)
	c, err := Dial(ctx, n)
	if err != nil {
		return nil, err
	}
	p.clients[n.ChainID] = c
	return c, nil
}

// Close closes every client in the pool
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
