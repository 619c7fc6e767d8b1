package balance

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xchain-multisend/pkg/chain"
	"xchain-multisend/pkg/logging"
	"xchain-multisend/pkg/network"
)

// DefaultInterval matches the refresh rate of the balance display
const DefaultInterval = time.Second

// Cell is the balance of one account on one network. Err is set when the
// lookup failed; the value is then nil.
type Cell struct {
	Value *big.Int
	Err   error
}

// Table holds balances per account per network
type Table struct {
	Accounts  []common.Address
	Networks  []network.Network
	FetchedAt time.Time

	cells map[common.Address]map[uint64]Cell
}

// Get returns the cell for an account on a chain
func (t *Table) Get(account common.Address, chainID uint64) Cell {
	return t.cells[account][chainID]
}

// Poller reads native balances for a set of accounts across networks
type Poller struct {
	pool     *chain.Pool
	networks []network.Network
	logger   *zap.Logger
}

func NewPoller(pool *chain.Pool, networks []network.Network, logger *zap.Logger) *Poller {
	return &Poller{
		pool:     pool,
		networks: networks,
		logger:   logging.OrNop(logger),
	}
}

// Fetch reads every account's balance on every network, one goroutine per
// network. Lookup failures are stored in the affected cells and never fail
// the whole fetch; only ctx cancellation does.
func (p *Poller) Fetch(ctx context.Context, accounts []common.Address) (*Table, error) {
	results := make([]map[common.Address]Cell, len(p.networks))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, n := range p.networks {
		i, n := i, n
		eg.Go(func() error {
			results[i] = p.fetchNetwork(egCtx, n, accounts)
			return egCtx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	table := &Table{
		Accounts:  accounts,
		Networks:  p.networks,
		FetchedAt: time.Now(),
		cells:     make(map[common.Address]map[uint64]Cell, len(accounts)),
	}
	for _, a := range accounts {
		table.cells[a] = make(map[uint64]Cell, len(p.networks))
	}
	for i, n := range p.networks {
		for a, c := range results[i] {
			table.cells[a][n.ChainID] = c
		}
	}
	return table, nil
}

func (p *Poller) fetchNetwork(ctx context.Context, n network.Network, accounts []common.Address) map[common.Address]Cell {
	cells := make(map[common.Address]Cell, len(accounts))

	client, err := p.pool.Get(ctx, n)
	if err != nil {
		p.logger.Warn("Balance lookup skipped", zap.String("network", n.Name), zap.Error(err))
		for _, a := range accounts {
			cells[a] = Cell{Err: err}
		}
		return cells
	}

	for _, a := range accounts {
		value, err := client.BalanceAt(ctx, a, nil)
		if err != nil {
			p.logger.Debug("Balance lookup failed",
				zap.String("network", n.Name),
				zap.Stringer("account", a),
				zap.Error(err),
			)
			cells[a] = Cell{Err: err}
			continue
		}
		cells[a] = Cell{Value: value}
	}
	return cells
}

// Watch fetches balances immediately and then every interval until ctx is
// done. accounts is re-evaluated before every fetch so a changing recipient
// list is picked up.
func (p *Poller) Watch(ctx context.Context, interval time.Duration, accounts func() []common.Address, fn func(*Table)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		table, err := p.Fetch(ctx, accounts())
		if err != nil {
			return err
		}
		fn(table)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Accounts lists dev first and then the recipients, without duplicates
func Accounts(dev common.Address, recipients []common.Address) []common.Address {
	out := make([]common.Address, 0, len(recipients)+1)
	seen := make(map[common.Address]bool, len(recipients)+1)
	for _, a := range append([]common.Address{dev}, recipients...) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// ShortAddress renders an address as 0x1234...abcd
func ShortAddress(a common.Address) string {
	hex := a.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
