package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownNetwork    = errors.New("unknown network")
	ErrSameNetwork       = errors.New("source and destination networks must differ")
	ErrNotEnoughNetworks = errors.New("at least two networks are required")
)

// Network is a chain the multisend contract is deployed on
type Network struct {
	ChainID     uint64 `json:"chain_id" mapstructure:"chain_id"`
	Name        string `json:"name" mapstructure:"name"`
	Identifier  string `json:"identifier" mapstructure:"identifier"` // short name used on the command line, e.g. "l2a"
	RPCURL      string `json:"rpc_url" mapstructure:"rpc_url"`
	ExplorerURL string `json:"explorer_url,omitempty" mapstructure:"explorer_url"`
}

func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name, n.ChainID)
}

// Registry holds the configured networks in configuration order
type Registry struct {
	networks []Network
}

// NewRegistry validates the networks and builds a registry
func NewRegistry(networks []Network) (*Registry, error) {
	if len(networks) < 2 {
		return nil, ErrNotEnoughNetworks
	}

	seen := make(map[uint64]bool)
	for _, n := range networks {
		if n.ChainID == 0 {
			return nil, fmt.Errorf("network %q has no chain id", n.Name)
		}
		if seen[n.ChainID] {
			return nil, fmt.Errorf("duplicate chain id %d", n.ChainID)
		}
		seen[n.ChainID] = true
	}

	out := make([]Network, len(networks))
	copy(out, networks)
	return &Registry{networks: out}, nil
}

// All returns the networks in configuration order
func (r *Registry) All() []Network {
	out := make([]Network, len(r.networks))
	copy(out, r.networks)
	return out
}

// Lookup finds a network by chain id, identifier or name (case-insensitive)
func (r *Registry) Lookup(key string) (Network, error) {
	key = strings.TrimSpace(key)
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		if n, ok := r.ByChainID(id); ok {
			return n, nil
		}
	}
	for _, n := range r.networks {
		if strings.EqualFold(n.Identifier, key) || strings.EqualFold(n.Name, key) {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, key)
}

func (r *Registry) ByChainID(id uint64) (Network, bool) {
	for _, n := range r.networks {
		if n.ChainID == id {
			return n, true
		}
	}
	return Network{}, false
}

// Others returns every network except the one with the given chain id
func (r *Registry) Others(id uint64) []Network {
	out := make([]Network, 0, len(r.networks))
	for _, n := range r.networks {
		if n.ChainID != id {
			out = append(out, n)
		}
	}
	return out
}
