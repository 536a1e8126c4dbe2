package addresses

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
)

// ErrNotConfigured is returned when a contract has no address on a chain
var ErrNotConfigured = errors.New("contract not configured")

// Contract names, also used as config keys
const (
	Vault                          = "vault"
	Router                         = "router"
	BatchRouter                    = "batchRouter"
	CompositeLiquidityRouter       = "compositeLiquidityRouter"
	CompositeLiquidityRouterNested = "compositeLiquidityRouterNested"
	BufferRouter                   = "bufferRouter"
	Permit2                        = "permit2"
	WeightedPoolFactory            = "weightedPoolFactory"
	StablePoolFactory              = "stablePoolFactory"
	WrappedNative                  = "wrappedNative"
)

// Contracts holds the deployment addresses of one chain
type Contracts struct {
	Vault                          common.Address
	Router                         common.Address
	BatchRouter                    common.Address
	CompositeLiquidityRouter       common.Address
	CompositeLiquidityRouterNested common.Address
	BufferRouter                   common.Address
	Permit2                        common.Address
	WeightedPoolFactory            common.Address
	StablePoolFactory              common.Address
	WrappedNative                  common.Address
}

func (c *Contracts) field(name string) (*common.Address, bool) {
	switch name {
	case Vault:
		return &c.Vault, true
	case Router:
		return &c.Router, true
	case BatchRouter:
		return &c.BatchRouter, true
	case CompositeLiquidityRouter:
		return &c.CompositeLiquidityRouter, true
	case CompositeLiquidityRouterNested:
		return &c.CompositeLiquidityRouterNested, true
	case BufferRouter:
		return &c.BufferRouter, true
	case Permit2:
		return &c.Permit2, true
	case WeightedPoolFactory:
		return &c.WeightedPoolFactory, true
	case StablePoolFactory:
		return &c.StablePoolFactory, true
	case WrappedNative:
		return &c.WrappedNative, true
	}
	return nil, false
}

// Registry maps chain ids to contract deployments. It is built once and
// only read afterwards.
type Registry struct {
	chains map[consts.ChainID]*Contracts // chainId -> deployment
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		chains: make(map[consts.ChainID]*Contracts),
	}
}

// DefaultRegistry creates a registry holding the known deployments
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for chainID, c := range defaultDeployments {
		c := c
		r.chains[chainID] = &c
	}
	return r
}

// SetChain replaces the deployment of a chain
func (r *Registry) SetChain(chainID consts.ChainID, c Contracts) {
	r.chains[chainID] = &c
}

// Override sets individual contract addresses by config key, creating the
// chain entry if needed. Unknown keys and malformed addresses are rejected.
func (r *Registry) Override(chainID consts.ChainID, overrides map[string]string) error {
	c, ok := r.chains[chainID]
	if !ok {
		c = &Contracts{}
	}
	updated := *c
	for name, hex := range overrides {
		if hex == "" {
			continue
		}
		f, ok := updated.field(name)
		if !ok {
			return fmt.Errorf("unknown contract %q for chain %d", name, chainID)
		}
		if !common.IsHexAddress(hex) {
			return fmt.Errorf("invalid %s address %q for chain %d", name, hex, chainID)
		}
		*f = common.HexToAddress(hex)
	}
	r.chains[chainID] = &updated
	return nil
}

// Chain returns a copy of the deployment of a chain
func (r *Registry) Chain(chainID consts.ChainID) (Contracts, bool) {
	c, ok := r.chains[chainID]
	if !ok {
		return Contracts{}, false
	}
	return *c, true
}

// HasChain checks if a deployment is configured for a chain
func (r *Registry) HasChain(chainID consts.ChainID) bool {
	_, ok := r.chains[chainID]
	return ok
}

// ChainIDs returns all configured chain ids in ascending order
func (r *Registry) ChainIDs() []consts.ChainID {
	ids := make([]consts.ChainID, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Lookup returns the address of the named contract on a chain
func (r *Registry) Lookup(chainID consts.ChainID, name string) (common.Address, error) {
	c, ok := r.chains[chainID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no deployment for chain %d", ErrNotConfigured, chainID)
	}
	f, ok := c.field(name)
	if !ok {
		return common.Address{}, fmt.Errorf("unknown contract %q", name)
	}
	if *f == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s on chain %d", ErrNotConfigured, name, chainID)
	}
	return *f, nil
}

// Router returns the v3 Router address
func (r *Registry) Router(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, Router)
}

// BatchRouter returns the v3 BatchRouter address
func (r *Registry) BatchRouter(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, BatchRouter)
}

// CompositeLiquidityRouter returns the router for ERC4626 (boosted) pools
func (r *Registry) CompositeLiquidityRouter(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, CompositeLiquidityRouter)
}

// CompositeLiquidityRouterNested returns the router for nested pools
func (r *Registry) CompositeLiquidityRouterNested(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, CompositeLiquidityRouterNested)
}

// BufferRouter returns the ERC4626 buffer router address
func (r *Registry) BufferRouter(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, BufferRouter)
}

// Permit2 returns the Permit2 AllowanceTransfer address
func (r *Registry) Permit2(chainID consts.ChainID) (common.Address, error) {
	return r.Lookup(chainID, Permit2)
}

// WrappedNativeToken returns the wrapped native token of a chain
func (r *Registry) WrappedNativeToken(chainID consts.ChainID) (common.Address, bool) {
	addr, err := r.Lookup(chainID, WrappedNative)
	return addr, err == nil
}
