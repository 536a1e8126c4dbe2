package liquidity

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// ContractCaller executes a read-only contract call (eth_call).
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client is a ContractCaller bound to one node connection
type Client interface {
	ContractCaller
	Close()
}

// DialFunc opens a node connection for an RPC url
type DialFunc func(ctx context.Context, rpcURL string) (Client, error)

// DialEthClient dials a JSON-RPC node with go-ethereum's client
func DialEthClient(ctx context.Context, rpcURL string) (Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Validator checks requests before they reach the node. It is implemented by
// the validator dispatcher.
type Validator interface {
	ValidateInitPool(in InitInput, state *pool.State) error
	ValidateAddLiquidity(in AddLiquidityInput, state *pool.State) error
	ValidateRemoveLiquidity(in RemoveLiquidityInput, state *pool.State) error
	ValidateRemoveLiquidityRecovery(in RemoveRecoveryInput, state *pool.State) error
	ValidateCreatePool(in CreatePoolInput) error
	ValidateAddLiquidityBoosted(in AddBoostedInput, state *pool.State) error
	ValidateBuildCallWithPermit2(protocolVersion int) error
}

// Service runs the query and build-call stages of every liquidity operation
type Service struct {
	registry  *addresses.Registry
	validator Validator
	dial      DialFunc
	logger    *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithDialer replaces the node dialer (tests inject a MockCaller)
func WithDialer(dial DialFunc) Option {
	return func(s *Service) {
		s.dial = dial
	}
}

// NewService creates a liquidity service
func NewService(registry *addresses.Registry, validator Validator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		validator: validator,
		dial:      DialEthClient,
		logger:    logger.With("component", "Liquidity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// call packs one method, runs it as a single eth_call against the router and
// unpacks the positional results. No retries: any failure is a Query error.
func (s *Service) call(ctx context.Context, op Operation, params ChainParams, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	client, err := s.dial(ctx, params.RPCURL)
	if err != nil {
		return nil, sdkerr.Query(string(op), fmt.Errorf("dial node: %w", err))
	}
	defer client.Close()

	s.logger.Debug("simulating",
		"operation", op,
		"chainId", params.ChainID,
		"to", to.Hex(),
		"method", method,
		"block", params.Block)

	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, params.Block)
	if err != nil {
		return nil, sdkerr.Query(string(op), fmt.Errorf("%s: %w", method, err))
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, sdkerr.Query(string(op), fmt.Errorf("unpack %s: %w", method, err))
	}
	return out, nil
}

// requireV3 gates router operations: the pipeline only targets v3 routers
func requireV3(op Operation, state *pool.State) error {
	if state.ProtocolVersion != consts.ProtocolV3 {
		return sdkerr.ProtocolVersion(string(op), state.ProtocolVersion, "router operations are supported on Balancer v3 only")
	}
	return nil
}

// contractAddress resolves a router address for a chain
func (s *Service) contractAddress(op Operation, chainID consts.ChainID, name string) (common.Address, error) {
	addr, err := s.registry.Lookup(chainID, name)
	if err != nil {
		return common.Address{}, sdkerr.InputValidation(string(op), fmt.Sprintf("%s not available", name), err.Error())
	}
	return addr, nil
}

func newQueryOutput(op Operation, params ChainParams, state *pool.State, to common.Address) *QueryOutput {
	return &QueryOutput{
		Operation:       op,
		ChainID:         params.ChainID,
		ProtocolVersion: state.ProtocolVersion,
		Block:           params.Block,
		PoolAddress:     state.Address,
		PoolType:        state.Type,
		To:              to,
		TokenInIndex:    -1,
		TokenOutIndex:   -1,
		Tokens:          state.Addresses(),
	}
}

// poolOrderedAmounts spreads caller amounts over the pool token order,
// filling missing tokens with zero
func poolOrderedAmounts(state *pool.State, amounts []pool.TokenAmount) ([]pool.TokenAmount, []*big.Int) {
	tagged := make([]pool.TokenAmount, len(state.Tokens))
	raw := make([]*big.Int, len(state.Tokens))
	for i, t := range state.Tokens {
		tagged[i] = pool.NewTokenAmount(t.Ref(), nil)
		raw[i] = new(big.Int)
	}
	for _, a := range amounts {
		if i, ok := state.TokenIndex(a.Token.Address); ok {
			tagged[i] = pool.NewTokenAmount(state.Tokens[i].Ref(), a.Amount)
			raw[i] = new(big.Int).Set(a.Amount)
		}
	}
	return tagged, raw
}

// tagAmounts re-tags positional router results with the pool token order
func tagAmounts(op Operation, refs []pool.TokenRef, raw []*big.Int) ([]pool.TokenAmount, error) {
	if len(raw) != len(refs) {
		return nil, sdkerr.Query(string(op), fmt.Errorf("router returned %d amounts for %d tokens", len(raw), len(refs)))
	}
	out := make([]pool.TokenAmount, len(refs))
	for i, ref := range refs {
		out[i] = pool.NewTokenAmount(ref, raw[i])
	}
	return out, nil
}

func userData(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
