package liquidity

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// Buffer outputs list amounts as [underlying, wrapped], the BufferRouter
// argument order. Shares are tagged with the wrapped token they belong to.

// QueryInitBuffer simulates seeding an ERC4626 buffer
func (s *Service) QueryInitBuffer(ctx context.Context, in InitBufferInput) (*QueryOutput, error) {
	if err := validateBufferChain(in.ChainParams); err != nil {
		return nil, err
	}
	if in.WrappedAmountIn.Token.Address != in.WrappedToken {
		return nil, sdkerr.InputValidation(string(OpInitBuffer), "wrapped amount must be denominated in the wrapped token")
	}
	if in.UnderlyingAmountIn.Token.Address == in.WrappedToken {
		return nil, sdkerr.InputValidation(string(OpInitBuffer), "underlying amount must not be denominated in the wrapped token")
	}
	for _, a := range []pool.TokenAmount{in.UnderlyingAmountIn, in.WrappedAmountIn} {
		if err := pool.CheckUint256(a.Amount); err != nil {
			return nil, sdkerr.InputValidation(string(OpInitBuffer), "invalid amount", err.Error())
		}
	}

	router, err := s.contractAddress(OpInitBuffer, in.ChainID, addresses.BufferRouter)
	if err != nil {
		return nil, err
	}
	res, err := s.call(ctx, OpInitBuffer, in.ChainParams, router, bufferRouterABI, "queryInitializeBuffer",
		in.WrappedToken, in.UnderlyingAmountIn.Amount, in.WrappedAmountIn.Amount)
	if err != nil {
		return nil, err
	}

	out := newBufferOutput(OpInitBuffer, in.ChainParams, router)
	out.AmountsIn = []pool.TokenAmount{
		pool.NewTokenAmount(in.UnderlyingAmountIn.Token, in.UnderlyingAmountIn.Amount),
		pool.NewTokenAmount(in.WrappedAmountIn.Token, in.WrappedAmountIn.Amount),
	}
	out.Tokens = append(out.Tokens, in.UnderlyingAmountIn.Token.Address, in.WrappedToken)
	out.BptOut = pool.NewTokenAmount(in.WrappedAmountIn.Token, res[0].(*big.Int))
	out.PoolAddress = in.WrappedToken
	return out, nil
}

// QueryAddLiquidityBuffer simulates minting an exact amount of buffer shares
func (s *Service) QueryAddLiquidityBuffer(ctx context.Context, in AddBufferInput) (*QueryOutput, error) {
	if err := validateBufferChain(in.ChainParams); err != nil {
		return nil, err
	}
	if in.ExactSharesToIssue == nil || in.ExactSharesToIssue.Sign() <= 0 {
		return nil, sdkerr.InputValidation(string(OpAddBuffer), "shares to issue must be positive")
	}

	router, err := s.contractAddress(OpAddBuffer, in.ChainID, addresses.BufferRouter)
	if err != nil {
		return nil, err
	}
	res, err := s.call(ctx, OpAddBuffer, in.ChainParams, router, bufferRouterABI, "queryAddLiquidityToBuffer",
		in.WrappedToken.Address, in.ExactSharesToIssue)
	if err != nil {
		return nil, err
	}

	out := newBufferOutput(OpAddBuffer, in.ChainParams, router)
	out.AmountsIn = []pool.TokenAmount{
		pool.NewTokenAmount(in.UnderlyingToken, res[0].(*big.Int)),
		pool.NewTokenAmount(in.WrappedToken, res[1].(*big.Int)),
	}
	out.Tokens = append(out.Tokens, in.UnderlyingToken.Address, in.WrappedToken.Address)
	out.BptOut = pool.NewTokenAmount(in.WrappedToken, in.ExactSharesToIssue)
	out.PoolAddress = in.WrappedToken.Address
	return out, nil
}

func (s *Service) buildBuffer(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	if len(q.AmountsIn) != 2 {
		return nil, sdkerr.InputValidation(string(q.Operation), "buffer operations carry an underlying and a wrapped amount")
	}
	out := &BuildCallOutput{To: q.To, BoundKind: pool.BoundMaxIn, Value: new(big.Int)}

	var (
		data []byte
		err  error
	)
	switch q.Operation {
	case OpInitBuffer:
		out.BoundedAmounts = copyAmounts(q.AmountsIn)
		if out.BptBound, err = in.Slippage.ApplyToAmount(q.BptOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		data, err = bufferRouterABI.Pack("initializeBuffer", q.PoolAddress,
			out.BoundedAmounts[0].Amount, out.BoundedAmounts[1].Amount, out.BptBound.Amount)

	case OpAddBuffer:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsIn, pool.BoundMaxIn); err != nil {
			return nil, boundError(q.Operation, err)
		}
		out.BptBound = pool.NewTokenAmount(q.BptOut.Token, q.BptOut.Amount)
		data, err = bufferRouterABI.Pack("addLiquidityToBuffer", q.PoolAddress,
			out.BoundedAmounts[0].Amount, out.BoundedAmounts[1].Amount, out.BptBound.Amount)
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", q.Operation, err)
	}
	out.CallData = data
	return out, nil
}

func validateBufferChain(params ChainParams) error {
	if !params.ChainID.IsSupported() {
		return sdkerr.UnsupportedChain(uint64(params.ChainID))
	}
	return nil
}

func newBufferOutput(op Operation, params ChainParams, router common.Address) *QueryOutput {
	return &QueryOutput{
		Operation:       op,
		ChainID:         params.ChainID,
		ProtocolVersion: consts.ProtocolV3,
		Block:           params.Block,
		To:              router,
		TokenInIndex:    -1,
		TokenOutIndex:   -1,
	}
}
