package liquidity

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// QueryAddLiquidityBoosted simulates an add to a pool of ERC4626 tokens
// through the composite router. For each pool position the caller pays
// either the pool token or its underlying; wrapUnderlying is resolved from
// that choice before the call.
func (s *Service) QueryAddLiquidityBoosted(ctx context.Context, in AddBoostedInput, state *pool.State) (*QueryOutput, error) {
	if err := s.validator.ValidateAddLiquidityBoosted(in, state); err != nil {
		return nil, err
	}
	op := in.Operation()
	if err := requireV3(op, state); err != nil {
		return nil, err
	}
	params := in.Params()
	router, err := s.contractAddress(op, params.ChainID, addresses.CompositeLiquidityRouter)
	if err != nil {
		return nil, err
	}

	out := newQueryOutput(op, params, state, router)
	zero := common.Address{}

	switch v := in.(type) {
	case AddBoostedUnbalancedInput:
		refs := make([]pool.TokenRef, len(state.Tokens))
		wrap := make([]bool, len(state.Tokens))
		exact := make([]*big.Int, len(state.Tokens))
		for i, t := range state.Tokens {
			refs[i] = t.Ref()
			exact[i] = new(big.Int)
		}
		for _, a := range v.AmountsIn {
			i, underlying, ok := boostedPosition(state, a.Token.Address)
			if !ok {
				return nil, sdkerr.InputValidation(string(op), fmt.Sprintf("token %s not in pool", a.Token.Address.Hex()))
			}
			if underlying {
				refs[i] = underlyingRef(state.Tokens[i])
			}
			wrap[i] = underlying
			exact[i] = new(big.Int).Set(a.Amount)
		}

		res, err := s.call(ctx, op, params, router, compositeRouterABI, "queryAddLiquidityUnbalancedToERC4626Pool",
			state.Address, wrap, exact, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsIn, err = tagAmounts(op, refs, exact)
		if err != nil {
			return nil, err
		}
		out.WrapUnderlying = wrap
		out.BptOut = pool.NewTokenAmount(state.BptRef(), res[0].(*big.Int))
		out.UserData = userData(v.UserData)

	case AddBoostedProportionalInput:
		refs := make([]pool.TokenRef, len(state.Tokens))
		wrap := make([]bool, len(state.Tokens))
		for i, t := range state.Tokens {
			refs[i] = t.Ref()
		}
		for _, addr := range v.TokensIn {
			i, underlying, ok := boostedPosition(state, addr)
			if !ok {
				return nil, sdkerr.InputValidation(string(op), fmt.Sprintf("token %s not in pool", addr.Hex()))
			}
			if underlying {
				refs[i] = underlyingRef(state.Tokens[i])
			}
			wrap[i] = underlying
		}

		bptOut, err := pool.ProportionalBptAmount(state, v.ReferenceAmount)
		if err != nil {
			return nil, sdkerr.InputValidation(string(op), "cannot derive BPT amount from reference", err.Error())
		}
		res, err := s.call(ctx, op, params, router, compositeRouterABI, "queryAddLiquidityProportionalToERC4626Pool",
			state.Address, wrap, bptOut, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		tokensIn := res[0].([]common.Address)
		for i, addr := range tokensIn {
			if i < len(refs) && addr != refs[i].Address {
				return nil, sdkerr.Query(string(op), fmt.Errorf("router returned token %s at position %d, expected %s",
					addr.Hex(), i, refs[i].Address.Hex()))
			}
		}
		out.AmountsIn, err = tagAmounts(op, refs, res[1].([]*big.Int))
		if err != nil {
			return nil, err
		}
		out.WrapUnderlying = wrap
		out.BptOut = pool.NewTokenAmount(state.BptRef(), bptOut)
		out.UserData = userData(v.UserData)

	default:
		return nil, fmt.Errorf("unsupported boosted add input %T", in)
	}

	s.logger.Info("boosted add liquidity queried",
		"operation", op,
		"pool", state.Address.Hex(),
		"wrapUnderlying", out.WrapUnderlying,
		"bptOut", out.BptOut.Amount.String())
	return out, nil
}

func (s *Service) buildAddBoosted(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	if len(q.WrapUnderlying) != len(q.AmountsIn) {
		return nil, sdkerr.InputValidation(string(q.Operation), "wrapUnderlying does not match amounts in")
	}
	out := &BuildCallOutput{To: q.To, BoundKind: pool.BoundMaxIn}

	var (
		data []byte
		err  error
	)
	switch q.Operation {
	case OpAddBoostedUnbalanced:
		out.BoundedAmounts = copyAmounts(q.AmountsIn)
		if out.BptBound, err = in.Slippage.ApplyToAmount(q.BptOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		data, err = compositeRouterABI.Pack("addLiquidityUnbalancedToERC4626Pool", q.PoolAddress, q.WrapUnderlying,
			rawAmounts(out.BoundedAmounts), out.BptBound.Amount, in.WethIsEth, userData(q.UserData))

	case OpAddBoostedProportional:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsIn, pool.BoundMaxIn); err != nil {
			return nil, boundError(q.Operation, err)
		}
		out.BptBound = pool.NewTokenAmount(q.BptOut.Token, q.BptOut.Amount)
		data, err = compositeRouterABI.Pack("addLiquidityProportionalToERC4626Pool", q.PoolAddress, q.WrapUnderlying,
			rawAmounts(out.BoundedAmounts), out.BptBound.Amount, in.WethIsEth, userData(q.UserData))
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", q.Operation, err)
	}
	out.CallData = data
	if out.Value, err = s.nativeValue(q, out.BoundedAmounts, in.WethIsEth); err != nil {
		return nil, err
	}
	return out, nil
}

// boostedPosition maps a token to its pool position, reporting whether it
// is the position's underlying rather than the pool token itself
func boostedPosition(state *pool.State, token common.Address) (int, bool, bool) {
	if i, ok := state.TokenIndex(token); ok {
		return i, false, true
	}
	if i, ok := state.UnderlyingIndex(token); ok {
		return i, true, true
	}
	return -1, false, false
}

func underlyingRef(t pool.Token) pool.TokenRef {
	return pool.TokenRef{Address: t.UnderlyingToken.Address, Decimals: t.UnderlyingToken.Decimals}
}
