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

// QueryInitPool validates an init request. Initialization has no router
// query: the output carries the caller's exact amounts in pool order.
func (s *Service) QueryInitPool(_ context.Context, in InitInput, state *pool.State) (*QueryOutput, error) {
	if err := s.validator.ValidateInitPool(in, state); err != nil {
		return nil, err
	}
	if err := requireV3(OpInitPool, state); err != nil {
		return nil, err
	}
	router, err := s.contractAddress(OpInitPool, in.ChainID, addresses.Router)
	if err != nil {
		return nil, err
	}

	out := newQueryOutput(OpInitPool, in.ChainParams, state, router)
	out.AmountsIn, _ = poolOrderedAmounts(state, in.AmountsIn)
	out.BptOut = pool.NewTokenAmount(state.BptRef(), in.MinBptAmountOut)
	out.UserData = userData(in.UserData)
	return out, nil
}

// QueryAddLiquidity validates and simulates a router add
func (s *Service) QueryAddLiquidity(ctx context.Context, in AddLiquidityInput, state *pool.State) (*QueryOutput, error) {
	if err := s.validator.ValidateAddLiquidity(in, state); err != nil {
		return nil, err
	}
	op := in.Operation()
	if err := requireV3(op, state); err != nil {
		return nil, err
	}
	params := in.Params()
	router, err := s.contractAddress(op, params.ChainID, addresses.Router)
	if err != nil {
		return nil, err
	}

	out := newQueryOutput(op, params, state, router)
	zero := common.Address{}

	switch v := in.(type) {
	case AddUnbalancedInput:
		tagged, raw := poolOrderedAmounts(state, v.AmountsIn)
		res, err := s.call(ctx, op, params, router, routerABI, "queryAddLiquidityUnbalanced",
			state.Address, raw, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsIn = tagged
		out.BptOut = pool.NewTokenAmount(state.BptRef(), res[0].(*big.Int))
		out.UserData = userData(v.UserData)

	case AddProportionalInput:
		bptOut, err := pool.ProportionalBptAmount(state, v.ReferenceAmount)
		if err != nil {
			return nil, sdkerr.InputValidation(string(op), "cannot derive BPT amount from reference", err.Error())
		}
		res, err := s.call(ctx, op, params, router, routerABI, "queryAddLiquidityProportional",
			state.Address, bptOut, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsIn, err = tagAmounts(op, state.Refs(), res[0].([]*big.Int))
		if err != nil {
			return nil, err
		}
		out.BptOut = pool.NewTokenAmount(state.BptRef(), bptOut)
		out.UserData = userData(v.UserData)

	case AddSingleTokenInput:
		idx, err := tokenIndex(op, state, v.TokenIn)
		if err != nil {
			return nil, err
		}
		res, err := s.call(ctx, op, params, router, routerABI, "queryAddLiquiditySingleTokenExactOut",
			state.Address, v.TokenIn, v.BptOut.Amount, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsIn, _ = poolOrderedAmounts(state, []pool.TokenAmount{
			pool.NewTokenAmount(state.Tokens[idx].Ref(), res[0].(*big.Int)),
		})
		out.TokenInIndex = idx
		out.BptOut = pool.NewTokenAmount(state.BptRef(), v.BptOut.Amount)
		out.UserData = userData(v.UserData)

	default:
		return nil, fmt.Errorf("unsupported add liquidity input %T", in)
	}

	s.logger.Info("add liquidity queried",
		"operation", op,
		"pool", state.Address.Hex(),
		"bptOut", out.BptOut.Amount.String())
	return out, nil
}

// QueryRemoveLiquidity validates and simulates a router remove
func (s *Service) QueryRemoveLiquidity(ctx context.Context, in RemoveLiquidityInput, state *pool.State) (*QueryOutput, error) {
	if err := s.validator.ValidateRemoveLiquidity(in, state); err != nil {
		return nil, err
	}
	op := in.Operation()
	if err := requireV3(op, state); err != nil {
		return nil, err
	}
	params := in.Params()
	router, err := s.contractAddress(op, params.ChainID, addresses.Router)
	if err != nil {
		return nil, err
	}

	out := newQueryOutput(op, params, state, router)
	zero := common.Address{}

	switch v := in.(type) {
	case RemoveProportionalInput:
		res, err := s.call(ctx, op, params, router, routerABI, "queryRemoveLiquidityProportional",
			state.Address, v.BptIn.Amount, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsOut, err = tagAmounts(op, state.Refs(), res[0].([]*big.Int))
		if err != nil {
			return nil, err
		}
		out.BptIn = pool.NewTokenAmount(state.BptRef(), v.BptIn.Amount)
		out.UserData = userData(v.UserData)

	case RemoveSingleTokenExactInInput:
		idx, err := tokenIndex(op, state, v.TokenOut)
		if err != nil {
			return nil, err
		}
		res, err := s.call(ctx, op, params, router, routerABI, "queryRemoveLiquiditySingleTokenExactIn",
			state.Address, v.BptIn.Amount, v.TokenOut, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsOut, _ = poolOrderedAmounts(state, []pool.TokenAmount{
			pool.NewTokenAmount(state.Tokens[idx].Ref(), res[0].(*big.Int)),
		})
		out.TokenOutIndex = idx
		out.BptIn = pool.NewTokenAmount(state.BptRef(), v.BptIn.Amount)
		out.UserData = userData(v.UserData)

	case RemoveSingleTokenExactOutInput:
		idx, err := tokenIndex(op, state, v.AmountOut.Token.Address)
		if err != nil {
			return nil, err
		}
		res, err := s.call(ctx, op, params, router, routerABI, "queryRemoveLiquiditySingleTokenExactOut",
			state.Address, v.AmountOut.Token.Address, v.AmountOut.Amount, zero, userData(v.UserData))
		if err != nil {
			return nil, err
		}
		out.AmountsOut, _ = poolOrderedAmounts(state, []pool.TokenAmount{v.AmountOut})
		out.TokenOutIndex = idx
		out.BptIn = pool.NewTokenAmount(state.BptRef(), res[0].(*big.Int))
		out.UserData = userData(v.UserData)

	default:
		return nil, fmt.Errorf("unsupported remove liquidity input %T", in)
	}

	s.logger.Info("remove liquidity queried",
		"operation", op,
		"pool", state.Address.Hex(),
		"bptIn", out.BptIn.Amount.String())
	return out, nil
}

// QueryRemoveLiquidityRecovery simulates a recovery mode exit
func (s *Service) QueryRemoveLiquidityRecovery(ctx context.Context, in RemoveRecoveryInput, state *pool.State) (*QueryOutput, error) {
	if err := s.validator.ValidateRemoveLiquidityRecovery(in, state); err != nil {
		return nil, err
	}
	if err := requireV3(OpRemoveRecovery, state); err != nil {
		return nil, err
	}
	router, err := s.contractAddress(OpRemoveRecovery, in.ChainID, addresses.Router)
	if err != nil {
		return nil, err
	}

	res, err := s.call(ctx, OpRemoveRecovery, in.ChainParams, router, routerABI, "queryRemoveLiquidityRecovery",
		state.Address, in.BptIn.Amount)
	if err != nil {
		return nil, err
	}

	out := newQueryOutput(OpRemoveRecovery, in.ChainParams, state, router)
	out.AmountsOut, err = tagAmounts(OpRemoveRecovery, state.Refs(), res[0].([]*big.Int))
	if err != nil {
		return nil, err
	}
	out.BptIn = pool.NewTokenAmount(state.BptRef(), in.BptIn.Amount)
	out.UserData = []byte{}
	return out, nil
}

func tokenIndex(op Operation, state *pool.State, token common.Address) (int, error) {
	idx, ok := state.TokenIndex(token)
	if !ok {
		return -1, sdkerr.InputValidation(string(op), fmt.Sprintf("token %s not in pool %s", token.Hex(), state.Address.Hex()))
	}
	return idx, nil
}
