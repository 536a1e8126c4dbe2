package validator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// proportionalOnly restricts router joins and exits to the proportional kinds
type proportionalOnly struct {
	Base
}

// ValidateAddLiquidity allows proportional joins only
func (p proportionalOnly) ValidateAddLiquidity(in liquidity.AddLiquidityInput, state *pool.State) error {
	if err := requireProportionalAdd(in, state); err != nil {
		return err
	}
	return p.Base.ValidateAddLiquidity(in, state)
}

// ValidateRemoveLiquidity allows proportional exits only
func (p proportionalOnly) ValidateRemoveLiquidity(in liquidity.RemoveLiquidityInput, state *pool.State) error {
	if err := requireProportionalRemove(in, state); err != nil {
		return err
	}
	return p.Base.ValidateRemoveLiquidity(in, state)
}

// LiquidityBootstrapping validates LBP sales: two tokens with start and end
// weights and a sale window
type LiquidityBootstrapping struct {
	proportionalOnly
}

// ValidateCreatePool checks the sale tokens, weights and window
func (l LiquidityBootstrapping) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	const op = string(liquidity.OpCreatePool)
	if err := l.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	if len(in.Tokens) != 2 {
		return sdkerr.InputValidation(op, "Liquidity bootstrapping pools support exactly two tokens")
	}
	p := in.LBP
	if p == nil {
		return sdkerr.InputValidation(op, "LBP parameters are required")
	}
	if p.ProjectToken == p.ReserveToken {
		return sdkerr.InputValidation(op, "project and reserve tokens must differ")
	}
	for _, t := range []common.Address{p.ProjectToken, p.ReserveToken} {
		if !hasCreateToken(in.Tokens, t) {
			return sdkerr.InputValidation(op, fmt.Sprintf("sale token %s is not a pool token", t.Hex()))
		}
	}
	for _, pair := range [][2]*big.Int{
		{p.ProjectTokenStartWeight, p.ReserveTokenStartWeight},
		{p.ProjectTokenEndWeight, p.ReserveTokenEndWeight},
	} {
		if pair[0] == nil || pair[1] == nil || pair[0].Sign() <= 0 || pair[1].Sign() <= 0 {
			return sdkerr.InputValidation(op, "Weight cannot be 0")
		}
		if new(big.Int).Add(pair[0], pair[1]).Cmp(consts.Wad()) != 0 {
			return sdkerr.InputValidation(op, "Weights must sum to 1e18")
		}
	}
	if p.EndTime <= p.StartTime {
		return sdkerr.InputValidation(op, "End time must be after start time",
			fmt.Sprintf("start %d end %d", p.StartTime, p.EndTime))
	}
	return nil
}

// ReClamm validates readjusting concentrated liquidity pools
type ReClamm struct {
	proportionalOnly
}

// ValidateCreatePool checks the token count and the initial price range
func (r ReClamm) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	const op = string(liquidity.OpCreatePool)
	if err := r.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	if len(in.Tokens) != 2 {
		return sdkerr.InputValidation(op, "ReClamm pools support exactly two tokens")
	}
	p := in.ReClamm
	if p == nil {
		return sdkerr.InputValidation(op, "ReClamm parameters are required")
	}
	if p.InitialMinPrice == nil || p.InitialTargetPrice == nil || p.InitialMaxPrice == nil {
		return sdkerr.InputValidation(op, "initial min, target and max prices are required")
	}
	if p.InitialMinPrice.Sign() <= 0 ||
		p.InitialMinPrice.Cmp(p.InitialTargetPrice) >= 0 ||
		p.InitialTargetPrice.Cmp(p.InitialMaxPrice) >= 0 {
		return sdkerr.InputValidation(op, "Initial prices must satisfy 0 < min < target < max")
	}
	return nil
}

// Boosted validates pools of ERC4626 tokens. Router joins and exits are
// proportional only; unbalanced joins go through the composite router.
type Boosted struct {
	proportionalOnly
}

// ValidateAddLiquidityBoosted checks that each token maps to exactly one pool
// position, either as the pool token or as its underlying
func (b Boosted) ValidateAddLiquidityBoosted(in liquidity.AddBoostedInput, state *pool.State) error {
	op := string(in.Operation())
	switch v := in.(type) {
	case liquidity.AddBoostedUnbalancedInput:
		if len(v.AmountsIn) == 0 {
			return sdkerr.InputValidation(op, "amounts in are required")
		}
		used := make(map[int]bool, len(v.AmountsIn))
		for _, a := range v.AmountsIn {
			i, err := boostedIndex(op, state, a.Token.Address)
			if err != nil {
				return err
			}
			if used[i] {
				return sdkerr.InputValidation(op, fmt.Sprintf("pool position %d is funded twice", i), a.Token.Address.Hex())
			}
			used[i] = true
			if err := pool.CheckUint256(a.Amount); err != nil {
				return sdkerr.InputValidation(op, "invalid amount", err.Error())
			}
		}
	case liquidity.AddBoostedProportionalInput:
		ref := v.ReferenceAmount.Token.Address
		if ref != state.Address {
			if _, err := boostedIndex(op, state, ref); err != nil {
				return err
			}
		}
		if err := pool.CheckUint256(v.ReferenceAmount.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid reference amount", err.Error())
		}
		if len(v.TokensIn) != len(state.Tokens) {
			return sdkerr.InputValidation(op, "tokens in must name one token per pool position",
				fmt.Sprintf("got %d of %d", len(v.TokensIn), len(state.Tokens)))
		}
		used := make(map[int]bool, len(v.TokensIn))
		for _, t := range v.TokensIn {
			i, err := boostedIndex(op, state, t)
			if err != nil {
				return err
			}
			if used[i] {
				return sdkerr.InputValidation(op, fmt.Sprintf("pool position %d is named twice", i), t.Hex())
			}
			used[i] = true
		}
	default:
		return sdkerr.InputValidation(op, fmt.Sprintf("unsupported input %T", in))
	}
	return nil
}

func boostedIndex(op string, state *pool.State, token common.Address) (int, error) {
	if i, ok := state.TokenIndex(token); ok {
		return i, nil
	}
	if i, ok := state.UnderlyingIndex(token); ok {
		return i, nil
	}
	return -1, sdkerr.InputValidation(op, fmt.Sprintf("token %s is neither a pool token nor an underlying", token.Hex()))
}

func hasCreateToken(tokens []liquidity.CreatePoolToken, addr common.Address) bool {
	for _, t := range tokens {
		if t.Address == addr {
			return true
		}
	}
	return false
}
