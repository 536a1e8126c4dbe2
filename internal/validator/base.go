package validator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// Strategy validates the requests of one pool family. Implementations do no
// I/O and never mutate the pool state.
type Strategy interface {
	ValidateCreatePool(in liquidity.CreatePoolInput) error
	ValidateInitPool(in liquidity.InitInput, state *pool.State) error
	ValidateAddLiquidity(in liquidity.AddLiquidityInput, state *pool.State) error
	ValidateRemoveLiquidity(in liquidity.RemoveLiquidityInput, state *pool.State) error
	ValidateRemoveLiquidityRecovery(in liquidity.RemoveRecoveryInput, state *pool.State) error
}

// Base is the permissive strategy: token membership and amount sanity only.
// Families embed it and override what they restrict.
type Base struct{}

var _ Strategy = Base{}

// ValidateCreatePool checks the token list and rate provider configuration
func (Base) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := validateCreatePoolTokens(in.Tokens); err != nil {
		return err
	}
	return validateCreatePoolTokenConfig(in.Tokens)
}

// ValidateInitPool requires exactly one amount for every pool token
func (Base) ValidateInitPool(in liquidity.InitInput, state *pool.State) error {
	const op = string(liquidity.OpInitPool)
	seen := make(map[common.Address]bool, len(in.AmountsIn))
	for _, a := range in.AmountsIn {
		if _, ok := state.TokenIndex(a.Token.Address); !ok {
			return sdkerr.InputValidation(op, fmt.Sprintf("token %s not in pool", a.Token.Address.Hex()))
		}
		if seen[a.Token.Address] {
			return sdkerr.InputValidation(op, fmt.Sprintf("duplicate token %s", a.Token.Address.Hex()))
		}
		seen[a.Token.Address] = true
		if err := pool.CheckUint256(a.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid amount", err.Error())
		}
	}
	if len(seen) != len(state.Tokens) {
		return sdkerr.InputValidation(op, "init amounts must cover every pool token",
			fmt.Sprintf("got %d of %d", len(seen), len(state.Tokens)))
	}
	if in.MinBptAmountOut != nil {
		if err := pool.CheckUint256(in.MinBptAmountOut); err != nil {
			return sdkerr.InputValidation(op, "invalid min bpt amount out", err.Error())
		}
	}
	return nil
}

// ValidateAddLiquidity checks that the tokens of the request are pool tokens
func (Base) ValidateAddLiquidity(in liquidity.AddLiquidityInput, state *pool.State) error {
	op := string(in.Operation())
	switch v := in.(type) {
	case liquidity.AddUnbalancedInput:
		if len(v.AmountsIn) == 0 {
			return sdkerr.InputValidation(op, "amounts in are required")
		}
		seen := make(map[common.Address]bool, len(v.AmountsIn))
		for _, a := range v.AmountsIn {
			if err := requirePoolToken(op, state, a.Token.Address); err != nil {
				return err
			}
			if seen[a.Token.Address] {
				return sdkerr.InputValidation(op, fmt.Sprintf("duplicate token %s", a.Token.Address.Hex()))
			}
			seen[a.Token.Address] = true
			if err := pool.CheckUint256(a.Amount); err != nil {
				return sdkerr.InputValidation(op, "invalid amount", err.Error())
			}
		}
	case liquidity.AddProportionalInput:
		ref := v.ReferenceAmount.Token.Address
		if ref != state.Address {
			if err := requirePoolToken(op, state, ref); err != nil {
				return err
			}
		}
		if err := pool.CheckUint256(v.ReferenceAmount.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid reference amount", err.Error())
		}
	case liquidity.AddSingleTokenInput:
		if err := requirePoolToken(op, state, v.TokenIn); err != nil {
			return err
		}
		if err := pool.CheckUint256(v.BptOut.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid bpt out", err.Error())
		}
	default:
		return sdkerr.InputValidation(op, fmt.Sprintf("unsupported input %T", in))
	}
	return nil
}

// ValidateRemoveLiquidity checks that the tokens of the request are pool tokens
func (Base) ValidateRemoveLiquidity(in liquidity.RemoveLiquidityInput, state *pool.State) error {
	op := string(in.Operation())
	switch v := in.(type) {
	case liquidity.RemoveProportionalInput:
		if err := pool.CheckUint256(v.BptIn.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid bpt in", err.Error())
		}
	case liquidity.RemoveSingleTokenExactInInput:
		if err := requirePoolToken(op, state, v.TokenOut); err != nil {
			return err
		}
		if err := pool.CheckUint256(v.BptIn.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid bpt in", err.Error())
		}
	case liquidity.RemoveSingleTokenExactOutInput:
		if err := requirePoolToken(op, state, v.AmountOut.Token.Address); err != nil {
			return err
		}
		if err := pool.CheckUint256(v.AmountOut.Amount); err != nil {
			return sdkerr.InputValidation(op, "invalid amount out", err.Error())
		}
	default:
		return sdkerr.InputValidation(op, fmt.Sprintf("unsupported input %T", in))
	}
	return nil
}

// ValidateRemoveLiquidityRecovery checks the BPT amount
func (Base) ValidateRemoveLiquidityRecovery(in liquidity.RemoveRecoveryInput, _ *pool.State) error {
	if err := pool.CheckUint256(in.BptIn.Amount); err != nil {
		return sdkerr.InputValidation(string(liquidity.OpRemoveRecovery), "invalid bpt in", err.Error())
	}
	return nil
}

func requirePoolToken(op string, state *pool.State, token common.Address) error {
	if _, ok := state.TokenIndex(token); !ok {
		return sdkerr.InputValidation(op, fmt.Sprintf("token %s not in pool %s", token.Hex(), state.Address.Hex()))
	}
	return nil
}

// requireProportionalAdd restricts a family to proportional joins
func requireProportionalAdd(in liquidity.AddLiquidityInput, state *pool.State) error {
	if in.Operation() != liquidity.OpAddProportional {
		return sdkerr.PoolType(string(in.Operation()), string(state.Type), "Use "+string(liquidity.OpAddProportional))
	}
	return nil
}

// requireProportionalRemove restricts a family to proportional exits
func requireProportionalRemove(in liquidity.RemoveLiquidityInput, state *pool.State) error {
	if in.Operation() != liquidity.OpRemoveProportional {
		return sdkerr.PoolType(string(in.Operation()), string(state.Type), "Use "+string(liquidity.OpRemoveProportional))
	}
	return nil
}

func validateCreatePoolTokens(tokens []liquidity.CreatePoolToken) error {
	const op = string(liquidity.OpCreatePool)
	if len(tokens) == 0 {
		return sdkerr.InputValidation(op, "tokens are required")
	}
	seen := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		if t.Address == (common.Address{}) {
			return sdkerr.InputValidation(op, "token address cannot be zero")
		}
		if seen[t.Address] {
			return sdkerr.InputValidation(op, "duplicate token addresses", t.Address.Hex())
		}
		seen[t.Address] = true
	}
	return nil
}

func validateCreatePoolTokenConfig(tokens []liquidity.CreatePoolToken) error {
	const op = string(liquidity.OpCreatePool)
	for _, t := range tokens {
		hasProvider := t.RateProvider != (common.Address{})
		switch t.TokenType {
		case liquidity.TokenTypeStandard:
			if hasProvider {
				return sdkerr.InputValidation(op, "standard tokens cannot have a rate provider", t.Address.Hex())
			}
		case liquidity.TokenTypeWithRate:
			if !hasProvider {
				return sdkerr.InputValidation(op, "tokens with rate need a rate provider", t.Address.Hex())
			}
		default:
			return sdkerr.InputValidation(op, fmt.Sprintf("unknown token type %d", t.TokenType), t.Address.Hex())
		}
	}
	return nil
}
