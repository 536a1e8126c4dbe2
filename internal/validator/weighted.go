package validator

import (
	"math/big"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

const maxWeightedTokens = 8

// Weighted validates weighted pools
type Weighted struct {
	Base
}

// ValidateCreatePool enforces the token limit and normalized weights
func (w Weighted) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := w.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	if len(in.Tokens) > maxWeightedTokens {
		return sdkerr.InputValidation(string(liquidity.OpCreatePool), "Weighted pools can have a maximum of 8 tokens")
	}
	return validateWeights(in.Tokens)
}

// validateWeights requires every weight to be positive and the weights to
// sum to exactly 1e18
func validateWeights(tokens []liquidity.CreatePoolToken) error {
	const op = string(liquidity.OpCreatePool)
	sum := new(big.Int)
	for _, t := range tokens {
		if t.Weight == nil || t.Weight.Sign() <= 0 {
			return sdkerr.InputValidation(op, "Weight cannot be 0", t.Address.Hex())
		}
		sum.Add(sum, t.Weight)
	}
	if sum.Cmp(consts.Wad()) != 0 {
		return sdkerr.InputValidation(op, "Weights must sum to 1e18", "got "+sum.String())
	}
	return nil
}

// CowAmm validates CoW AMM pools: two equally structured weighted tokens,
// proportional joins and exits only
type CowAmm struct {
	proportionalOnly
}

// ValidateCreatePool requires exactly two weighted tokens
func (c CowAmm) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := c.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	if len(in.Tokens) != 2 {
		return sdkerr.InputValidation(string(liquidity.OpCreatePool), "CowAmm pools support exactly two tokens")
	}
	return validateWeights(in.Tokens)
}
