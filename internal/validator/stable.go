package validator

import (
	"fmt"
	"math/big"

	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

const (
	maxStableTokens = 5
	minAmp          = 1
	maxAmp          = 10_000
	// composable stable pools are capped lower by their factory
	maxComposableAmp = 5_000
)

// Stable validates Stable, MetaStable and StableSurge pools
type Stable struct {
	Base
}

// ValidateCreatePool enforces the token limit and amplification range
func (s Stable) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := s.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	return validateStableCreate(in, maxAmp)
}

// ComposableStable validates composable stable pools, whose BPT is one of the
// registered tokens but can never be paid in
type ComposableStable struct {
	Base
}

// ValidateCreatePool enforces the token limit and amplification range
func (c ComposableStable) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := c.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	return validateStableCreate(in, maxComposableAmp)
}

// ValidateAddLiquidity rejects the pool's own BPT as an amount in
func (c ComposableStable) ValidateAddLiquidity(in liquidity.AddLiquidityInput, state *pool.State) error {
	op := string(in.Operation())
	switch v := in.(type) {
	case liquidity.AddUnbalancedInput:
		for _, a := range v.AmountsIn {
			if a.Token.Address == state.Address {
				return sdkerr.InputValidation(op, "BPT cannot be an amount in", state.Address.Hex())
			}
		}
	case liquidity.AddSingleTokenInput:
		if v.TokenIn == state.Address {
			return sdkerr.InputValidation(op, "BPT cannot be the token in", state.Address.Hex())
		}
	}
	return c.Base.ValidateAddLiquidity(in, state)
}

func validateStableCreate(in liquidity.CreatePoolInput, ampCeiling int64) error {
	const op = string(liquidity.OpCreatePool)
	if len(in.Tokens) > maxStableTokens {
		return sdkerr.InputValidation(op, "Stable pools can have a maximum of 5 tokens")
	}
	if in.Amp == nil {
		return sdkerr.InputValidation(op, "amplification parameter is required")
	}
	if in.Amp.Cmp(big.NewInt(minAmp)) < 0 || in.Amp.Cmp(big.NewInt(ampCeiling)) > 0 {
		return sdkerr.InputValidation(op, fmt.Sprintf("Amplification parameter must be between %d and %d", minAmp, ampCeiling),
			"got "+in.Amp.String())
	}
	return nil
}
