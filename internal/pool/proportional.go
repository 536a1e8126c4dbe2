package pool

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ProportionalBptAmount converts a reference amount into the BPT amount a
// proportional join or exit of that size corresponds to.
//
// A BPT reference is returned as is. A pool token (or ERC4626 underlying)
// reference is scaled by totalShares / balance, rounded down, which needs
// TotalShares and the matching balance on the state.
func ProportionalBptAmount(state *State, ref TokenAmount) (*big.Int, error) {
	if ref.Token.Address == state.Address {
		if err := CheckUint256(ref.Amount); err != nil {
			return nil, err
		}
		return new(big.Int).Set(ref.Amount), nil
	}

	var balance *big.Int
	if i, ok := state.TokenIndex(ref.Token.Address); ok {
		balance = state.Tokens[i].Balance
	} else if i, ok := state.UnderlyingIndex(ref.Token.Address); ok {
		balance = state.Tokens[i].UnderlyingToken.Balance
	} else {
		return nil, fmt.Errorf("reference token %s not in pool %s", ref.Token.Address.Hex(), state.Address.Hex())
	}
	if balance == nil || balance.Sign() == 0 {
		return nil, fmt.Errorf("pool balance for %s is unknown or zero", ref.Token.Address.Hex())
	}
	if state.TotalShares == nil || state.TotalShares.Sign() == 0 {
		return nil, fmt.Errorf("pool %s total shares unknown or zero", state.Address.Hex())
	}

	a, err := toU256(ref.Amount)
	if err != nil {
		return nil, err
	}
	shares, err := toU256(state.TotalShares)
	if err != nil {
		return nil, err
	}
	bal, err := toU256(balance)
	if err != nil {
		return nil, err
	}
	bpt, overflow := new(uint256.Int).MulDivOverflow(a, shares, bal)
	if overflow {
		return nil, fmt.Errorf("%w: proportional bpt for %s", ErrAmountOverflow, ref.Amount)
	}
	return bpt.ToBig(), nil
}
