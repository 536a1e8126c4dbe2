package pool

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

const opSlippage = "Slippage"

// Bound is the direction a slippage tolerance is applied in
type Bound int

const (
	// BoundMaxIn caps an amount the caller pays: ceil(a * (1 + s))
	BoundMaxIn Bound = 1
	// BoundMinOut floors an amount the caller receives: floor(a * (1 - s))
	BoundMinOut Bound = -1
)

// String returns the bound name
func (b Bound) String() string {
	switch b {
	case BoundMaxIn:
		return "maxIn"
	case BoundMinOut:
		return "minOut"
	default:
		return "unknown"
	}
}

var wad = uint256.NewInt(1e18)

// Slippage is a tolerance in 1e18 fixed point, in [0, 1e18).
// The zero value is zero slippage.
type Slippage struct {
	raw *uint256.Int
}

// NewSlippage builds a Slippage from its raw 1e18 fixed point value
func NewSlippage(raw *big.Int) (Slippage, error) {
	u, err := toU256(raw)
	if err != nil {
		return Slippage{}, sdkerr.InputValidation(opSlippage, "invalid slippage", err.Error())
	}
	if !u.Lt(wad) {
		return Slippage{}, sdkerr.InputValidation(opSlippage, "slippage out of range [0, 1e18)", raw.String())
	}
	return Slippage{raw: u}, nil
}

// SlippageFromPercentage parses a percentage such as "1" (1%) or "0.05".
// The percentage must be exactly representable in 1e18 fixed point.
func SlippageFromPercentage(percentage string) (Slippage, error) {
	d, err := decimal.NewFromString(percentage)
	if err != nil {
		return Slippage{}, sdkerr.InputValidation(opSlippage, "invalid slippage percentage", percentage)
	}
	scaled := d.Shift(16)
	if !scaled.IsInteger() {
		return Slippage{}, sdkerr.InputValidation(opSlippage, "slippage percentage has more than 16 decimals", percentage)
	}
	return NewSlippage(scaled.BigInt())
}

// SlippageFromBps builds a Slippage from basis points (50 = 0.5%)
func SlippageFromBps(bps uint32) (Slippage, error) {
	raw := new(big.Int).Mul(big.NewInt(int64(bps)), big.NewInt(1e14))
	return NewSlippage(raw)
}

// Raw returns the 1e18 fixed point value
func (s Slippage) Raw() *big.Int {
	if s.raw == nil {
		return new(big.Int)
	}
	return s.raw.ToBig()
}

// Percentage returns the tolerance as a percentage string
func (s Slippage) Percentage() string {
	return decimal.NewFromBigInt(s.Raw(), -16).String()
}

// ApplyTo returns the bounded amount. At zero slippage the amount is returned
// unchanged for both directions.
func (s Slippage) ApplyTo(amount *big.Int, bound Bound) (*big.Int, error) {
	a, err := toU256(amount)
	if err != nil {
		return nil, err
	}
	sl := s.raw
	if sl == nil {
		sl = new(uint256.Int)
	}

	factor := new(uint256.Int)
	switch bound {
	case BoundMaxIn:
		factor.Add(wad, sl)
	case BoundMinOut:
		factor.Sub(wad, sl)
	default:
		return nil, fmt.Errorf("unknown bound %d", bound)
	}

	q, overflow := new(uint256.Int).MulDivOverflow(a, factor, wad)
	if overflow {
		return nil, fmt.Errorf("%w: %s with slippage %s", ErrAmountOverflow, amount, s.Percentage())
	}
	if bound == BoundMaxIn {
		if rem := new(uint256.Int).MulMod(a, factor, wad); !rem.IsZero() {
			if _, overflow := q.AddOverflow(q, uint256.NewInt(1)); overflow {
				return nil, fmt.Errorf("%w: %s with slippage %s", ErrAmountOverflow, amount, s.Percentage())
			}
		}
	}
	return q.ToBig(), nil
}

// ApplyToAmount bounds a TokenAmount, keeping its token
func (s Slippage) ApplyToAmount(amount TokenAmount, bound Bound) (TokenAmount, error) {
	v, err := s.ApplyTo(amount.Amount, bound)
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Token: amount.Token, Amount: v}, nil
}
