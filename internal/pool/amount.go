package pool

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrAmountOverflow = errors.New("amount exceeds uint256")
)

// TokenAmount is a raw amount in the token's smallest unit
type TokenAmount struct {
	Token  TokenRef
	Amount *big.Int
}

// NewTokenAmount copies raw into a TokenAmount
func NewTokenAmount(token TokenRef, raw *big.Int) TokenAmount {
	amount := new(big.Int)
	if raw != nil {
		amount.Set(raw)
	}
	return TokenAmount{Token: token, Amount: amount}
}

// NewTokenAmountFromHuman parses a human readable amount ("1.5") and scales it
// by the token decimals. Digits beyond the token precision are truncated.
func NewTokenAmountFromHuman(token TokenRef, human string) (TokenAmount, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("invalid amount %q: %w", human, err)
	}
	if d.IsNegative() {
		return TokenAmount{}, fmt.Errorf("%w: %s", ErrAmountNegative, human)
	}
	raw := d.Shift(int32(token.Decimals)).Truncate(0).BigInt()
	if err := CheckUint256(raw); err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Token: token, Amount: raw}, nil
}

// Human formats the amount scaled down by the token decimals
func (a TokenAmount) Human() string {
	if a.Amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(a.Amount, -int32(a.Token.Decimals)).String()
}

// String implements fmt.Stringer
func (a TokenAmount) String() string {
	return fmt.Sprintf("%s %s", a.Human(), a.Token.Address.Hex())
}

// CheckUint256 verifies the raw amount is a valid on-chain uint256
func CheckUint256(v *big.Int) error {
	if v == nil {
		return ErrAmountNil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrAmountNegative, v)
	}
	if v.BitLen() > 256 {
		return fmt.Errorf("%w: %s", ErrAmountOverflow, v)
	}
	return nil
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if err := CheckUint256(v); err != nil {
		return nil, err
	}
	u, _ := uint256.FromBig(v)
	return u, nil
}
