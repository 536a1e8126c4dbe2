package validator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// ECLPChecker validates the math invariants of ECLP base parameters
type ECLPChecker interface {
	CheckParams(p liquidity.ECLPParams) error
}

var (
	ErrRotationVectorSWrong        = errors.New("RotationVectorSWrong")
	ErrRotationVectorCWrong        = errors.New("RotationVectorCWrong")
	ErrRotationVectorNotNormalized = errors.New("RotationVectorNotNormalized")
	ErrStretchingFactorWrong       = errors.New("StretchingFactorWrong")
	ErrPriceBoundsWrong            = errors.New("PriceBoundsWrong")
	ErrMissingECLPParameter        = errors.New("missing ECLP parameter")
)

var (
	eclpOne                        = big.NewInt(1e18)
	eclpRotationVectorNormAccuracy = big.NewInt(1e3)
	eclpMaxStretchFactor           = new(big.Int).Exp(big.NewInt(10), big.NewInt(26), nil)
)

// GyroECLPChecker implements the base parameter checks of the ECLP pool
// contracts, in 1e18 fixed point with round-down products.
type GyroECLPChecker struct{}

// CheckParams validates alpha, beta, the rotation vector and lambda
func (GyroECLPChecker) CheckParams(p liquidity.ECLPParams) error {
	params := []struct {
		name  string
		value *big.Int
	}{
		{"alpha", p.Alpha},
		{"beta", p.Beta},
		{"c", p.C},
		{"s", p.S},
		{"lambda", p.Lambda},
	}
	for _, param := range params {
		if param.value == nil {
			return fmt.Errorf("%w: %s", ErrMissingECLPParameter, param.name)
		}
	}
	if p.S.Sign() < 0 || p.S.Cmp(eclpOne) > 0 {
		return ErrRotationVectorSWrong
	}
	if p.C.Sign() < 0 || p.C.Cmp(eclpOne) > 0 {
		return ErrRotationVectorCWrong
	}

	norm := new(big.Int).Add(mulDown(p.C, p.C), mulDown(p.S, p.S))
	lo := new(big.Int).Sub(eclpOne, eclpRotationVectorNormAccuracy)
	hi := new(big.Int).Add(eclpOne, eclpRotationVectorNormAccuracy)
	if norm.Cmp(lo) < 0 || norm.Cmp(hi) > 0 {
		return ErrRotationVectorNotNormalized
	}

	if p.Lambda.Sign() < 0 || p.Lambda.Cmp(eclpMaxStretchFactor) > 0 {
		return ErrStretchingFactorWrong
	}
	if p.Alpha.Sign() <= 0 || p.Alpha.Cmp(p.Beta) >= 0 {
		return ErrPriceBoundsWrong
	}
	return nil
}

func mulDown(a, b *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return prod.Quo(prod, eclpOne)
}

// Gyro validates Gyro2, Gyro3 and GyroE pools: two tokens on v3,
// proportional joins and exits only
type Gyro struct {
	proportionalOnly
	Checker ECLPChecker
}

// ValidateCreatePool checks the token count and, for ECLP pools, the base
// parameters through the checker
func (g Gyro) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	const op = string(liquidity.OpCreatePool)
	if err := g.Base.ValidateCreatePool(in); err != nil {
		return err
	}
	if len(in.Tokens) != 2 {
		return sdkerr.InputValidation(op, "GyroECLP pools support only two tokens on Balancer v3")
	}
	if in.ECLP == nil {
		if in.PoolType == pool.GyroE {
			return sdkerr.InputValidation(op, "ECLP parameters are required")
		}
		return nil
	}
	checker := g.Checker
	if checker == nil {
		checker = GyroECLPChecker{}
	}
	if err := checker.CheckParams(*in.ECLP); err != nil {
		return sdkerr.InputValidation(op, "Invalid base ECLP parameters", err.Error())
	}
	return nil
}
