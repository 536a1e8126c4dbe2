package liquidity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/permit2"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// BuildCall converts a query result into slippage bounded call parameters.
// It performs no I/O and never mutates the query output.
//
// Amounts the caller pays are bounded up (maxIn), amounts the caller
// receives are bounded down (minOut). Token order follows the query.
func (s *Service) BuildCall(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	if q == nil {
		return nil, sdkerr.InputValidation("Build Call", "query output is required")
	}

	var (
		out *BuildCallOutput
		err error
	)
	switch q.Operation {
	case OpInitPool:
		out, err = s.buildInit(in)
	case OpAddUnbalanced, OpAddProportional, OpAddSingleToken:
		out, err = s.buildAdd(in)
	case OpRemoveProportional, OpRemoveSingleTokenExactIn, OpRemoveSingleTokenExactOut, OpRemoveRecovery:
		out, err = s.buildRemove(in)
	case OpAddBoostedUnbalanced, OpAddBoostedProportional:
		out, err = s.buildAddBoosted(in)
	case OpInitBuffer, OpAddBuffer:
		out, err = s.buildBuffer(in)
	default:
		return nil, sdkerr.InputValidation("Build Call", fmt.Sprintf("unknown operation %q", q.Operation))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("call built",
		"operation", q.Operation,
		"to", out.To.Hex(),
		"bound", out.BoundKind,
		"slippage", in.Slippage.Percentage(),
		"value", out.Value.String())
	return out, nil
}

// BuildCallWithPermit2 builds the call and wraps it in the router's
// permitBatchAndCall so the signed Permit2 batch grants the allowances in the
// same transaction.
func (s *Service) BuildCallWithPermit2(in BuildCallInput, permit permit2.Permit2) (*BuildCallOutput, error) {
	if in.Query == nil {
		return nil, sdkerr.InputValidation("Build Call With Permit2", "query output is required")
	}
	if err := s.validator.ValidateBuildCallWithPermit2(in.Query.ProtocolVersion); err != nil {
		return nil, err
	}
	out, err := s.BuildCall(in)
	if err != nil {
		return nil, err
	}
	callData, err := packPermitBatchAndCall(permit, out.CallData)
	if err != nil {
		return nil, err
	}
	wrapped := *out
	wrapped.CallData = callData
	return &wrapped, nil
}

type abiPermitApproval struct {
	Token    common.Address
	Owner    common.Address
	Spender  common.Address
	Amount   *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

type abiPermitDetails struct {
	Token      common.Address
	Amount     *big.Int
	Expiration *big.Int
	Nonce      *big.Int
}

type abiPermitBatch struct {
	Details     []abiPermitDetails
	Spender     common.Address
	SigDeadline *big.Int
}

func packPermitBatchAndCall(permit permit2.Permit2, callData []byte) ([]byte, error) {
	details := make([]abiPermitDetails, len(permit.Batch.Details))
	for i, d := range permit.Batch.Details {
		details[i] = abiPermitDetails{
			Token:      d.Token,
			Amount:     d.Amount,
			Expiration: new(big.Int).SetUint64(d.Expiration),
			Nonce:      new(big.Int).SetUint64(d.Nonce),
		}
	}
	batch := abiPermitBatch{
		Details:     details,
		Spender:     permit.Batch.Spender,
		SigDeadline: permit.Batch.SigDeadline,
	}
	data, err := routerABI.Pack("permitBatchAndCall",
		[]abiPermitApproval{},
		[][]byte{},
		batch,
		permit.Signature,
		[][]byte{callData},
	)
	if err != nil {
		return nil, fmt.Errorf("pack permitBatchAndCall: %w", err)
	}
	return data, nil
}

func (s *Service) buildInit(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	tokens := make([]common.Address, len(q.AmountsIn))
	exact := make([]*big.Int, len(q.AmountsIn))
	for i, a := range q.AmountsIn {
		tokens[i] = a.Token.Address
		exact[i] = a.Amount
	}
	value, err := s.nativeValue(q, q.AmountsIn, in.WethIsEth)
	if err != nil {
		return nil, err
	}
	data, err := routerABI.Pack("initialize", q.PoolAddress, tokens, exact, q.BptOut.Amount, in.WethIsEth, userData(q.UserData))
	if err != nil {
		return nil, fmt.Errorf("pack initialize: %w", err)
	}
	return &BuildCallOutput{
		To:             q.To,
		CallData:       data,
		Value:          value,
		BoundKind:      pool.BoundMaxIn,
		BoundedAmounts: copyAmounts(q.AmountsIn),
		BptBound:       pool.NewTokenAmount(q.BptOut.Token, q.BptOut.Amount),
	}, nil
}

func (s *Service) buildAdd(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	out := &BuildCallOutput{To: q.To, BoundKind: pool.BoundMaxIn}

	var (
		data []byte
		err  error
	)
	switch q.Operation {
	case OpAddUnbalanced:
		// amounts in are exact, only the BPT received is bounded
		out.BoundedAmounts = copyAmounts(q.AmountsIn)
		if out.BptBound, err = in.Slippage.ApplyToAmount(q.BptOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		data, err = routerABI.Pack("addLiquidityUnbalanced", q.PoolAddress, rawAmounts(out.BoundedAmounts),
			out.BptBound.Amount, in.WethIsEth, userData(q.UserData))

	case OpAddProportional:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsIn, pool.BoundMaxIn); err != nil {
			return nil, boundError(q.Operation, err)
		}
		out.BptBound = pool.NewTokenAmount(q.BptOut.Token, q.BptOut.Amount)
		data, err = routerABI.Pack("addLiquidityProportional", q.PoolAddress, rawAmounts(out.BoundedAmounts),
			out.BptBound.Amount, in.WethIsEth, userData(q.UserData))

	case OpAddSingleToken:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsIn, pool.BoundMaxIn); err != nil {
			return nil, boundError(q.Operation, err)
		}
		if q.TokenInIndex < 0 || q.TokenInIndex >= len(out.BoundedAmounts) {
			return nil, sdkerr.InputValidation(string(q.Operation), "query output has no token in")
		}
		tokenIn := out.BoundedAmounts[q.TokenInIndex]
		out.BptBound = pool.NewTokenAmount(q.BptOut.Token, q.BptOut.Amount)
		data, err = routerABI.Pack("addLiquiditySingleTokenExactOut", q.PoolAddress, tokenIn.Token.Address,
			tokenIn.Amount, out.BptBound.Amount, in.WethIsEth, userData(q.UserData))
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

func (s *Service) buildRemove(in BuildCallInput) (*BuildCallOutput, error) {
	q := in.Query
	out := &BuildCallOutput{To: q.To, BoundKind: pool.BoundMinOut, Value: new(big.Int)}

	if in.WethIsEth && q.Operation != OpRemoveRecovery {
		if _, err := s.nativeValue(q, q.AmountsOut, true); err != nil {
			return nil, err
		}
	}

	var (
		data []byte
		err  error
	)
	switch q.Operation {
	case OpRemoveProportional:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		out.BptBound = pool.NewTokenAmount(q.BptIn.Token, q.BptIn.Amount)
		data, err = routerABI.Pack("removeLiquidityProportional", q.PoolAddress, out.BptBound.Amount,
			rawAmounts(out.BoundedAmounts), in.WethIsEth, userData(q.UserData))

	case OpRemoveSingleTokenExactIn:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		if q.TokenOutIndex < 0 || q.TokenOutIndex >= len(out.BoundedAmounts) {
			return nil, sdkerr.InputValidation(string(q.Operation), "query output has no token out")
		}
		tokenOut := out.BoundedAmounts[q.TokenOutIndex]
		out.BptBound = pool.NewTokenAmount(q.BptIn.Token, q.BptIn.Amount)
		data, err = routerABI.Pack("removeLiquiditySingleTokenExactIn", q.PoolAddress, out.BptBound.Amount,
			tokenOut.Token.Address, tokenOut.Amount, in.WethIsEth, userData(q.UserData))

	case OpRemoveSingleTokenExactOut:
		// amount out is exact, only the BPT paid is bounded
		out.BoundedAmounts = copyAmounts(q.AmountsOut)
		if q.TokenOutIndex < 0 || q.TokenOutIndex >= len(out.BoundedAmounts) {
			return nil, sdkerr.InputValidation(string(q.Operation), "query output has no token out")
		}
		if out.BptBound, err = in.Slippage.ApplyToAmount(q.BptIn, pool.BoundMaxIn); err != nil {
			return nil, boundError(q.Operation, err)
		}
		tokenOut := out.BoundedAmounts[q.TokenOutIndex]
		data, err = routerABI.Pack("removeLiquiditySingleTokenExactOut", q.PoolAddress, out.BptBound.Amount,
			tokenOut.Token.Address, tokenOut.Amount, in.WethIsEth, userData(q.UserData))

	case OpRemoveRecovery:
		if out.BoundedAmounts, err = applySlippage(in.Slippage, q.AmountsOut, pool.BoundMinOut); err != nil {
			return nil, boundError(q.Operation, err)
		}
		out.BptBound = pool.NewTokenAmount(q.BptIn.Token, q.BptIn.Amount)
		data, err = routerABI.Pack("removeLiquidityRecovery", q.PoolAddress, out.BptBound.Amount,
			rawAmounts(out.BoundedAmounts))
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", q.Operation, err)
	}
	out.CallData = data
	return out, nil
}

// nativeValue returns the wei attached to a call. With wethIsEth the wrapped
// native token must be one of the amounts; for joins its amount is sent as
// value, exits attach nothing.
func (s *Service) nativeValue(q *QueryOutput, amounts []pool.TokenAmount, wethIsEth bool) (*big.Int, error) {
	if !wethIsEth {
		return new(big.Int), nil
	}
	wrapped, ok := s.registry.WrappedNativeToken(q.ChainID)
	if !ok {
		return nil, sdkerr.InputValidation(string(q.Operation), "wethIsEth set but no wrapped native token is configured for chain")
	}
	for _, a := range amounts {
		if a.Token.Address == wrapped {
			if isExit(q.Operation) {
				return new(big.Int), nil
			}
			return new(big.Int).Set(a.Amount), nil
		}
	}
	return nil, sdkerr.InputValidation(string(q.Operation), "wethIsEth set but the wrapped native token is not part of the operation",
		wrapped.Hex())
}

func isExit(op Operation) bool {
	switch op {
	case OpRemoveProportional, OpRemoveSingleTokenExactIn, OpRemoveSingleTokenExactOut, OpRemoveRecovery:
		return true
	}
	return false
}

func applySlippage(s pool.Slippage, amounts []pool.TokenAmount, bound pool.Bound) ([]pool.TokenAmount, error) {
	out := make([]pool.TokenAmount, len(amounts))
	for i, a := range amounts {
		b, err := s.ApplyToAmount(a, bound)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func copyAmounts(amounts []pool.TokenAmount) []pool.TokenAmount {
	out := make([]pool.TokenAmount, len(amounts))
	for i, a := range amounts {
		out[i] = pool.NewTokenAmount(a.Token, a.Amount)
	}
	return out
}

func rawAmounts(amounts []pool.TokenAmount) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		out[i] = a.Amount
	}
	return out
}

func boundError(op Operation, err error) error {
	return sdkerr.InputValidation(string(op), "cannot apply slippage", err.Error())
}
