package runner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/permit2"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/validator"
)

// prepared is a request converted into pipeline inputs. Exactly one of the
// input fields is set.
type prepared struct {
	req   *Request
	state *pool.State

	init       *liquidity.InitInput
	add        liquidity.AddLiquidityInput
	remove     liquidity.RemoveLiquidityInput
	recovery   *liquidity.RemoveRecoveryInput
	boosted    liquidity.AddBoostedInput
	initBuffer *liquidity.InitBufferInput
	addBuffer  *liquidity.AddBufferInput
	create     *liquidity.CreatePoolInput
}

// Validate converts a request and runs the pool family rules on it
func (r *Runner) Validate(req *Request) error {
	switch req.Operation {
	case OpApproveSwap, OpApproveAddNested:
		return validator.ValidateChain(consts.ChainID(req.ChainID))
	}
	p, err := r.prepare(req, "")
	if err != nil {
		return err
	}
	switch {
	case p.init != nil:
		return r.validator.ValidateInitPool(*p.init, p.state)
	case p.add != nil:
		return r.validator.ValidateAddLiquidity(p.add, p.state)
	case p.remove != nil:
		return r.validator.ValidateRemoveLiquidity(p.remove, p.state)
	case p.recovery != nil:
		return r.validator.ValidateRemoveLiquidityRecovery(*p.recovery, p.state)
	case p.boosted != nil:
		return r.validator.ValidateAddLiquidityBoosted(p.boosted, p.state)
	case p.create != nil:
		return r.validator.ValidateCreatePool(*p.create)
	default:
		// buffers are not pools, only the chain is checked
		return validator.ValidateChain(consts.ChainID(req.ChainID))
	}
}

// Execute runs one request through query and build call, wrapping the call
// in a Permit2 signature when the request asks for one
func (r *Runner) Execute(ctx context.Context, req *Request) (*Result, error) {
	switch req.Operation {
	case OpApproveSwap, OpApproveAddNested:
		return r.Approve(ctx, req)
	}

	if err := validator.ValidateChain(consts.ChainID(req.ChainID)); err != nil {
		return nil, err
	}
	rpcURL := ""
	if req.Operation != OpCreatePool {
		chain := r.cfg.Chain(req.ChainID)
		if chain == nil {
			return nil, fmt.Errorf("chain %d has no rpcUrl configured", req.ChainID)
		}
		rpcURL = chain.RPCURL
	}
	p, err := r.prepare(req, rpcURL)
	if err != nil {
		return nil, err
	}

	if p.create != nil {
		out, err := r.service.BuildCreatePool(*p.create)
		if err != nil {
			return nil, err
		}
		return newResult(req, nil, out), nil
	}

	q, err := r.query(ctx, p)
	if err != nil {
		return nil, err
	}
	slippage, err := r.slippage(req)
	if err != nil {
		return nil, err
	}
	in := liquidity.BuildCallInput{Query: q, Slippage: slippage, WethIsEth: req.WethIsEth}

	if req.Permit2 == nil {
		out, err := r.service.BuildCall(in)
		if err != nil {
			return nil, err
		}
		return newResult(req, q, out), nil
	}

	if err := r.validator.ValidateBuildCallWithPermit2(q.ProtocolVersion); err != nil {
		return nil, err
	}
	// the approval covers the bounded amounts of the plain call
	plain, err := r.service.BuildCall(in)
	if err != nil {
		return nil, err
	}
	permit, err := r.signForCall(ctx, req, rpcURL, q, plain)
	if err != nil {
		return nil, err
	}
	out, err := r.service.BuildCallWithPermit2(in, *permit)
	if err != nil {
		return nil, err
	}
	res := newResult(req, q, out)
	res.Permit2 = newPermitResult(permit)
	return res, nil
}

// Approve signs a Permit2 batch for operations built outside this pipeline
// (swaps, nested pool adds)
func (r *Runner) Approve(ctx context.Context, req *Request) (*Result, error) {
	if req.Permit2 == nil {
		req.Permit2 = &PermitSpec{}
	}
	var rpcURL string
	if chain := r.cfg.Chain(req.ChainID); chain != nil {
		rpcURL = chain.RPCURL
	}
	helper, owner, done, err := r.permitHelper(ctx, req, rpcURL, nil)
	if err != nil {
		return nil, err
	}
	defer done()

	var permit *permit2.Permit2
	switch req.Operation {
	case OpApproveSwap:
		if req.Swap == nil {
			return nil, fmt.Errorf("%s requires a swap section", req.Operation)
		}
		maxIn, err := req.amount("swap.maxAmountIn", req.Swap.MaxAmountIn, nil)
		if err != nil {
			return nil, err
		}
		if len(req.Permit2.Nonces) > 1 || len(req.Permit2.Expirations) > 1 {
			return nil, fmt.Errorf("a swap approval takes at most one nonce and one expiration")
		}
		in := permit2.SwapApprovalInput{Owner: owner, MaxAmountIn: maxIn, MultiPath: req.Swap.MultiPath}
		if len(req.Permit2.Nonces) == 1 {
			in.Nonce = &req.Permit2.Nonces[0]
		}
		if len(req.Permit2.Expirations) == 1 {
			in.Expiration = &req.Permit2.Expirations[0]
		}
		permit, err = helper.SignSwapApproval(ctx, in)
		if err != nil {
			return nil, err
		}

	case OpApproveAddNested:
		amounts, err := req.amounts("amountsIn", req.AmountsIn, nil)
		if err != nil {
			return nil, err
		}
		permit, err = helper.SignAddLiquidityNestedApproval(ctx, r.approvalInput(req, owner, amounts))
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("operation %q is not an approval", req.Operation)
	}

	return &Result{
		Operation: req.Operation,
		ChainID:   req.ChainID,
		Permit2:   newPermitResult(permit),
	}, nil
}

// prepare converts a request into the input of its operation
func (r *Runner) prepare(req *Request, rpcURL string) (*prepared, error) {
	p := &prepared{req: req}
	params := req.chainParams(rpcURL)

	switch req.Operation {
	case OpCreatePool:
		in, err := req.buildCreatePool()
		if err != nil {
			return nil, err
		}
		p.create = &in
		return p, nil
	case OpInitBuffer, OpAddBuffer:
		return p, r.prepareBuffer(p, params)
	}

	state, err := req.poolState()
	if err != nil {
		return nil, err
	}
	p.state = state
	userData, err := req.userData()
	if err != nil {
		return nil, err
	}

	switch req.Operation {
	case OpInitPool:
		amounts, err := req.amounts("amountsIn", req.AmountsIn, state)
		if err != nil {
			return nil, err
		}
		in := liquidity.InitInput{ChainParams: params, AmountsIn: amounts, UserData: userData}
		if req.MinBptAmountOut != "" {
			minOut, err := pool.NewTokenAmountFromHuman(state.BptRef(), req.MinBptAmountOut)
			if err != nil {
				return nil, fmt.Errorf("minBptAmountOut: %w", err)
			}
			in.MinBptAmountOut = minOut.Amount
		}
		p.init = &in

	case OpAddUnbalanced:
		amounts, err := req.amounts("amountsIn", req.AmountsIn, state)
		if err != nil {
			return nil, err
		}
		p.add = liquidity.AddUnbalancedInput{ChainParams: params, AmountsIn: amounts, UserData: userData}

	case OpAddProportional:
		ref, err := req.reference(state)
		if err != nil {
			return nil, err
		}
		p.add = liquidity.AddProportionalInput{ChainParams: params, ReferenceAmount: ref, UserData: userData}

	case OpAddSingleToken:
		bpt, err := req.bpt(state)
		if err != nil {
			return nil, err
		}
		token, err := parseAddress("token", req.Token)
		if err != nil {
			return nil, err
		}
		p.add = liquidity.AddSingleTokenInput{ChainParams: params, BptOut: bpt, TokenIn: token, UserData: userData}

	case OpRemoveProportional:
		bpt, err := req.bpt(state)
		if err != nil {
			return nil, err
		}
		p.remove = liquidity.RemoveProportionalInput{ChainParams: params, BptIn: bpt, UserData: userData}

	case OpRemoveSingleTokenExactIn:
		bpt, err := req.bpt(state)
		if err != nil {
			return nil, err
		}
		token, err := parseAddress("token", req.Token)
		if err != nil {
			return nil, err
		}
		p.remove = liquidity.RemoveSingleTokenExactInInput{ChainParams: params, BptIn: bpt, TokenOut: token, UserData: userData}

	case OpRemoveSingleTokenExactOut:
		if req.AmountOut == nil {
			return nil, fmt.Errorf("%s requires amountOut", req.Operation)
		}
		out, err := req.amount("amountOut", *req.AmountOut, state)
		if err != nil {
			return nil, err
		}
		p.remove = liquidity.RemoveSingleTokenExactOutInput{ChainParams: params, AmountOut: out, UserData: userData}

	case OpRemoveRecovery:
		bpt, err := req.bpt(state)
		if err != nil {
			return nil, err
		}
		p.recovery = &liquidity.RemoveRecoveryInput{ChainParams: params, BptIn: bpt}

	case OpAddBoostedUnbalanced:
		amounts, err := req.amounts("amountsIn", req.AmountsIn, state)
		if err != nil {
			return nil, err
		}
		p.boosted = liquidity.AddBoostedUnbalancedInput{ChainParams: params, AmountsIn: amounts, UserData: userData}

	case OpAddBoostedProportional:
		ref, err := req.reference(state)
		if err != nil {
			return nil, err
		}
		tokensIn := make([]common.Address, len(req.TokensIn))
		for i, t := range req.TokensIn {
			if tokensIn[i], err = parseAddress(fmt.Sprintf("tokensIn[%d]", i), t); err != nil {
				return nil, err
			}
		}
		p.boosted = liquidity.AddBoostedProportionalInput{ChainParams: params, ReferenceAmount: ref, TokensIn: tokensIn, UserData: userData}

	default:
		return nil, fmt.Errorf("unknown operation %q", req.Operation)
	}
	return p, nil
}

func (r *Runner) prepareBuffer(p *prepared, params liquidity.ChainParams) error {
	req := p.req
	if req.Buffer == nil {
		return fmt.Errorf("%s requires a buffer section", req.Operation)
	}
	wrapped, err := req.Buffer.WrappedToken.ref("buffer.wrappedToken")
	if err != nil {
		return err
	}
	underlying, err := req.Buffer.UnderlyingToken.ref("buffer.underlyingToken")
	if err != nil {
		return err
	}

	if req.Operation == OpAddBuffer {
		if req.Buffer.ExactSharesToIssue == "" {
			return fmt.Errorf("%s requires buffer.exactSharesToIssue", req.Operation)
		}
		shares, err := pool.NewTokenAmountFromHuman(wrapped, req.Buffer.ExactSharesToIssue)
		if err != nil {
			return fmt.Errorf("buffer.exactSharesToIssue: %w", err)
		}
		p.addBuffer = &liquidity.AddBufferInput{
			ChainParams:        params,
			WrappedToken:       wrapped,
			UnderlyingToken:    underlying,
			ExactSharesToIssue: shares.Amount,
		}
		return nil
	}

	wrappedIn, err := pool.NewTokenAmountFromHuman(wrapped, req.Buffer.WrappedAmountIn)
	if err != nil {
		return fmt.Errorf("buffer.wrappedAmountIn: %w", err)
	}
	underlyingIn, err := pool.NewTokenAmountFromHuman(underlying, req.Buffer.UnderlyingAmountIn)
	if err != nil {
		return fmt.Errorf("buffer.underlyingAmountIn: %w", err)
	}
	p.initBuffer = &liquidity.InitBufferInput{
		ChainParams:        params,
		WrappedToken:       wrapped.Address,
		UnderlyingAmountIn: underlyingIn,
		WrappedAmountIn:    wrappedIn,
	}
	return nil
}

func (r *Runner) query(ctx context.Context, p *prepared) (*liquidity.QueryOutput, error) {
	switch {
	case p.init != nil:
		return r.service.QueryInitPool(ctx, *p.init, p.state)
	case p.add != nil:
		return r.service.QueryAddLiquidity(ctx, p.add, p.state)
	case p.remove != nil:
		return r.service.QueryRemoveLiquidity(ctx, p.remove, p.state)
	case p.recovery != nil:
		return r.service.QueryRemoveLiquidityRecovery(ctx, *p.recovery, p.state)
	case p.boosted != nil:
		return r.service.QueryAddLiquidityBoosted(ctx, p.boosted, p.state)
	case p.initBuffer != nil:
		return r.service.QueryInitBuffer(ctx, *p.initBuffer)
	case p.addBuffer != nil:
		return r.service.QueryAddLiquidityBuffer(ctx, *p.addBuffer)
	}
	return nil, fmt.Errorf("operation %q has no query", p.req.Operation)
}

// signForCall signs the amounts the router of q pulls from the owner
func (r *Runner) signForCall(ctx context.Context, req *Request, rpcURL string, q *liquidity.QueryOutput, plain *liquidity.BuildCallOutput) (*permit2.Permit2, error) {
	helper, owner, done, err := r.permitHelper(ctx, req, rpcURL, q.Block)
	if err != nil {
		return nil, err
	}
	defer done()

	switch q.Operation {
	case liquidity.OpInitPool:
		return helper.SignInitPoolApproval(ctx, r.approvalInput(req, owner, q.AmountsIn))
	case liquidity.OpAddUnbalanced, liquidity.OpAddProportional, liquidity.OpAddSingleToken:
		return helper.SignAddLiquidityApproval(ctx, r.approvalInput(req, owner, plain.BoundedAmounts))
	case liquidity.OpAddBoostedUnbalanced, liquidity.OpAddBoostedProportional:
		return helper.SignAddLiquidityBoostedApproval(ctx, r.approvalInput(req, owner, plain.BoundedAmounts))
	case liquidity.OpInitBuffer, liquidity.OpAddBuffer:
		// buffer amounts are [underlying, wrapped]
		in := permit2.BufferApprovalInput{
			Owner:              owner,
			WrappedAmountIn:    plain.BoundedAmounts[1],
			UnderlyingAmountIn: plain.BoundedAmounts[0],
			Nonces:             req.Permit2.Nonces,
			Expirations:        req.Permit2.Expirations,
		}
		if q.Operation == liquidity.OpInitBuffer {
			return helper.SignInitBufferApproval(ctx, in)
		}
		return helper.SignAddLiquidityBufferApproval(ctx, in)
	}
	return nil, fmt.Errorf("%s does not pay tokens in, permit2 does not apply", q.Operation)
}

func (r *Runner) approvalInput(req *Request, owner common.Address, amounts []pool.TokenAmount) permit2.ApprovalInput {
	return permit2.ApprovalInput{
		Owner:       owner,
		AmountsIn:   amounts,
		Nonces:      req.Permit2.Nonces,
		Expirations: req.Permit2.Expirations,
	}
}

// permitHelper builds a Permit2 helper for the request chain. Nonces are read
// from the node only when the request does not carry them.
func (r *Runner) permitHelper(ctx context.Context, req *Request, rpcURL string, block *big.Int) (*permit2.Helper, common.Address, func(), error) {
	noop := func() {}
	if req.Permit2 == nil {
		return nil, common.Address{}, noop, fmt.Errorf("%s requires a permit2 section", req.Operation)
	}
	if r.signer == nil {
		return nil, common.Address{}, noop, fmt.Errorf("permit2 signing requires a signer key")
	}
	owner := r.signer.GetAddress()
	if req.Permit2.Owner != "" {
		addr, err := parseAddress("permit2.owner", req.Permit2.Owner)
		if err != nil {
			return nil, common.Address{}, noop, err
		}
		owner = addr
	}

	chainID := consts.ChainID(req.ChainID)
	if len(req.Permit2.Nonces) > 0 {
		return permit2.NewHelper(chainID, r.registry, nil, r.signer, r.logger), owner, noop, nil
	}

	if rpcURL == "" {
		return nil, common.Address{}, noop, fmt.Errorf("chain %d has no rpcUrl configured to read permit2 nonces", req.ChainID)
	}
	permit2Addr, err := r.registry.Permit2(chainID)
	if err != nil {
		return nil, common.Address{}, noop, err
	}
	client, err := r.dial(ctx, rpcURL)
	if err != nil {
		return nil, common.Address{}, noop, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	reader := permit2.NewContractReader(client, permit2Addr, block)
	return permit2.NewHelper(chainID, r.registry, reader, r.signer, r.logger), owner, client.Close, nil
}

func (r *Runner) slippage(req *Request) (pool.Slippage, error) {
	if req.Slippage == "" {
		return r.cfg.DefaultSlippage()
	}
	s, err := pool.SlippageFromPercentage(req.Slippage)
	if err != nil {
		return pool.Slippage{}, fmt.Errorf("slippage: %w", err)
	}
	return s, nil
}

// reference parses referenceAmount, falling back to bptAmount
func (r *Request) reference(state *pool.State) (pool.TokenAmount, error) {
	if r.ReferenceAmount != nil {
		return r.amount("referenceAmount", *r.ReferenceAmount, state)
	}
	return r.bpt(state)
}
