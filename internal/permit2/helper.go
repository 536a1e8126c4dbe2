package permit2

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
	"github.com/ThetaSpace/lp-pipeline/internal/signer"
)

// operation label of every approval error
const opSignature = "Permit2 Signature"

// ApprovalInput describes the tokens a router will pull. A nil amount grants
// the maximum allowance. Nonces and Expirations are optional; when given they
// must have one entry per amount.
type ApprovalInput struct {
	Owner       common.Address
	AmountsIn   []pool.TokenAmount
	Nonces      []uint64
	Expirations []uint64
}

// BufferApprovalInput describes the two deposits of a buffer operation.
// Nonces and Expirations are ordered wrapped first, then underlying.
type BufferApprovalInput struct {
	Owner              common.Address
	WrappedAmountIn    pool.TokenAmount
	UnderlyingAmountIn pool.TokenAmount
	Nonces             []uint64
	Expirations        []uint64
}

// SwapApprovalInput describes the input side of a swap. MultiPath selects the
// batch router as spender.
type SwapApprovalInput struct {
	Owner       common.Address
	MaxAmountIn pool.TokenAmount
	MultiPath   bool
	Nonce       *uint64
	Expiration  *uint64
}

// Helper signs Permit2 batches for the routers of one chain. Each call
// resolves the batch first (nonce reads run concurrently) and then makes a
// single signature request.
type Helper struct {
	chainID  consts.ChainID
	registry *addresses.Registry
	reader   AllowanceReader
	signer   signer.TypedDataSigner
	logger   *slog.Logger
}

// NewHelper creates an approval helper for a chain
func NewHelper(chainID consts.ChainID, registry *addresses.Registry, reader AllowanceReader, s signer.TypedDataSigner, logger *slog.Logger) *Helper {
	return &Helper{
		chainID:  chainID,
		registry: registry,
		reader:   reader,
		signer:   s,
		logger:   logger.With("component", "Permit2", "chainId", chainID),
	}
}

// SignInitPoolApproval signs the init amounts for the Router
func (h *Helper) SignInitPoolApproval(ctx context.Context, in ApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.Router, in)
}

// SignAddLiquidityApproval signs the build-call maxAmountsIn for the Router
func (h *Helper) SignAddLiquidityApproval(ctx context.Context, in ApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.Router, in)
}

// SignAddLiquidityBoostedApproval signs the build-call maxAmountsIn for the
// composite liquidity router
func (h *Helper) SignAddLiquidityBoostedApproval(ctx context.Context, in ApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.CompositeLiquidityRouter, in)
}

// SignAddLiquidityNestedApproval signs the raw amounts in for the nested
// composite router
func (h *Helper) SignAddLiquidityNestedApproval(ctx context.Context, in ApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.CompositeLiquidityRouterNested, in)
}

// SignAddLiquidityBufferApproval signs both buffer deposits for the buffer router
func (h *Helper) SignAddLiquidityBufferApproval(ctx context.Context, in BufferApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.BufferRouter, in.approval())
}

// SignInitBufferApproval signs both buffer deposits for the buffer router
func (h *Helper) SignInitBufferApproval(ctx context.Context, in BufferApprovalInput) (*Permit2, error) {
	return h.signAmounts(ctx, addresses.BufferRouter, in.approval())
}

// SignSwapApproval signs the swap's maximum amount in. Single path swaps go
// through the Router, multi path swaps through the BatchRouter.
func (h *Helper) SignSwapApproval(ctx context.Context, in SwapApprovalInput) (*Permit2, error) {
	spender := addresses.Router
	if in.MultiPath {
		spender = addresses.BatchRouter
	}
	approval := ApprovalInput{Owner: in.Owner, AmountsIn: []pool.TokenAmount{in.MaxAmountIn}}
	if in.Nonce != nil {
		approval.Nonces = []uint64{*in.Nonce}
	}
	if in.Expiration != nil {
		approval.Expirations = []uint64{*in.Expiration}
	}
	return h.signAmounts(ctx, spender, approval)
}

func (in BufferApprovalInput) approval() ApprovalInput {
	return ApprovalInput{
		Owner:       in.Owner,
		AmountsIn:   []pool.TokenAmount{in.WrappedAmountIn, in.UnderlyingAmountIn},
		Nonces:      in.Nonces,
		Expirations: in.Expirations,
	}
}

func (h *Helper) signAmounts(ctx context.Context, spenderName string, in ApprovalInput) (*Permit2, error) {
	if err := validateNoncesAndExpirations(in.Nonces, in.Expirations, len(in.AmountsIn)); err != nil {
		return nil, err
	}
	spender, err := h.registry.Lookup(h.chainID, spenderName)
	if err != nil {
		return nil, sdkerr.InputValidation(opSignature, fmt.Sprintf("%s not available", spenderName), err.Error())
	}
	batch, err := h.Resolve(ctx, in, spender)
	if err != nil {
		return nil, err
	}
	return h.Sign(ctx, in.Owner, batch)
}

// Resolve builds the unsigned batch. Missing nonces are read from Permit2
// concurrently; all reads join before Resolve returns.
func (h *Helper) Resolve(ctx context.Context, in ApprovalInput, spender common.Address) (PermitBatch, error) {
	if err := validateNoncesAndExpirations(in.Nonces, in.Expirations, len(in.AmountsIn)); err != nil {
		return PermitBatch{}, err
	}

	details := make([]PermitDetails, len(in.AmountsIn))
	for i, a := range in.AmountsIn {
		amount := consts.MaxAllowanceTransferAmount()
		if a.Amount != nil {
			if a.Amount.Sign() < 0 || a.Amount.BitLen() > 160 {
				return PermitBatch{}, sdkerr.InputValidation(opSignature, "amount does not fit uint160", a.String())
			}
			amount = new(big.Int).Set(a.Amount)
		}
		expiration := consts.MaxAllowanceExpiration
		if in.Expirations != nil {
			expiration = in.Expirations[i]
			if expiration > consts.MaxAllowanceExpiration {
				return PermitBatch{}, sdkerr.InputValidation(opSignature, "expiration does not fit uint48",
					fmt.Sprintf("%d", expiration))
			}
		}
		details[i] = PermitDetails{Token: a.Token.Address, Amount: amount, Expiration: expiration}
	}

	if in.Nonces != nil {
		for i := range details {
			if in.Nonces[i] > consts.MaxAllowanceNonce {
				return PermitBatch{}, sdkerr.InputValidation(opSignature, "nonce does not fit uint48",
					fmt.Sprintf("%d", in.Nonces[i]))
			}
			details[i].Nonce = in.Nonces[i]
		}
	} else {
		if h.reader == nil {
			return PermitBatch{}, sdkerr.InputValidation(opSignature, "nonces are required without an allowance reader")
		}
		g, gctx := errgroup.WithContext(ctx)
		for i := range details {
			i := i
			g.Go(func() error {
				nonce, err := h.reader.ReadAllowanceNonce(gctx, in.Owner, details[i].Token, spender)
				if err != nil {
					return err
				}
				details[i].Nonce = nonce
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return PermitBatch{}, sdkerr.Query(opSignature, fmt.Errorf("read allowance nonce: %w", err))
		}
	}

	return PermitBatch{
		Details:     details,
		Spender:     spender,
		SigDeadline: consts.MaxSigDeadline(),
	}, nil
}

// Sign requests one signature over the whole batch
func (h *Helper) Sign(ctx context.Context, owner common.Address, batch PermitBatch) (*Permit2, error) {
	permit2, err := h.registry.Permit2(h.chainID)
	if err != nil {
		return nil, sdkerr.InputValidation(opSignature, "permit2 not available", err.Error())
	}

	sig, err := h.signer.SignTypedData(ctx, owner, TypedData(batch, permit2, h.chainID))
	if err != nil {
		return nil, sdkerr.Signing(opSignature, err)
	}

	h.logger.Info("signed permit batch",
		"owner", owner.Hex(),
		"spender", batch.Spender.Hex(),
		"tokens", len(batch.Details))
	return &Permit2{Batch: batch, Signature: sig}, nil
}

func validateNoncesAndExpirations(nonces, expirations []uint64, expected int) error {
	if nonces != nil && len(nonces) != expected {
		return sdkerr.InputValidation(opSignature, "Nonces length doesn't match amountsIn length",
			fmt.Sprintf("got %d, want %d", len(nonces), expected))
	}
	if expirations != nil && len(expirations) != expected {
		return sdkerr.InputValidation(opSignature, "Expirations length doesn't match amountsIn length",
			fmt.Sprintf("got %d, want %d", len(expirations), expected))
	}
	return nil
}
