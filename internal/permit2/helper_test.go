package permit2

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
	"github.com/ThetaSpace/lp-pipeline/internal/signer"
)

var (
	owner = common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	usdc  = pool.TokenRef{Address: common.HexToAddress("0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8"), Decimals: 6}
	usdt  = pool.TokenRef{Address: common.HexToAddress("0xaA8E23Fb1079EA71e0a56F48a2aA51851D8433D0"), Decimals: 6}
)

type fakeReader struct {
	mu     sync.Mutex
	calls  int
	nonces map[common.Address]uint64
	err    error
}

func (f *fakeReader) ReadAllowanceNonce(_ context.Context, _, token, _ common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.nonces[token], nil
}

type fakeSigner struct {
	calls int
	last  apitypes.TypedData
	err   error
}

func (f *fakeSigner) SignTypedData(_ context.Context, _ common.Address, data apitypes.TypedData) ([]byte, error) {
	f.calls++
	f.last = data
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, 65), nil
}

func newTestHelper(reader AllowanceReader, s signer.TypedDataSigner) *Helper {
	return NewHelper(consts.Sepolia, addresses.DefaultRegistry(), reader, s,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func amounts(raw ...int64) []pool.TokenAmount {
	refs := []pool.TokenRef{usdc, usdt}
	out := make([]pool.TokenAmount, len(raw))
	for i, r := range raw {
		out[i] = pool.NewTokenAmount(refs[i], big.NewInt(r))
	}
	return out
}

func TestLengthMismatchFailsBeforeIO(t *testing.T) {
	reader := &fakeReader{}
	sig := &fakeSigner{}
	h := newTestHelper(reader, sig)

	_, err := h.SignAddLiquidityApproval(context.Background(), ApprovalInput{
		Owner:     owner,
		AmountsIn: amounts(1, 2),
		Nonces:    []uint64{0},
	})
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
	require.Contains(t, err.Error(), "Permit2 Signature")
	require.Contains(t, err.Error(), "Nonces length doesn't match amountsIn length")

	_, err = h.SignInitBufferApproval(context.Background(), BufferApprovalInput{
		Owner:              owner,
		WrappedAmountIn:    amounts(1)[0],
		UnderlyingAmountIn: amounts(1, 2)[1],
		Expirations:        []uint64{1, 2, 3},
	})
	require.ErrorContains(t, err, "Expirations length doesn't match amountsIn length")

	require.Zero(t, reader.calls)
	require.Zero(t, sig.calls)
}

func TestNoncesValidatedBeforeIO(t *testing.T) {
	sig := &fakeSigner{}
	h := newTestHelper(nil, sig)

	_, err := h.SignAddLiquidityApproval(context.Background(), ApprovalInput{Owner: owner, AmountsIn: amounts(1, 2)})
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
	require.ErrorContains(t, err, "nonces are required")

	_, err = h.SignAddLiquidityApproval(context.Background(), ApprovalInput{
		Owner:     owner,
		AmountsIn: amounts(1, 2),
		Nonces:    []uint64{0, consts.MaxAllowanceNonce + 1},
	})
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
	require.ErrorContains(t, err, "nonce does not fit uint48")

	permit, err := h.SignAddLiquidityApproval(context.Background(), ApprovalInput{
		Owner:     owner,
		AmountsIn: amounts(1, 2),
		Nonces:    []uint64{0, consts.MaxAllowanceNonce},
	})
	require.NoError(t, err)
	require.Equal(t, consts.MaxAllowanceNonce, permit.Batch.Details[1].Nonce)
	require.Equal(t, 1, sig.calls)
}

func TestResolveReadsNoncesAndDefaults(t *testing.T) {
	reader := &fakeReader{nonces: map[common.Address]uint64{usdc.Address: 3, usdt.Address: 7}}
	sig := &fakeSigner{}
	h := newTestHelper(reader, sig)

	in := ApprovalInput{Owner: owner, AmountsIn: []pool.TokenAmount{
		pool.NewTokenAmount(usdc, big.NewInt(486014)),
		{Token: usdt},
	}}
	permit, err := h.SignAddLiquidityApproval(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 2, reader.calls)
	require.Equal(t, 1, sig.calls)

	d := permit.Batch.Details
	require.Len(t, d, 2)
	require.Equal(t, usdc.Address, d[0].Token)
	require.Equal(t, uint64(3), d[0].Nonce)
	require.Equal(t, big.NewInt(486014), d[0].Amount)
	require.Equal(t, consts.MaxAllowanceExpiration, d[0].Expiration)
	require.Equal(t, uint64(7), d[1].Nonce)
	require.Equal(t, consts.MaxAllowanceTransferAmount(), d[1].Amount)
	require.Equal(t, consts.MaxSigDeadline(), permit.Batch.SigDeadline)
	require.Equal(t, "PermitBatch", sig.last.PrimaryType)
}

func TestGivenNoncesSkipReads(t *testing.T) {
	reader := &fakeReader{}
	h := newTestHelper(reader, &fakeSigner{})

	permit, err := h.SignInitPoolApproval(context.Background(), ApprovalInput{
		Owner:       owner,
		AmountsIn:   amounts(10, 20),
		Nonces:      []uint64{4, 5},
		Expirations: []uint64{1_800_000_000, 1_800_000_001},
	})
	require.NoError(t, err)
	require.Zero(t, reader.calls)
	require.Equal(t, uint64(5), permit.Batch.Details[1].Nonce)
	require.Equal(t, uint64(1_800_000_001), permit.Batch.Details[1].Expiration)
}

func TestSpenderByKind(t *testing.T) {
	reg := addresses.DefaultRegistry()
	contracts, ok := reg.Chain(consts.Sepolia)
	require.True(t, ok)

	h := newTestHelper(&fakeReader{}, &fakeSigner{})
	ctx := context.Background()
	in := ApprovalInput{Owner: owner, AmountsIn: amounts(1)}
	buffer := BufferApprovalInput{Owner: owner, WrappedAmountIn: amounts(1)[0], UnderlyingAmountIn: amounts(1, 2)[1]}
	one := uint64(1)

	for name, tt := range map[string]struct {
		sign func() (*Permit2, error)
		want common.Address
	}{
		"init":        {func() (*Permit2, error) { return h.SignInitPoolApproval(ctx, in) }, contracts.Router},
		"add":         {func() (*Permit2, error) { return h.SignAddLiquidityApproval(ctx, in) }, contracts.Router},
		"boosted":     {func() (*Permit2, error) { return h.SignAddLiquidityBoostedApproval(ctx, in) }, contracts.CompositeLiquidityRouter},
		"nested":      {func() (*Permit2, error) { return h.SignAddLiquidityNestedApproval(ctx, in) }, contracts.CompositeLiquidityRouterNested},
		"buffer add":  {func() (*Permit2, error) { return h.SignAddLiquidityBufferApproval(ctx, buffer) }, contracts.BufferRouter},
		"buffer init": {func() (*Permit2, error) { return h.SignInitBufferApproval(ctx, buffer) }, contracts.BufferRouter},
		"swap": {func() (*Permit2, error) {
			return h.SignSwapApproval(ctx, SwapApprovalInput{Owner: owner, MaxAmountIn: amounts(1)[0], Nonce: &one})
		}, contracts.Router},
		"swap multi path": {func() (*Permit2, error) {
			return h.SignSwapApproval(ctx, SwapApprovalInput{Owner: owner, MaxAmountIn: amounts(1)[0], MultiPath: true})
		}, contracts.BatchRouter},
	} {
		permit, err := tt.sign()
		require.NoError(t, err, name)
		require.Equal(t, tt.want, permit.Batch.Spender, name)
	}
}

func TestBufferApprovalOrder(t *testing.T) {
	h := newTestHelper(&fakeReader{}, &fakeSigner{})
	permit, err := h.SignAddLiquidityBufferApproval(context.Background(), BufferApprovalInput{
		Owner:              owner,
		WrappedAmountIn:    pool.NewTokenAmount(usdt, big.NewInt(2)),
		UnderlyingAmountIn: pool.NewTokenAmount(usdc, big.NewInt(1)),
	})
	require.NoError(t, err)
	require.Equal(t, usdt.Address, permit.Batch.Details[0].Token)
	require.Equal(t, usdc.Address, permit.Batch.Details[1].Token)
}

func TestErrorsAreClassified(t *testing.T) {
	boom := errors.New("boom")

	_, err := newTestHelper(&fakeReader{err: boom}, &fakeSigner{}).
		SignAddLiquidityApproval(context.Background(), ApprovalInput{Owner: owner, AmountsIn: amounts(1)})
	require.ErrorIs(t, err, sdkerr.ErrQuery)
	require.ErrorIs(t, err, boom)

	_, err = newTestHelper(&fakeReader{}, &fakeSigner{err: boom}).
		SignAddLiquidityApproval(context.Background(), ApprovalInput{Owner: owner, AmountsIn: amounts(1)})
	require.ErrorIs(t, err, sdkerr.ErrSigning)
	require.ErrorIs(t, err, boom)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 160)
	_, err = newTestHelper(&fakeReader{}, &fakeSigner{}).SignAddLiquidityApproval(context.Background(),
		ApprovalInput{Owner: owner, AmountsIn: []pool.TokenAmount{pool.NewTokenAmount(usdc, tooBig)}})
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
}

func TestSignedBatchRecoversOwner(t *testing.T) {
	s, err := signer.NewSignerFromHex("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Equal(t, owner, s.GetAddress())

	h := newTestHelper(&fakeReader{}, s)
	permit, err := h.SignAddLiquidityApproval(context.Background(), ApprovalInput{Owner: owner, AmountsIn: amounts(5, 6)})
	require.NoError(t, err)
	require.Len(t, permit.Signature, 65)

	digest, err := digest(permit.Batch, common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"), consts.Sepolia)
	require.NoError(t, err)
	raw := append([]byte{}, permit.Signature...)
	raw[64] -= 27
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	require.NoError(t, err)
	require.Equal(t, owner, crypto.PubkeyToAddress(*pub))
}
