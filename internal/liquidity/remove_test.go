package liquidity_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

func TestRemoveLiquidityProportional(t *testing.T) {
	svc, mock := newService(t, nil)
	state := stablePool()
	amountsOut := []*big.Int{big.NewInt(500_123_457), big.NewInt(499_876_543)}
	require.NoError(t, mock.SetResult("queryRemoveLiquidityProportional", amountsOut))

	bptIn := pool.NewTokenAmount(state.BptRef(), consts.Wad())
	q, err := svc.QueryRemoveLiquidity(context.Background(),
		liquidity.RemoveProportionalInput{ChainParams: sepolia, BptIn: bptIn}, state)
	require.NoError(t, err)
	require.Equal(t, amountsOut, raw(q.AmountsOut))
	require.Equal(t, usdc, q.AmountsOut[0].Token)

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "1")})
	require.NoError(t, err)
	require.Equal(t, pool.BoundMinOut, out.BoundKind)
	for i := range amountsOut {
		require.Equal(t, floorPct(amountsOut[i], 1), out.BoundedAmounts[i].Amount)
	}

	call := decode(t, liquidity.RouterABI, "removeLiquidityProportional", out.CallData)
	require.Equal(t, consts.Wad(), call[1])
	require.Equal(t, raw(out.BoundedAmounts), call[2])
}

func TestRemoveLiquiditySingleTokenExactIn(t *testing.T) {
	svc, mock := newService(t, nil)
	require.NoError(t, mock.SetResult("queryRemoveLiquiditySingleTokenExactIn", big.NewInt(999_000)))

	state := stablePool()
	in := liquidity.RemoveSingleTokenExactInInput{
		ChainParams: sepolia,
		BptIn:       pool.NewTokenAmount(state.BptRef(), consts.Wad()),
		TokenOut:    usdt.Address,
	}
	q, err := svc.QueryRemoveLiquidity(context.Background(), in, state)
	require.NoError(t, err)
	require.Equal(t, 1, q.TokenOutIndex)

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "1")})
	require.NoError(t, err)
	call := decode(t, liquidity.RouterABI, "removeLiquiditySingleTokenExactIn", out.CallData)
	require.Equal(t, usdt.Address, call[2])
	require.Equal(t, big.NewInt(989_010), call[3])
}

func TestRemoveLiquiditySingleTokenExactOutBoundsBpt(t *testing.T) {
	svc, mock := newService(t, nil)
	bptIn := big.NewInt(1_000_000_000_000_000_001)
	require.NoError(t, mock.SetResult("queryRemoveLiquiditySingleTokenExactOut", bptIn))

	in := liquidity.RemoveSingleTokenExactOutInput{ChainParams: sepolia, AmountOut: amount(usdc, 2_500_000)}
	q, err := svc.QueryRemoveLiquidity(context.Background(), in, stablePool())
	require.NoError(t, err)
	require.Equal(t, bptIn, q.BptIn.Amount)

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "1")})
	require.NoError(t, err)
	require.Equal(t, ceilPct(bptIn, 1), out.BptBound.Amount)

	call := decode(t, liquidity.RouterABI, "removeLiquiditySingleTokenExactOut", out.CallData)
	require.Equal(t, ceilPct(bptIn, 1), call[1])
	require.Equal(t, usdc.Address, call[2])
	require.Equal(t, big.NewInt(2_500_000), call[3])
}

func TestRemoveLiquidityRecovery(t *testing.T) {
	svc, mock := newService(t, nil)
	state := stablePool()
	// recovery exits are allowed on restricted families too
	state.Type = pool.GyroE
	require.NoError(t, mock.SetResult("queryRemoveLiquidityRecovery", []*big.Int{big.NewInt(1_000), big.NewInt(2_001)}))

	in := liquidity.RemoveRecoveryInput{ChainParams: sepolia, BptIn: pool.NewTokenAmount(state.BptRef(), big.NewInt(3e15))}
	q, err := svc.QueryRemoveLiquidityRecovery(context.Background(), in, state)
	require.NoError(t, err)

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "10")})
	require.NoError(t, err)
	call := decode(t, liquidity.RouterABI, "removeLiquidityRecovery", out.CallData)
	require.Equal(t, big.NewInt(3e15), call[1])
	require.Equal(t, []*big.Int{big.NewInt(900), big.NewInt(1_800)}, call[2])
}

func TestRemoveRestrictedKind(t *testing.T) {
	svc, mock := newService(t, nil)
	state := stablePool()
	state.Type = pool.CowAmm

	in := liquidity.RemoveSingleTokenExactOutInput{ChainParams: sepolia, AmountOut: amount(usdc, 1)}
	_, err := svc.QueryRemoveLiquidity(context.Background(), in, state)
	require.ErrorIs(t, err, sdkerr.ErrPoolType)
	require.Contains(t, err.Error(), "Use Remove Liquidity Proportional")
	require.Zero(t, mock.CallCount())
}

func TestRemoveWethIsEthNeedsWrappedNative(t *testing.T) {
	svc, mock := newService(t, nil)
	require.NoError(t, mock.SetResult("queryRemoveLiquidityProportional", []*big.Int{big.NewInt(1), big.NewInt(1)}))

	state := stablePool()
	q, err := svc.QueryRemoveLiquidity(context.Background(),
		liquidity.RemoveProportionalInput{ChainParams: sepolia, BptIn: pool.NewTokenAmount(state.BptRef(), big.NewInt(1))}, state)
	require.NoError(t, err)

	_, err = svc.BuildCall(liquidity.BuildCallInput{Query: q, WethIsEth: true})
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
}
