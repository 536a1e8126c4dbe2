package liquidity_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

var sepoliaCompositeRouter = common.HexToAddress("0x6A20a4b6DcFF78e6D21BF0dbFfD58C96644DB9cb")

// boostedPool holds waUSDC (an ERC4626 over USDC) and plain USDT
func boostedPool() *pool.State {
	return &pool.State{
		Address:         poolAddr,
		Type:            pool.Boosted,
		ProtocolVersion: consts.ProtocolV3,
		TotalShares:     mul(big.NewInt(2000), consts.Wad()),
		Tokens: []pool.Token{
			{Address: waUSDC.Address, Decimals: 6, Index: 0, Balance: big.NewInt(950_000_000),
				UnderlyingToken: &pool.Underlying{Address: usdc.Address, Decimals: 6, Balance: big.NewInt(1_000_000_000)}},
			{Address: usdt.Address, Decimals: 6, Index: 1, Balance: big.NewInt(1_000_000_000)},
		},
	}
}

func TestAddLiquidityBoostedUnbalancedResolvesWrap(t *testing.T) {
	svc, mock := newService(t, nil)
	bptOut := big.NewInt(1_990_000_000_000_000_000)
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalancedToERC4626Pool", bptOut))

	in := liquidity.AddBoostedUnbalancedInput{ChainParams: sepolia, AmountsIn: []pool.TokenAmount{amount(usdc, 1_000_000)}}
	q, err := svc.QueryAddLiquidityBoosted(context.Background(), in, boostedPool())
	require.NoError(t, err)
	require.Equal(t, sepoliaCompositeRouter, q.To)
	require.Equal(t, []bool{true, false}, q.WrapUnderlying)
	require.Equal(t, []common.Address{usdc.Address, usdt.Address}, addrs(q.AmountsIn))
	require.Equal(t, []*big.Int{big.NewInt(1_000_000), big.NewInt(0)}, raw(q.AmountsIn))

	args := decode(t, liquidity.CompositeRouterABI, "queryAddLiquidityUnbalancedToERC4626Pool", mock.Calls[0].Data)
	require.Equal(t, []bool{true, false}, args[1])

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "2")})
	require.NoError(t, err)
	require.Equal(t, sepoliaCompositeRouter, out.To)
	require.Equal(t, floorPct(bptOut, 2), out.BptBound.Amount)

	call := decode(t, liquidity.CompositeRouterABI, "addLiquidityUnbalancedToERC4626Pool", out.CallData)
	require.Equal(t, []bool{true, false}, call[1])
	require.Equal(t, floorPct(bptOut, 2), call[3])
}

func TestAddLiquidityBoostedProportional(t *testing.T) {
	svc, mock := newService(t, nil)
	require.NoError(t, mock.SetResult("queryAddLiquidityProportionalToERC4626Pool",
		[]common.Address{usdc.Address, usdt.Address},
		[]*big.Int{big.NewInt(481201), big.NewInt(481300)}))

	in := liquidity.AddBoostedProportionalInput{
		ChainParams:     sepolia,
		ReferenceAmount: amount(usdc, 481201),
		TokensIn:        []common.Address{usdc.Address, usdt.Address},
	}
	q, err := svc.QueryAddLiquidityBoosted(context.Background(), in, boostedPool())
	require.NoError(t, err)
	// the underlying reference scales by the underlying balance
	require.Equal(t, mul(big.NewInt(481201), big.NewInt(2_000_000_000_000)), q.BptOut.Amount)
	require.Equal(t, usdc, q.AmountsIn[0].Token)

	out, err := svc.BuildCall(liquidity.BuildCallInput{Query: q, Slippage: mustSlippage(t, "1")})
	require.NoError(t, err)
	require.Equal(t, big.NewInt(486014), out.BoundedAmounts[0].Amount)
	call := decode(t, liquidity.CompositeRouterABI, "addLiquidityProportionalToERC4626Pool", out.CallData)
	require.Equal(t, []bool{true, false}, call[1])
	require.Equal(t, raw(out.BoundedAmounts), call[2])
}

func TestAddLiquidityBoostedRouterTokenMismatch(t *testing.T) {
	svc, mock := newService(t, nil)
	require.NoError(t, mock.SetResult("queryAddLiquidityProportionalToERC4626Pool",
		[]common.Address{waUSDC.Address, usdt.Address},
		[]*big.Int{big.NewInt(1), big.NewInt(1)}))

	in := liquidity.AddBoostedProportionalInput{
		ChainParams:     sepolia,
		ReferenceAmount: pool.NewTokenAmount(boostedPool().BptRef(), consts.Wad()),
		TokensIn:        []common.Address{usdc.Address, usdt.Address},
	}
	_, err := svc.QueryAddLiquidityBoosted(context.Background(), in, boostedPool())
	require.ErrorIs(t, err, sdkerr.ErrQuery)
}

func TestAddLiquidityBoostedRejectsStranger(t *testing.T) {
	svc, mock := newService(t, nil)
	in := liquidity.AddBoostedUnbalancedInput{ChainParams: sepolia, AmountsIn: []pool.TokenAmount{amount(weth, 1)}}
	_, err := svc.QueryAddLiquidityBoosted(context.Background(), in, boostedPool())
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)
	require.Zero(t, mock.CallCount())
}
