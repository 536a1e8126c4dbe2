package liquidity_test

import (
	"bytes"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/validator"
)

var (
	usdc     = pool.TokenRef{Address: common.HexToAddress("0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8"), Decimals: 6}
	usdt     = pool.TokenRef{Address: common.HexToAddress("0xaA8E23Fb1079EA71e0a56F48a2aA51851D8433D0"), Decimals: 6}
	weth     = pool.TokenRef{Address: common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9"), Decimals: 18}
	waUSDC   = pool.TokenRef{Address: common.HexToAddress("0x8A88124522dbBF1E56352ba3DE1d9F78C143751e"), Decimals: 6}
	poolAddr = common.HexToAddress("0xE69b70a86A4e1fD33DA95693A1aE12Be1c26C8ea")

	sepoliaRouter = common.HexToAddress("0x0BF61f706105EA44694f2e92986bD01C39930280")
	sepolia       = liquidity.ChainParams{ChainID: consts.Sepolia, RPCURL: "http://localhost:8545"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, registry *addresses.Registry) (*liquidity.Service, *liquidity.MockCaller) {
	t.Helper()
	if registry == nil {
		registry = addresses.DefaultRegistry()
	}
	mock := liquidity.NewMockCaller()
	svc := liquidity.NewService(registry, validator.NewDispatcher(discardLogger()), discardLogger(),
		liquidity.WithDialer(mock.Dial))
	return svc, mock
}

// stablePool is a 1000 USDC / 1000 USDT v3 pool with 2000 BPT outstanding
func stablePool() *pool.State {
	return &pool.State{
		Address:         poolAddr,
		Type:            pool.Stable,
		ProtocolVersion: consts.ProtocolV3,
		TotalShares:     mul(big.NewInt(2000), consts.Wad()),
		Tokens: []pool.Token{
			{Address: usdc.Address, Decimals: 6, Index: 0, Balance: big.NewInt(1_000_000_000)},
			{Address: usdt.Address, Decimals: 6, Index: 1, Balance: big.NewInt(1_000_000_000)},
		},
	}
}

func mustSlippage(t *testing.T, percentage string) pool.Slippage {
	t.Helper()
	s, err := pool.SlippageFromPercentage(percentage)
	require.NoError(t, err)
	return s
}

func amount(token pool.TokenRef, raw int64) pool.TokenAmount {
	return pool.NewTokenAmount(token, big.NewInt(raw))
}

func mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

// ceilPct returns ceil(a * (100 + pct) / 100)
func ceilPct(a *big.Int, pct int64) *big.Int {
	n := mul(a, big.NewInt(100+pct))
	n.Add(n, big.NewInt(99))
	return n.Quo(n, big.NewInt(100))
}

// floorPct returns floor(a * (100 - pct) / 100)
func floorPct(a *big.Int, pct int64) *big.Int {
	n := mul(a, big.NewInt(100-pct))
	return n.Quo(n, big.NewInt(100))
}

// decode checks the selector of data and unpacks its arguments
func decode(t *testing.T, contract abi.ABI, method string, data []byte) []interface{} {
	t.Helper()
	m, ok := contract.Methods[method]
	require.True(t, ok, "unknown method %s", method)
	require.True(t, len(data) >= 4 && bytes.Equal(data[:4], m.ID), "call data is not %s", method)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func raw(amounts []pool.TokenAmount) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		out[i] = a.Amount
	}
	return out
}

func addrs(amounts []pool.TokenAmount) []common.Address {
	out := make([]common.Address, len(amounts))
	for i, a := range amounts {
		out[i] = a.Token.Address
	}
	return out
}
