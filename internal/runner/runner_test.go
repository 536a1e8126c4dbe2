package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/config"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
	"github.com/ThetaSpace/lp-pipeline/internal/signer"
)

const (
	usdc     = "0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8"
	usdt     = "0xaA8E23Fb1079EA71e0a56F48a2aA51851D8433D0"
	waUSDC   = "0x8A88124522dbBF1E56352ba3DE1d9F78C143751e"
	poolAddr = "0xE69b70a86A4e1fD33DA95693A1aE12Be1c26C8ea"
	factory  = "0x7532d5a3bE916e4a4D900240F49F0BABd4FD855C"
)

const testConfig = `
chains:
  - chainId: 11155111
    rpcUrl: http://localhost:8545
    contracts:
      weightedPoolFactory: "` + factory + `"
slippage: "1"
`

const stablePool = `
pool:
  address: "` + poolAddr + `"
  type: Stable
  totalShares: "2000"
  tokens:
    - {address: "` + usdc + `", decimals: 6, balance: "1000"}
    - {address: "` + usdt + `", decimals: 6, balance: "1000"}
`

const addUnbalanced = `
operation: addUnbalanced
chainId: 11155111
amountsIn:
  - {token: "` + usdt + `", amount: "2"}
  - {token: "` + usdc + `", amount: "1.5"}
` + stablePool

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSigner(t *testing.T) signer.Signer {
	t.Helper()
	s, err := signer.NewSignerFromHex("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	return s
}

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *liquidity.MockCaller, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)

	mock := liquidity.NewMockCaller()
	var out bytes.Buffer
	opts = append([]Option{WithDialer(mock.Dial), WithOutput(&out)}, opts...)
	r, err := New(cfg, discardLogger(), opts...)
	require.NoError(t, err)
	return r, mock, &out
}

func parseRequest(t *testing.T, doc string) *Request {
	t.Helper()
	path := writeRequest(t, t.TempDir(), "request.yaml", doc)
	req, err := LoadRequest(path)
	require.NoError(t, err)
	return req
}

func writeRequest(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func sepoliaContract(t *testing.T, r *Runner, name string) string {
	t.Helper()
	addr, err := r.Registry().Lookup(consts.Sepolia, name)
	require.NoError(t, err)
	return addr.Hex()
}

func TestExecuteAddUnbalanced(t *testing.T) {
	r, mock, _ := newTestRunner(t)
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalanced", big.NewInt(3e18)))

	res, err := r.Execute(context.Background(), parseRequest(t, addUnbalanced))
	require.NoError(t, err)

	require.Equal(t, sepoliaContract(t, r, addresses.Router), res.To)
	require.Equal(t, common.HexToAddress(poolAddr).Hex(), res.Pool)
	require.Equal(t, "0", res.Value)
	require.Equal(t, "maxIn", res.Bound)
	// amounts come back in pool order
	require.Len(t, res.Amounts, 2)
	require.Equal(t, "1500000", res.Amounts[0].Raw)
	require.Equal(t, "1.5", res.Amounts[0].Amount)
	require.Equal(t, "2000000", res.Amounts[1].Raw)
	// 1% from the configured default
	require.Equal(t, "2970000000000000000", res.Bpt.Raw)
	require.Nil(t, res.Permit2)
	require.Equal(t, 1, mock.CallCount())
}

func TestExecuteWithPermit2(t *testing.T) {
	r, mock, _ := newTestRunner(t, WithSigner(testSigner(t)))
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalanced", big.NewInt(3e18)))

	plain, err := r.Execute(context.Background(), parseRequest(t, addUnbalanced))
	require.NoError(t, err)

	res, err := r.Execute(context.Background(), parseRequest(t, addUnbalanced+`
permit2:
  nonces: [4, 9]
`))
	require.NoError(t, err)
	require.NotNil(t, res.Permit2)
	require.Equal(t, plain.To, res.To)
	require.Greater(t, len(res.CallData), len(plain.CallData))

	p := res.Permit2
	require.Equal(t, sepoliaContract(t, r, addresses.Router), p.Spender)
	require.Equal(t, consts.MaxUint256Decimal, p.SigDeadline)
	require.Len(t, p.Signature, 2+65*2)
	require.Len(t, p.Details, 2)
	require.Equal(t, common.HexToAddress(usdc).Hex(), p.Details[0].Token)
	require.Equal(t, "1500000", p.Details[0].Amount)
	require.Equal(t, uint64(4), p.Details[0].Nonce)
	require.Equal(t, consts.MaxAllowanceExpiration, p.Details[0].Expiration)
	require.Equal(t, uint64(9), p.Details[1].Nonce)

	// nonces were given, the node is only used for the queries
	require.Equal(t, 2, mock.CallCount())
}

func TestExecutePermit2Errors(t *testing.T) {
	r, mock, _ := newTestRunner(t)
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalanced", big.NewInt(3e18)))

	_, err := r.Execute(context.Background(), parseRequest(t, addUnbalanced+"permit2: {nonces: [0, 0]}\n"))
	require.ErrorContains(t, err, "requires a signer key")

	signed, signedMock, _ := newTestRunner(t, WithSigner(testSigner(t)))
	require.NoError(t, signedMock.SetResult("queryRemoveLiquidityProportional", []*big.Int{big.NewInt(1), big.NewInt(1)}))
	remove := `
operation: removeProportional
chainId: 11155111
bptAmount: "1"
permit2: {nonces: [0, 0]}
` + stablePool
	_, err = signed.Execute(context.Background(), parseRequest(t, remove))
	require.ErrorContains(t, err, "permit2 does not apply")

	v2 := addUnbalanced + "permit2: {nonces: [0, 0]}\n"
	req := parseRequest(t, v2)
	req.Pool.ProtocolVersion = consts.ProtocolV2
	_, err = signed.Execute(context.Background(), req)
	require.ErrorIs(t, err, sdkerr.ErrProtocolVersion)
}

func TestExecuteRequestErrors(t *testing.T) {
	r, mock, _ := newTestRunner(t)
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalanced", big.NewInt(3e18)))

	_, err := r.Execute(context.Background(), parseRequest(t, addUnbalanced+"slippage: \"100\"\n"))
	require.ErrorIs(t, err, sdkerr.ErrInputValidation)

	unsupported := parseRequest(t, addUnbalanced)
	unsupported.ChainID = 5
	_, err = r.Execute(context.Background(), unsupported)
	require.ErrorIs(t, err, sdkerr.ErrUnsupportedChain)
	require.ErrorContains(t, err, "Unsupported chainId: 5")

	// supported but missing from the config
	unconfigured := parseRequest(t, addUnbalanced)
	unconfigured.ChainID = uint64(consts.Mainnet)
	_, err = r.Execute(context.Background(), unconfigured)
	require.ErrorContains(t, err, "no rpcUrl configured")

	require.Equal(t, 1, mock.CallCount())
}

func TestExecuteInitBufferWithPermit2(t *testing.T) {
	r, mock, _ := newTestRunner(t, WithSigner(testSigner(t)))
	require.NoError(t, mock.SetResult("queryInitializeBuffer", big.NewInt(1_999_000)))

	res, err := r.Execute(context.Background(), parseRequest(t, `
operation: initBuffer
chainId: 11155111
buffer:
  wrappedToken: {address: "`+waUSDC+`", decimals: 6}
  underlyingToken: {address: "`+usdc+`", decimals: 6}
  wrappedAmountIn: "1"
  underlyingAmountIn: "1"
permit2:
  nonces: [0, 0]
`))
	require.NoError(t, err)
	require.Equal(t, sepoliaContract(t, r, addresses.BufferRouter), res.To)
	require.Equal(t, sepoliaContract(t, r, addresses.BufferRouter), res.Permit2.Spender)
	// the batch lists the wrapped deposit first
	require.Equal(t, common.HexToAddress(waUSDC).Hex(), res.Permit2.Details[0].Token)
	require.Equal(t, common.HexToAddress(usdc).Hex(), res.Permit2.Details[1].Token)
	require.Equal(t, "1979010", res.Bpt.Raw)
}

func TestExecuteCreatePool(t *testing.T) {
	r, mock, _ := newTestRunner(t)

	res, err := r.Execute(context.Background(), parseRequest(t, `
operation: createPool
chainId: 11155111
createPool:
  type: Weighted
  name: 80USDT-20USDC
  symbol: 80USDT-20USDC
  swapFee: "1"
  salt: "0x01"
  tokens:
    - {address: "`+usdt+`", weight: "80"}
    - {address: "`+usdc+`", weight: "20"}
`))
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(factory).Hex(), res.To)
	require.Empty(t, res.Pool)
	require.Zero(t, mock.Dials)
}

func TestApproveSwap(t *testing.T) {
	r, _, _ := newTestRunner(t, WithSigner(testSigner(t)))

	swap := `
operation: approveSwap
chainId: 11155111
swap:
  multiPath: %s
  maxAmountIn: {token: "` + usdc + `", amount: "10", decimals: 6}
permit2:
  nonces: [7]
`
	for multiPath, spender := range map[bool]string{false: addresses.Router, true: addresses.BatchRouter} {
		res, err := r.Execute(context.Background(), parseRequest(t, fmt.Sprintf(swap, strconv.FormatBool(multiPath))))
		require.NoError(t, err)
		require.Empty(t, res.To)
		require.Equal(t, sepoliaContract(t, r, spender), res.Permit2.Spender)
		require.Equal(t, "10000000", res.Permit2.Details[0].Amount)
		require.Equal(t, uint64(7), res.Permit2.Details[0].Nonce)
	}
}

func TestApproveAddNested(t *testing.T) {
	r, _, _ := newTestRunner(t, WithSigner(testSigner(t)))

	res, err := r.Approve(context.Background(), parseRequest(t, `
operation: approveAddNested
chainId: 11155111
amountsIn:
  - {token: "`+usdc+`", amount: "1", decimals: 6}
  - {token: "`+waUSDC+`", amount: "2", decimals: 6}
permit2:
  nonces: [1, 2]
  expirations: [100, 200]
`))
	require.NoError(t, err)
	require.Equal(t, sepoliaContract(t, r, addresses.CompositeLiquidityRouterNested), res.Permit2.Spender)
	require.Equal(t, uint64(200), res.Permit2.Details[1].Expiration)

	// amounts outside a pool need explicit decimals
	_, err = r.Approve(context.Background(), parseRequest(t, `
operation: approveAddNested
chainId: 11155111
amountsIn:
  - {token: "`+usdc+`", amount: "1"}
permit2: {nonces: [1]}
`))
	require.ErrorContains(t, err, "decimals is required")
}

func TestValidateRequest(t *testing.T) {
	r, mock, _ := newTestRunner(t)

	require.NoError(t, r.Validate(parseRequest(t, addUnbalanced)))

	restricted := parseRequest(t, `
operation: addSingleToken
chainId: 11155111
bptAmount: "1"
token: "`+usdc+`"
`+stablePool)
	restricted.Pool.Type = "CowAmm"
	err := r.Validate(restricted)
	require.ErrorIs(t, err, sdkerr.ErrPoolType)
	require.ErrorContains(t, err, "Use Add Liquidity Proportional")

	unsupported := parseRequest(t, addUnbalanced)
	unsupported.ChainID = 5
	require.ErrorIs(t, r.Validate(unsupported), sdkerr.ErrUnsupportedChain)

	unknown := parseRequest(t, addUnbalanced)
	unknown.Operation = "swap"
	require.ErrorContains(t, r.Validate(unknown), `unknown operation "swap"`)

	require.Zero(t, mock.Dials)
}

func TestRequestParsing(t *testing.T) {
	req := parseRequest(t, addUnbalanced)
	state, err := req.poolState()
	require.NoError(t, err)
	require.Equal(t, consts.ProtocolV3, state.ProtocolVersion)
	require.Equal(t, new(big.Int).Mul(big.NewInt(2000), consts.Wad()), state.TotalShares)
	require.Equal(t, big.NewInt(1_000_000_000), state.Tokens[1].Balance)
	require.Equal(t, 1, state.Tokens[1].Index)

	req.AmountsIn[0].Token = "0x1234"
	_, err = req.amounts("amountsIn", req.AmountsIn, state)
	require.ErrorContains(t, err, "amountsIn[0].token: invalid address")

	wad, err := percentageToWad("weight", "80")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(8e17), wad)
	_, err = percentageToWad("weight", "0.00000000000000001")
	require.Error(t, err)

	_, err = LoadRequest(writeRequest(t, t.TempDir(), "empty.yaml", "chainId: 1\n"))
	require.ErrorContains(t, err, "operation is required")
}

func TestRunWritesResults(t *testing.T) {
	r, mock, out := newTestRunner(t)
	require.NoError(t, mock.SetResult("queryAddLiquidityUnbalanced", big.NewInt(3e18)))

	dir := t.TempDir()
	good := writeRequest(t, dir, "good.yaml", addUnbalanced)
	bad := writeRequest(t, dir, "bad.yaml", "operation: addUnbalanced\nchainId: 11155111\n")

	err := r.Run(context.Background(), []string{good, bad, filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)
	require.ErrorContains(t, err, "bad.yaml")
	require.ErrorContains(t, err, "failed to read request file")

	var res Result
	require.NoError(t, yaml.NewDecoder(out).Decode(&res))
	require.Equal(t, OpAddUnbalanced, res.Operation)
	require.Equal(t, uint64(11155111), res.ChainID)
	require.Equal(t, sepoliaContract(t, r, addresses.Router), res.To)
	require.NotEmpty(t, res.CallData)
}

func TestValidateFiles(t *testing.T) {
	r, _, _ := newTestRunner(t)
	dir := t.TempDir()
	good := writeRequest(t, dir, "good.yaml", addUnbalanced)
	require.NoError(t, r.ValidateFiles([]string{good}))

	bad := writeRequest(t, dir, "bad.yaml", `
operation: addUnbalanced
chainId: 424242
`+stablePool)
	err := r.ValidateFiles([]string{good, bad})
	require.ErrorIs(t, err, sdkerr.ErrUnsupportedChain)
}

func TestExampleRequestsAreValid(t *testing.T) {
	r, _, _ := newTestRunner(t)
	paths, err := filepath.Glob(filepath.Join("..", "..", "configs", "requests", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	require.NoError(t, r.ValidateFiles(paths))
}
