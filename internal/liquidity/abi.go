package liquidity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Balancer v3 Router: queries, init, add, remove and permit2 multicall
const routerABIJSON = `[
  {"type":"function","name":"queryAddLiquidityUnbalanced","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactAmountsIn","type":"uint256[]"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountOut","type":"uint256"}]},
  {"type":"function","name":"queryAddLiquidityProportional","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountsIn","type":"uint256[]"}]},
  {"type":"function","name":"queryAddLiquiditySingleTokenExactOut","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"tokenIn","type":"address"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountIn","type":"uint256"}]},
  {"type":"function","name":"queryRemoveLiquidityProportional","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountsOut","type":"uint256[]"}]},
  {"type":"function","name":"queryRemoveLiquiditySingleTokenExactIn","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"},{"name":"tokenOut","type":"address"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"queryRemoveLiquiditySingleTokenExactOut","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"tokenOut","type":"address"},{"name":"exactAmountOut","type":"uint256"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountIn","type":"uint256"}]},
  {"type":"function","name":"queryRemoveLiquidityRecovery","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"}],
   "outputs":[{"name":"amountsOut","type":"uint256[]"}]},

  {"type":"function","name":"initialize","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"tokens","type":"address[]"},{"name":"exactAmountsIn","type":"uint256[]"},{"name":"minBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountOut","type":"uint256"}]},
  {"type":"function","name":"addLiquidityUnbalanced","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactAmountsIn","type":"uint256[]"},{"name":"minBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountOut","type":"uint256"}]},
  {"type":"function","name":"addLiquidityProportional","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"maxAmountsIn","type":"uint256[]"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountsIn","type":"uint256[]"}]},
  {"type":"function","name":"addLiquiditySingleTokenExactOut","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"tokenIn","type":"address"},{"name":"maxAmountIn","type":"uint256"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountIn","type":"uint256"}]},
  {"type":"function","name":"removeLiquidityProportional","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"},{"name":"minAmountsOut","type":"uint256[]"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountsOut","type":"uint256[]"}]},
  {"type":"function","name":"removeLiquiditySingleTokenExactIn","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"},{"name":"tokenOut","type":"address"},{"name":"minAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"removeLiquiditySingleTokenExactOut","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"maxBptAmountIn","type":"uint256"},{"name":"tokenOut","type":"address"},{"name":"exactAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountIn","type":"uint256"}]},
  {"type":"function","name":"removeLiquidityRecovery","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"exactBptAmountIn","type":"uint256"},{"name":"minAmountsOut","type":"uint256[]"}],
   "outputs":[{"name":"amountsOut","type":"uint256[]"}]},

  {"type":"function","name":"permitBatchAndCall","stateMutability":"payable",
   "inputs":[
     {"name":"permitBatch","type":"tuple[]","components":[
       {"name":"token","type":"address"},{"name":"owner","type":"address"},{"name":"spender","type":"address"},
       {"name":"amount","type":"uint256"},{"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"}]},
     {"name":"permitSignatures","type":"bytes[]"},
     {"name":"permit2Batch","type":"tuple","components":[
       {"name":"details","type":"tuple[]","components":[
         {"name":"token","type":"address"},{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"},{"name":"nonce","type":"uint48"}]},
       {"name":"spender","type":"address"},{"name":"sigDeadline","type":"uint256"}]},
     {"name":"permit2Signature","type":"bytes"},
     {"name":"multicallData","type":"bytes[]"}],
   "outputs":[{"name":"results","type":"bytes[]"}]}
]`

// CompositeLiquidityRouter: adds to pools whose tokens are ERC4626 wrappers
const compositeRouterABIJSON = `[
  {"type":"function","name":"queryAddLiquidityUnbalancedToERC4626Pool","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"wrapUnderlying","type":"bool[]"},{"name":"exactAmountsIn","type":"uint256[]"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountOut","type":"uint256"}]},
  {"type":"function","name":"queryAddLiquidityProportionalToERC4626Pool","stateMutability":"nonpayable",
   "inputs":[{"name":"pool","type":"address"},{"name":"wrapUnderlying","type":"bool[]"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"sender","type":"address"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"tokensIn","type":"address[]"},{"name":"amountsIn","type":"uint256[]"}]},
  {"type":"function","name":"addLiquidityUnbalancedToERC4626Pool","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"wrapUnderlying","type":"bool[]"},{"name":"exactAmountsIn","type":"uint256[]"},{"name":"minBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"bptAmountOut","type":"uint256"}]},
  {"type":"function","name":"addLiquidityProportionalToERC4626Pool","stateMutability":"payable",
   "inputs":[{"name":"pool","type":"address"},{"name":"wrapUnderlying","type":"bool[]"},{"name":"maxAmountsIn","type":"uint256[]"},{"name":"exactBptAmountOut","type":"uint256"},{"name":"wethIsEth","type":"bool"},{"name":"userData","type":"bytes"}],
   "outputs":[{"name":"tokensIn","type":"address[]"},{"name":"amountsIn","type":"uint256[]"}]}
]`

// BufferRouter: ERC4626 liquidity buffers held by the vault
const bufferRouterABIJSON = `[
  {"type":"function","name":"queryInitializeBuffer","stateMutability":"nonpayable",
   "inputs":[{"name":"wrappedToken","type":"address"},{"name":"exactAmountUnderlyingIn","type":"uint256"},{"name":"exactAmountWrappedIn","type":"uint256"}],
   "outputs":[{"name":"issuedShares","type":"uint256"}]},
  {"type":"function","name":"initializeBuffer","stateMutability":"payable",
   "inputs":[{"name":"wrappedToken","type":"address"},{"name":"exactAmountUnderlyingIn","type":"uint256"},{"name":"exactAmountWrappedIn","type":"uint256"},{"name":"minIssuedShares","type":"uint256"}],
   "outputs":[{"name":"issuedShares","type":"uint256"}]},
  {"type":"function","name":"queryAddLiquidityToBuffer","stateMutability":"nonpayable",
   "inputs":[{"name":"wrappedToken","type":"address"},{"name":"exactSharesToIssue","type":"uint256"}],
   "outputs":[{"name":"amountUnderlyingIn","type":"uint256"},{"name":"amountWrappedIn","type":"uint256"}]},
  {"type":"function","name":"addLiquidityToBuffer","stateMutability":"payable",
   "inputs":[{"name":"wrappedToken","type":"address"},{"name":"maxAmountUnderlyingIn","type":"uint256"},{"name":"maxAmountWrappedIn","type":"uint256"},{"name":"exactSharesToIssue","type":"uint256"}],
   "outputs":[{"name":"amountUnderlyingIn","type":"uint256"},{"name":"amountWrappedIn","type":"uint256"}]}
]`

// v3 pool factories, both expose create(...) with a family specific signature
const weightedFactoryABIJSON = `[
  {"type":"function","name":"create","stateMutability":"nonpayable",
   "inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},
     {"name":"tokens","type":"tuple[]","components":[
       {"name":"token","type":"address"},{"name":"tokenType","type":"uint8"},{"name":"rateProvider","type":"address"},{"name":"paysYieldFees","type":"bool"}]},
     {"name":"normalizedWeights","type":"uint256[]"},
     {"name":"roleAccounts","type":"tuple","components":[
       {"name":"pauseManager","type":"address"},{"name":"swapFeeManager","type":"address"},{"name":"poolCreator","type":"address"}]},
     {"name":"swapFeePercentage","type":"uint256"},{"name":"poolHooksContract","type":"address"},
     {"name":"enableDonation","type":"bool"},{"name":"disableUnbalancedLiquidity","type":"bool"},{"name":"salt","type":"bytes32"}],
   "outputs":[{"name":"pool","type":"address"}]}
]`

const stableFactoryABIJSON = `[
  {"type":"function","name":"create","stateMutability":"nonpayable",
   "inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},
     {"name":"tokens","type":"tuple[]","components":[
       {"name":"token","type":"address"},{"name":"tokenType","type":"uint8"},{"name":"rateProvider","type":"address"},{"name":"paysYieldFees","type":"bool"}]},
     {"name":"amplificationParameter","type":"uint256"},
     {"name":"roleAccounts","type":"tuple","components":[
       {"name":"pauseManager","type":"address"},{"name":"swapFeeManager","type":"address"},{"name":"poolCreator","type":"address"}]},
     {"name":"swapFeePercentage","type":"uint256"},{"name":"poolHooksContract","type":"address"},
     {"name":"enableDonation","type":"bool"},{"name":"disableUnbalancedLiquidity","type":"bool"},{"name":"salt","type":"bytes32"}],
   "outputs":[{"name":"pool","type":"address"}]}
]`

var (
	routerABI          = mustParseABI("router", routerABIJSON)
	compositeRouterABI = mustParseABI("composite router", compositeRouterABIJSON)
	bufferRouterABI    = mustParseABI("buffer router", bufferRouterABIJSON)
	weightedFactoryABI = mustParseABI("weighted factory", weightedFactoryABIJSON)
	stableFactoryABI   = mustParseABI("stable factory", stableFactoryABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("liquidity: parse %s abi: %v", name, err))
	}
	return parsed
}
