package addresses

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
)

// Shared across chains (deterministic deployments)
var (
	vaultV3  = common.HexToAddress("0xbA1333333333a1BA1108E8412f11850A5C319bA9")
	permit2  = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	routerV3 = common.HexToAddress("0xAE563E3f8219521950555F5962419C8919758Ea2")
	batchV3  = common.HexToAddress("0x136f1EFcC3f8f88516B9E94110D56FDBfB1778d1")
	clrV3    = common.HexToAddress("0xb21A277466e7db6934556a1Ce12eb3F032815c8A")
	bufferV3 = common.HexToAddress("0x9179C06629ef7f17Cb5759F501D89997FE0E7b45")
)

func mainnetLike(wrappedNative string) Contracts {
	return Contracts{
		Vault:                    vaultV3,
		Router:                   routerV3,
		BatchRouter:              batchV3,
		CompositeLiquidityRouter: clrV3,
		// nested joins are served by the composite router since its second release
		CompositeLiquidityRouterNested: clrV3,
		BufferRouter:                   bufferV3,
		Permit2:                        permit2,
		WrappedNative:                  common.HexToAddress(wrappedNative),
	}
}

// Pool factories are left empty: they are versioned per release and must be
// supplied through config before building create-pool calls.
var defaultDeployments = map[consts.ChainID]Contracts{
	consts.Mainnet:   mainnetLike("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	consts.Optimism:  mainnetLike("0x4200000000000000000000000000000000000006"), // WETH
	consts.Gnosis:    mainnetLike("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"), // WXDAI
	consts.Sonic:     mainnetLike("0x039e2fB66102314Ce7b64Ce5Ce3E5183bc94aD38"), // wS
	consts.HyperEVM:  mainnetLike("0x5555555555555555555555555555555555555555"), // WHYPE
	consts.Base:      mainnetLike("0x4200000000000000000000000000000000000006"), // WETH
	consts.Arbitrum:  mainnetLike("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), // WETH
	consts.Avalanche: mainnetLike("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"), // WAVAX
	consts.Sepolia: {
		Vault:                          vaultV3,
		Router:                         common.HexToAddress("0x0BF61f706105EA44694f2e92986bD01C39930280"),
		BatchRouter:                    common.HexToAddress("0xC85b652685567C1B074e8c0D4389f83a2E458b1C"),
		CompositeLiquidityRouter:       common.HexToAddress("0x6A20a4b6DcFF78e6D21BF0dbFfD58C96644DB9cb"),
		CompositeLiquidityRouterNested: common.HexToAddress("0x6A20a4b6DcFF78e6D21BF0dbFfD58C96644DB9cb"),
		BufferRouter:                   common.HexToAddress("0xb5F3A41633b0B2D6a7C8e5D9C1f8E5C0D0e0D1e6"),
		Permit2:                        permit2,
		WrappedNative:                  common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9"),
	},
}
