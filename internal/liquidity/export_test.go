package liquidity

// ABIs exposed to the liquidity_test package for call data decoding
var (
	RouterABI          = routerABI
	CompositeRouterABI = compositeRouterABI
	BufferRouterABI    = bufferRouterABI
	WeightedFactoryABI = weightedFactoryABI
	StableFactoryABI   = stableFactoryABI
)
