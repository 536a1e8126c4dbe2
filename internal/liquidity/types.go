package liquidity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
)

// Operation names a pipeline operation. The value doubles as the operation
// label carried by errors.
type Operation string

const (
	OpInitPool                  Operation = "Init Pool"
	OpCreatePool                Operation = "Create Pool"
	OpAddUnbalanced             Operation = "Add Liquidity Unbalanced"
	OpAddProportional           Operation = "Add Liquidity Proportional"
	OpAddSingleToken            Operation = "Add Liquidity SingleToken"
	OpRemoveProportional        Operation = "Remove Liquidity Proportional"
	OpRemoveSingleTokenExactIn  Operation = "Remove Liquidity SingleTokenExactIn"
	OpRemoveSingleTokenExactOut Operation = "Remove Liquidity SingleTokenExactOut"
	OpRemoveRecovery            Operation = "Remove Liquidity Recovery"
	OpAddBoostedUnbalanced      Operation = "Add Liquidity Boosted Unbalanced"
	OpAddBoostedProportional    Operation = "Add Liquidity Boosted Proportional"
	OpInitBuffer                Operation = "Init Buffer"
	OpAddBuffer                 Operation = "Add Liquidity Buffer"
)

// ChainParams locates the node an operation is simulated against
type ChainParams struct {
	ChainID consts.ChainID
	RPCURL  string
	Block   *big.Int // optional block pin for the simulation
}

// Params returns the chain parameters of an input
func (p ChainParams) Params() ChainParams {
	return p
}

// AddLiquidityInput is one of the router add liquidity inputs
type AddLiquidityInput interface {
	Operation() Operation
	Params() ChainParams
	isAddLiquidity()
}

// RemoveLiquidityInput is one of the router remove liquidity inputs
type RemoveLiquidityInput interface {
	Operation() Operation
	Params() ChainParams
	isRemoveLiquidity()
}

// AddBoostedInput is one of the composite router (ERC4626 pool) add inputs
type AddBoostedInput interface {
	Operation() Operation
	Params() ChainParams
	isAddBoosted()
}

// AddUnbalancedInput adds exact amounts of any subset of the pool tokens
type AddUnbalancedInput struct {
	ChainParams
	AmountsIn []pool.TokenAmount
	UserData  []byte
}

// AddProportionalInput adds all pool tokens in pool proportions. The
// reference is either a BPT amount or an amount of one pool token.
type AddProportionalInput struct {
	ChainParams
	ReferenceAmount pool.TokenAmount
	UserData        []byte
}

// AddSingleTokenInput mints an exact BPT amount paying with one token
type AddSingleTokenInput struct {
	ChainParams
	BptOut   pool.TokenAmount
	TokenIn  common.Address
	UserData []byte
}

// RemoveProportionalInput burns an exact BPT amount for all pool tokens
type RemoveProportionalInput struct {
	ChainParams
	BptIn    pool.TokenAmount
	UserData []byte
}

// RemoveSingleTokenExactInInput burns an exact BPT amount for one token
type RemoveSingleTokenExactInInput struct {
	ChainParams
	BptIn    pool.TokenAmount
	TokenOut common.Address
	UserData []byte
}

// RemoveSingleTokenExactOutInput receives an exact amount of one token
type RemoveSingleTokenExactOutInput struct {
	ChainParams
	AmountOut pool.TokenAmount
	UserData  []byte
}

// RemoveRecoveryInput exits a pool in recovery mode, proportionally and
// without calling the pool's math
type RemoveRecoveryInput struct {
	ChainParams
	BptIn pool.TokenAmount
}

// InitInput seeds an empty pool. Every pool token must be funded.
type InitInput struct {
	ChainParams
	AmountsIn       []pool.TokenAmount
	MinBptAmountOut *big.Int // optional, defaults to zero
	UserData        []byte
}

// AddBoostedUnbalancedInput adds exact amounts, each given either in the
// pool token or in its ERC4626 underlying
type AddBoostedUnbalancedInput struct {
	ChainParams
	AmountsIn []pool.TokenAmount
	UserData  []byte
}

// AddBoostedProportionalInput adds proportionally. TokensIn picks, per pool
// position, whether the wrapped or the underlying token is paid.
type AddBoostedProportionalInput struct {
	ChainParams
	ReferenceAmount pool.TokenAmount
	TokensIn        []common.Address
	UserData        []byte
}

// InitBufferInput seeds an empty ERC4626 buffer
type InitBufferInput struct {
	ChainParams
	WrappedToken       common.Address
	UnderlyingAmountIn pool.TokenAmount
	WrappedAmountIn    pool.TokenAmount
}

// AddBufferInput mints an exact amount of buffer shares
type AddBufferInput struct {
	ChainParams
	WrappedToken       pool.TokenRef
	UnderlyingToken    pool.TokenRef
	ExactSharesToIssue *big.Int
}

func (AddUnbalancedInput) Operation() Operation             { return OpAddUnbalanced }
func (AddProportionalInput) Operation() Operation           { return OpAddProportional }
func (AddSingleTokenInput) Operation() Operation            { return OpAddSingleToken }
func (RemoveProportionalInput) Operation() Operation        { return OpRemoveProportional }
func (RemoveSingleTokenExactInInput) Operation() Operation  { return OpRemoveSingleTokenExactIn }
func (RemoveSingleTokenExactOutInput) Operation() Operation { return OpRemoveSingleTokenExactOut }
func (RemoveRecoveryInput) Operation() Operation            { return OpRemoveRecovery }
func (InitInput) Operation() Operation                      { return OpInitPool }
func (AddBoostedUnbalancedInput) Operation() Operation      { return OpAddBoostedUnbalanced }
func (AddBoostedProportionalInput) Operation() Operation    { return OpAddBoostedProportional }
func (InitBufferInput) Operation() Operation                { return OpInitBuffer }
func (AddBufferInput) Operation() Operation                 { return OpAddBuffer }

func (AddUnbalancedInput) isAddLiquidity()   {}
func (AddProportionalInput) isAddLiquidity() {}
func (AddSingleTokenInput) isAddLiquidity()  {}

func (RemoveProportionalInput) isRemoveLiquidity()        {}
func (RemoveSingleTokenExactInInput) isRemoveLiquidity()  {}
func (RemoveSingleTokenExactOutInput) isRemoveLiquidity() {}

func (AddBoostedUnbalancedInput) isAddBoosted()   {}
func (AddBoostedProportionalInput) isAddBoosted() {}

// QueryOutput is the simulated result of an operation. Amount slices are in
// pool token order. For boosted adds an entry carries the underlying token
// when WrapUnderlying is set at that position.
type QueryOutput struct {
	Operation       Operation
	ChainID         consts.ChainID
	ProtocolVersion int
	Block           *big.Int
	PoolAddress     common.Address
	PoolType        pool.Type
	To              common.Address // router the operation is sent to

	AmountsIn  []pool.TokenAmount
	AmountsOut []pool.TokenAmount
	BptIn      pool.TokenAmount
	BptOut     pool.TokenAmount

	TokenInIndex  int // single token add, -1 otherwise
	TokenOutIndex int // single token remove, -1 otherwise

	WrapUnderlying []bool // boosted adds
	Tokens         []common.Address
	UserData       []byte
}

// BuildCallInput turns a query result into transaction parameters
type BuildCallInput struct {
	Query     *QueryOutput
	Slippage  pool.Slippage
	WethIsEth bool // pay or receive the native asset instead of its wrapped token
}

// BuildCallOutput is the transaction a caller sends. BoundKind describes
// BoundedAmounts: MaxIn for joins, MinOut for exits. BptBound is the BPT
// limit of the call (min out for given-in joins, max in for given-out exits,
// the exact amount otherwise).
type BuildCallOutput struct {
	To             common.Address
	CallData       []byte
	Value          *big.Int
	BoundKind      pool.Bound
	BoundedAmounts []pool.TokenAmount
	BptBound       pool.TokenAmount
}
