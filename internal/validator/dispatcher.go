package validator

import (
	"log/slog"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// Dispatcher maps pool types to their strategy. The table is fixed at
// construction; unknown types fall back to Base with a warning.
type Dispatcher struct {
	strategies map[pool.Type]Strategy
	boosted    Boosted
	logger     *slog.Logger
}

var _ liquidity.Validator = (*Dispatcher)(nil)

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithECLPChecker replaces the ECLP parameter checker of the Gyro strategies
func WithECLPChecker(checker ECLPChecker) Option {
	return func(d *Dispatcher) {
		gyro := Gyro{Checker: checker}
		d.strategies[pool.Gyro2] = gyro
		d.strategies[pool.Gyro3] = gyro
		d.strategies[pool.GyroE] = gyro
	}
}

// NewDispatcher creates the validator dispatcher
func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	gyro := Gyro{Checker: GyroECLPChecker{}}
	stable := Stable{}
	boosted := Boosted{}

	d := &Dispatcher{
		strategies: map[pool.Type]Strategy{
			pool.Weighted:               Weighted{},
			pool.Stable:                 stable,
			pool.MetaStable:             stable,
			pool.StableSurge:            stable,
			pool.ComposableStable:       ComposableStable{},
			pool.CowAmm:                 CowAmm{},
			pool.Gyro2:                  gyro,
			pool.Gyro3:                  gyro,
			pool.GyroE:                  gyro,
			pool.Boosted:                boosted,
			pool.LiquidityBootstrapping: LiquidityBootstrapping{},
			pool.ReClamm:                ReClamm{},
		},
		boosted: boosted,
		logger:  logger.With("component", "Validator"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validator returns the strategy for a pool type, Base for unknown types
func (d *Dispatcher) Validator(poolType pool.Type) Strategy {
	if s, ok := d.strategies[poolType]; ok {
		return s
	}
	d.logger.Warn("pool type does not have a validator, using default", "poolType", poolType)
	return Base{}
}

// ValidateChain rejects chain ids outside the recognized set
func ValidateChain(chainID consts.ChainID) error {
	if !chainID.IsSupported() {
		return sdkerr.UnsupportedChain(uint64(chainID))
	}
	return nil
}

// ValidateInitPool validates an init request
func (d *Dispatcher) ValidateInitPool(in liquidity.InitInput, state *pool.State) error {
	if err := ValidateChain(in.ChainID); err != nil {
		return err
	}
	return d.Validator(state.Type).ValidateInitPool(in, state)
}

// ValidateAddLiquidity validates a router add request
func (d *Dispatcher) ValidateAddLiquidity(in liquidity.AddLiquidityInput, state *pool.State) error {
	if err := ValidateChain(in.Params().ChainID); err != nil {
		return err
	}
	return d.Validator(state.Type).ValidateAddLiquidity(in, state)
}

// ValidateRemoveLiquidity validates a router remove request
func (d *Dispatcher) ValidateRemoveLiquidity(in liquidity.RemoveLiquidityInput, state *pool.State) error {
	if err := ValidateChain(in.Params().ChainID); err != nil {
		return err
	}
	return d.Validator(state.Type).ValidateRemoveLiquidity(in, state)
}

// ValidateRemoveLiquidityRecovery validates a recovery mode exit
func (d *Dispatcher) ValidateRemoveLiquidityRecovery(in liquidity.RemoveRecoveryInput, state *pool.State) error {
	if err := ValidateChain(in.ChainID); err != nil {
		return err
	}
	return d.Validator(state.Type).ValidateRemoveLiquidityRecovery(in, state)
}

// ValidateCreatePool validates a pool deployment, dispatching on its type
func (d *Dispatcher) ValidateCreatePool(in liquidity.CreatePoolInput) error {
	if err := ValidateChain(in.ChainID); err != nil {
		return err
	}
	return d.Validator(in.PoolType).ValidateCreatePool(in)
}

// ValidateAddLiquidityBoosted validates a composite router add. It always
// uses the Boosted strategy, whatever the pool type tag says.
func (d *Dispatcher) ValidateAddLiquidityBoosted(in liquidity.AddBoostedInput, state *pool.State) error {
	if err := ValidateChain(in.Params().ChainID); err != nil {
		return err
	}
	return d.boosted.ValidateAddLiquidityBoosted(in, state)
}

// ValidateBuildCallWithPermit2 gates permit2 wrapped calls to v3
func (d *Dispatcher) ValidateBuildCallWithPermit2(protocolVersion int) error {
	if protocolVersion != consts.ProtocolV3 {
		return sdkerr.ProtocolVersion("buildCallWithPermit2", protocolVersion,
			"buildCallWithPermit2 is supported on Balancer v3 only.")
	}
	return nil
}
