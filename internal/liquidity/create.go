package liquidity

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/sdkerr"
)

// TokenType is the vault's token config type
type TokenType uint8

const (
	TokenTypeStandard TokenType = 0
	TokenTypeWithRate TokenType = 1
)

// CreatePoolToken is one token of a pool being deployed
type CreatePoolToken struct {
	Address       common.Address
	TokenType     TokenType
	RateProvider  common.Address // required for TokenTypeWithRate, empty otherwise
	PaysYieldFees bool
	Weight        *big.Int // 1e18 fixed point, weighted style pools only
}

// ECLPParams are the base parameters of an elliptic concentrated liquidity
// pool, all 1e18 fixed point. C and S are the rotation vector.
type ECLPParams struct {
	Alpha  *big.Int
	Beta   *big.Int
	C      *big.Int
	S      *big.Int
	Lambda *big.Int
}

// LBPParams configures a liquidity bootstrapping sale
type LBPParams struct {
	Owner                    common.Address
	ProjectToken             common.Address
	ReserveToken             common.Address
	ProjectTokenStartWeight  *big.Int
	ReserveTokenStartWeight  *big.Int
	ProjectTokenEndWeight    *big.Int
	ReserveTokenEndWeight    *big.Int
	StartTime                uint64
	EndTime                  uint64
	BlockProjectTokenSwapsIn bool
}

// ReClammParams configures the initial price range of a readjusting pool
type ReClammParams struct {
	InitialMinPrice     *big.Int
	InitialTargetPrice  *big.Int
	InitialMaxPrice     *big.Int
	PriceShiftDailyRate *big.Int
	CenterednessMargin  *big.Int
}

// CreatePoolInput describes a pool deployment. Family specific parameters
// are read only for the matching PoolType.
type CreatePoolInput struct {
	ChainID         consts.ChainID
	ProtocolVersion int
	PoolType        pool.Type
	Name            string
	Symbol          string
	Tokens          []CreatePoolToken

	SwapFeePercentage          *big.Int
	PoolHooksContract          common.Address
	PauseManager               common.Address
	SwapFeeManager             common.Address
	PoolCreator                common.Address
	EnableDonation             bool
	DisableUnbalancedLiquidity bool
	Salt                       common.Hash // random when empty

	Amp     *big.Int // stable families
	ECLP    *ECLPParams
	LBP     *LBPParams
	ReClamm *ReClammParams
}

// Operation implements the operation label
func (CreatePoolInput) Operation() Operation { return OpCreatePool }

type abiTokenConfig struct {
	Token         common.Address
	TokenType     uint8
	RateProvider  common.Address
	PaysYieldFees bool
}

type abiRoleAccounts struct {
	PauseManager   common.Address
	SwapFeeManager common.Address
	PoolCreator    common.Address
}

// BuildCreatePool validates the input and encodes the factory create call.
// Weighted and Stable pools are supported; the factory address must be
// configured for the chain.
func (s *Service) BuildCreatePool(in CreatePoolInput) (*BuildCallOutput, error) {
	if err := s.validator.ValidateCreatePool(in); err != nil {
		return nil, err
	}
	if in.ProtocolVersion != consts.ProtocolV3 {
		return nil, sdkerr.ProtocolVersion(string(OpCreatePool), in.ProtocolVersion, "pool factories are encoded for Balancer v3 only")
	}
	if in.SwapFeePercentage == nil {
		return nil, sdkerr.InputValidation(string(OpCreatePool), "swap fee percentage is required")
	}

	tokens := make([]CreatePoolToken, len(in.Tokens))
	copy(tokens, in.Tokens)
	sort.SliceStable(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i].Address.Bytes(), tokens[j].Address.Bytes()) < 0
	})
	configs := make([]abiTokenConfig, len(tokens))
	for i, t := range tokens {
		configs[i] = abiTokenConfig{
			Token:         t.Address,
			TokenType:     uint8(t.TokenType),
			RateProvider:  t.RateProvider,
			PaysYieldFees: t.PaysYieldFees,
		}
	}
	roles := abiRoleAccounts{
		PauseManager:   in.PauseManager,
		SwapFeeManager: in.SwapFeeManager,
		PoolCreator:    in.PoolCreator,
	}

	salt := in.Salt
	if salt == (common.Hash{}) {
		if _, err := rand.Read(salt[:]); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	var (
		factory  common.Address
		callData []byte
		err      error
	)
	switch in.PoolType {
	case pool.Weighted:
		factory, err = s.registry.Lookup(in.ChainID, addresses.WeightedPoolFactory)
		if err != nil {
			return nil, sdkerr.InputValidation(string(OpCreatePool), "weighted pool factory not configured", err.Error())
		}
		weights := make([]*big.Int, len(tokens))
		for i, t := range tokens {
			weights[i] = t.Weight
		}
		callData, err = weightedFactoryABI.Pack("create", in.Name, in.Symbol, configs, weights, roles,
			in.SwapFeePercentage, in.PoolHooksContract, in.EnableDonation, in.DisableUnbalancedLiquidity, salt)
	case pool.Stable:
		factory, err = s.registry.Lookup(in.ChainID, addresses.StablePoolFactory)
		if err != nil {
			return nil, sdkerr.InputValidation(string(OpCreatePool), "stable pool factory not configured", err.Error())
		}
		callData, err = stableFactoryABI.Pack("create", in.Name, in.Symbol, configs, in.Amp, roles,
			in.SwapFeePercentage, in.PoolHooksContract, in.EnableDonation, in.DisableUnbalancedLiquidity, salt)
	default:
		return nil, sdkerr.InputValidation(string(OpCreatePool),
			fmt.Sprintf("no factory encoding for pool type %s", in.PoolType))
	}
	if err != nil {
		return nil, fmt.Errorf("pack create %s: %w", in.PoolType, err)
	}

	s.logger.Info("create pool call built",
		"chainId", in.ChainID,
		"poolType", in.PoolType,
		"factory", factory.Hex(),
		"tokens", len(tokens))

	return &BuildCallOutput{
		To:       factory,
		CallData: callData,
		Value:    new(big.Int),
	}, nil
}
