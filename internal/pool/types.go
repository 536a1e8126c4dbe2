package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Type is the pool variant tag as reported by the pool registry.
// Unknown tags are valid values: they are validated with the base rules.
type Type string

const (
	Weighted               Type = "Weighted"
	Stable                 Type = "Stable"
	ComposableStable       Type = "ComposableStable"
	MetaStable             Type = "MetaStable"
	StableSurge            Type = "StableSurge"
	CowAmm                 Type = "CowAmm"
	Gyro2                  Type = "Gyro2"
	Gyro3                  Type = "Gyro3"
	GyroE                  Type = "GyroE"
	Boosted                Type = "Boosted"
	ReClamm                Type = "ReClamm"
	LiquidityBootstrapping Type = "LiquidityBootstrapping"
)

// BptDecimals is the decimals of every pool share token
const BptDecimals = 18

// TokenRef identifies a token and its decimals
type TokenRef struct {
	Address  common.Address
	Decimals uint8
}

// Underlying is the base asset of an ERC4626 pool token
type Underlying struct {
	Address  common.Address
	Decimals uint8
	Balance  *big.Int // pool balance expressed in underlying units (optional)
}

// Token is one entry of the pool's token list
type Token struct {
	Address         common.Address
	Decimals        uint8
	Index           int
	Balance         *big.Int    // raw pool balance (optional, used for proportional math)
	UnderlyingToken *Underlying // set for ERC4626 leaves of boosted pools
}

// Ref returns the token reference of the pool token
func (t Token) Ref() TokenRef {
	return TokenRef{Address: t.Address, Decimals: t.Decimals}
}

// State describes a pool. It is supplied by the caller and never mutated
// by the pipeline. Tokens are in on-chain (vault) order.
type State struct {
	Address         common.Address
	Type            Type
	ProtocolVersion int
	Tokens          []Token
	TotalShares     *big.Int // raw BPT supply (optional)
}

// BptRef returns the pool share token reference
func (s *State) BptRef() TokenRef {
	return TokenRef{Address: s.Address, Decimals: BptDecimals}
}

// TokenIndex returns the position of addr in the pool token list
func (s *State) TokenIndex(addr common.Address) (int, bool) {
	for i, t := range s.Tokens {
		if t.Address == addr {
			return i, true
		}
	}
	return -1, false
}

// UnderlyingIndex returns the position of the pool token whose underlying is addr
func (s *State) UnderlyingIndex(addr common.Address) (int, bool) {
	for i, t := range s.Tokens {
		if t.UnderlyingToken != nil && t.UnderlyingToken.Address == addr {
			return i, true
		}
	}
	return -1, false
}

// Addresses returns the pool token addresses in pool order
func (s *State) Addresses() []common.Address {
	out := make([]common.Address, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Address
	}
	return out
}

// Refs returns the pool token references in pool order
func (s *State) Refs() []TokenRef {
	out := make([]TokenRef, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Ref()
	}
	return out
}
