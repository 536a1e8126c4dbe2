package consts

import (
	"fmt"
	"math/big"
)

// ChainID identifies an EVM network the routers are deployed on
type ChainID uint64

const (
	Mainnet   ChainID = 1
	Optimism  ChainID = 10
	Gnosis    ChainID = 100
	Sonic     ChainID = 146
	HyperEVM  ChainID = 999
	Base      ChainID = 8453
	Arbitrum  ChainID = 42161
	Avalanche ChainID = 43114
	Sepolia   ChainID = 11155111
)

var chainNames = map[ChainID]string{
	Mainnet:   "mainnet",
	Optimism:  "optimism",
	Gnosis:    "gnosis",
	Sonic:     "sonic",
	HyperEVM:  "hyperevm",
	Base:      "base",
	Arbitrum:  "arbitrum",
	Avalanche: "avalanche",
	Sepolia:   "sepolia",
}

// IsSupported reports whether the chain id is in the recognized set
func (c ChainID) IsSupported() bool {
	_, ok := chainNames[c]
	return ok
}

// String returns the chain name, or chain_<id> for unknown ids
func (c ChainID) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return fmt.Sprintf("chain_%d", uint64(c))
}

// SupportedChains returns the recognized chain ids in ascending order
func SupportedChains() []ChainID {
	return []ChainID{Mainnet, Optimism, Gnosis, Sonic, HyperEVM, Base, Arbitrum, Avalanche, Sepolia}
}

// ProtocolVersion is the major version of the vault/router deployment
const (
	ProtocolV2 = 2
	ProtocolV3 = 3
)

// Fixed point and Permit2 limits. Values are decimal literals so they stay
// compile-time constants; the *big.Int views below are read-only copies.
const (
	// WadDecimal is 1e18, the fixed point unit (100%)
	WadDecimal = "1000000000000000000"

	// MaxUint160Decimal is type(uint160).max, the largest Permit2 allowance amount
	MaxUint160Decimal = "1461501637330902918203684832716283019655932542975"

	// MaxAllowanceExpiration is type(uint48).max, an effectively unlimited expiration
	MaxAllowanceExpiration uint64 = 1<<48 - 1
	// MaxAllowanceNonce is type(uint48).max
	MaxAllowanceNonce uint64 = 1<<48 - 1

	// MaxUint256Decimal is type(uint256).max, used as the default signature deadline
	MaxUint256Decimal = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
)

// Wad returns 1e18 as a fresh *big.Int
func Wad() *big.Int {
	return mustBig(WadDecimal)
}

// MaxAllowanceTransferAmount returns type(uint160).max
func MaxAllowanceTransferAmount() *big.Int {
	return mustBig(MaxUint160Decimal)
}

// MaxSigDeadline returns type(uint256).max
func MaxSigDeadline() *big.Int {
	return mustBig(MaxUint256Decimal)
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("consts: bad decimal literal " + s)
	}
	return v
}
