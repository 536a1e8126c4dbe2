package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedDataSigner signs EIP-712 typed data on behalf of an account
type TypedDataSigner interface {
	// SignTypedData returns the 65 byte r||s||v signature of the typed data digest
	SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error)
}

// Signer is a TypedDataSigner holding a single key
type Signer interface {
	TypedDataSigner
	// GetAddress returns the signer address
	GetAddress() common.Address
}

// SignerConfig is the signer configuration
type SignerConfig struct {
	PrivateKey    string `yaml:"privateKey"`    // Private key (hexadecimal, highest priority)
	PrivateKeyEnv string `yaml:"privateKeyEnv"` // Private key environment variable name (fallback)
}

// signer is the local key implementation
type signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a signer
func NewSigner(privateKey *ecdsa.PrivateKey) Signer {
	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	return &signer{
		privateKey: privateKey,
		address:    address,
	}
}

// NewSignerFromHex creates a signer from hexadecimal private key
func NewSignerFromHex(hexKey string) (Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(privateKey), nil
}

// NewSignerFromEnv creates a signer from environment variable
func NewSignerFromEnv(envName string) (Signer, error) {
	hexKey := strings.TrimSpace(os.Getenv(envName))
	if hexKey == "" {
		return nil, fmt.Errorf("environment variable %s is not set", envName)
	}
	return NewSignerFromHex(hexKey)
}

// NewSignerFromConfig creates a signer from config (prefers config file private key, falls back to environment variable)
func NewSignerFromConfig(config *SignerConfig) (Signer, error) {
	var hexKey string

	// 1. Prefer private key from config file
	if config.PrivateKey != "" {
		hexKey = strings.TrimSpace(config.PrivateKey)
	} else if config.PrivateKeyEnv != "" {
		// 2. Read from environment variable
		hexKey = strings.TrimSpace(os.Getenv(config.PrivateKeyEnv))
		if hexKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set and no privateKey in config", config.PrivateKeyEnv)
		}
	} else {
		return nil, fmt.Errorf("neither privateKey nor privateKeyEnv is configured")
	}

	return NewSignerFromHex(hexKey)
}

// GetAddress returns the signer address
func (s *signer) GetAddress() common.Address {
	return s.address
}

// SignTypedData hashes the typed data per EIP-712 and signs the digest.
// The account must be the signer's own address.
func (s *signer) SignTypedData(ctx context.Context, account common.Address, data apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if account != s.address {
		return nil, fmt.Errorf("account %s is not the signer %s", account.Hex(), s.address.Hex())
	}

	// keccak256("\x19\x01" || domainSeparator || hashStruct(message))
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value to 27 or 28 (Ethereum standard)
	if sig[64] < 27 {
		sig[64] += 27
	}

	return sig, nil
}
