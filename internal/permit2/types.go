// Package permit2 builds and signs Permit2 AllowanceTransfer batches that
// authorize the Balancer routers to pull tokens in the same transaction.
package permit2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PermitDetails is one token allowance of a batch.
// Amount is a uint160, Expiration and Nonce are uint48 on chain.
type PermitDetails struct {
	Token      common.Address
	Amount     *big.Int
	Expiration uint64
	Nonce      uint64
}

// PermitBatch grants Spender the allowances in Details until SigDeadline
type PermitBatch struct {
	Details     []PermitDetails
	Spender     common.Address
	SigDeadline *big.Int
}

// Permit2 is a signed batch, ready to be passed to permitBatchAndCall
type Permit2 struct {
	Batch     PermitBatch
	Signature []byte
}
