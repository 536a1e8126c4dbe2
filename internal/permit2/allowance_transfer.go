package permit2

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
)

// DomainName is the EIP-712 domain name of the Permit2 contract. The
// contract's domain has no version field.
const DomainName = "Permit2"

const primaryType = "PermitBatch"

// Types is the EIP-712 type set of a PermitBatch
var Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"PermitBatch": {
		{Name: "details", Type: "PermitDetails[]"},
		{Name: "spender", Type: "address"},
		{Name: "sigDeadline", Type: "uint256"},
	},
	"PermitDetails": {
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint160"},
		{Name: "expiration", Type: "uint48"},
		{Name: "nonce", Type: "uint48"},
	},
}

// TypedData returns the EIP-712 payload a wallet signs for the batch
func TypedData(batch PermitBatch, permit2 common.Address, chainID consts.ChainID) apitypes.TypedData {
	details := make([]interface{}, len(batch.Details))
	for i, d := range batch.Details {
		// nested structs must be plain maps for the apitypes encoder
		details[i] = map[string]interface{}{
			"token":      d.Token.Hex(),
			"amount":     d.Amount.String(),
			"expiration": strconv.FormatUint(d.Expiration, 10),
			"nonce":      strconv.FormatUint(d.Nonce, 10),
		}
	}
	return apitypes.TypedData{
		Types:       Types,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			ChainId:           math.NewHexOrDecimal256(int64(chainID)),
			VerifyingContract: permit2.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"details":     details,
			"spender":     batch.Spender.Hex(),
			"sigDeadline": batch.SigDeadline.String(),
		},
	}
}
