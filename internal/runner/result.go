package runner

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/permit2"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
)

// Result is the transaction a request resolves to, written as yaml
type Result struct {
	Operation string `yaml:"operation"`
	ChainID   uint64 `yaml:"chainId"`
	Block     string `yaml:"block,omitempty"`
	Pool      string `yaml:"pool,omitempty"`

	To       string `yaml:"to,omitempty"`
	Value    string `yaml:"value,omitempty"`
	CallData string `yaml:"callData,omitempty"`

	Bound   string         `yaml:"bound,omitempty"` // maxIn or minOut
	Amounts []AmountResult `yaml:"amounts,omitempty"`
	Bpt     *AmountResult  `yaml:"bpt,omitempty"`

	Permit2 *PermitResult `yaml:"permit2,omitempty"`
}

// AmountResult is a token amount in raw and human form
type AmountResult struct {
	Token  string `yaml:"token"`
	Raw    string `yaml:"raw"`
	Amount string `yaml:"amount"`
}

// PermitResult is a signed Permit2 batch
type PermitResult struct {
	Spender     string          `yaml:"spender"`
	SigDeadline string          `yaml:"sigDeadline"`
	Signature   string          `yaml:"signature"`
	Details     []PermitDetails `yaml:"details"`
}

// PermitDetails is one allowance of a batch
type PermitDetails struct {
	Token      string `yaml:"token"`
	Amount     string `yaml:"amount"`
	Expiration uint64 `yaml:"expiration"`
	Nonce      uint64 `yaml:"nonce"`
}

func newResult(req *Request, q *liquidity.QueryOutput, out *liquidity.BuildCallOutput) *Result {
	res := &Result{
		Operation: req.Operation,
		ChainID:   req.ChainID,
		To:        out.To.Hex(),
		Value:     "0",
		CallData:  hexutil.Encode(out.CallData),
	}
	if out.Value != nil {
		res.Value = out.Value.String()
	}
	if q != nil {
		res.Pool = q.PoolAddress.Hex()
		if q.Block != nil {
			res.Block = q.Block.String()
		}
	}
	if len(out.BoundedAmounts) > 0 {
		res.Bound = out.BoundKind.String()
		res.Amounts = make([]AmountResult, len(out.BoundedAmounts))
		for i, a := range out.BoundedAmounts {
			res.Amounts[i] = newAmountResult(a)
		}
	}
	if out.BptBound.Amount != nil {
		bpt := newAmountResult(out.BptBound)
		res.Bpt = &bpt
	}
	return res
}

func newAmountResult(a pool.TokenAmount) AmountResult {
	raw := "0"
	if a.Amount != nil {
		raw = a.Amount.String()
	}
	return AmountResult{Token: a.Token.Address.Hex(), Raw: raw, Amount: a.Human()}
}

func newPermitResult(p *permit2.Permit2) *PermitResult {
	res := &PermitResult{
		Spender:     p.Batch.Spender.Hex(),
		SigDeadline: p.Batch.SigDeadline.String(),
		Signature:   hexutil.Encode(p.Signature),
		Details:     make([]PermitDetails, len(p.Batch.Details)),
	}
	for i, d := range p.Batch.Details {
		res.Details[i] = PermitDetails{
			Token:      d.Token.Hex(),
			Amount:     d.Amount.String(),
			Expiration: d.Expiration,
			Nonce:      d.Nonce,
		}
	}
	return res
}
