package runner

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/liquidity"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
)

// Request operation names
const (
	OpAddUnbalanced             = "addUnbalanced"
	OpAddProportional           = "addProportional"
	OpAddSingleToken            = "addSingleToken"
	OpRemoveProportional        = "removeProportional"
	OpRemoveSingleTokenExactIn  = "removeSingleTokenExactIn"
	OpRemoveSingleTokenExactOut = "removeSingleTokenExactOut"
	OpRemoveRecovery            = "removeRecovery"
	OpInitPool                  = "initPool"
	OpCreatePool                = "createPool"
	OpAddBoostedUnbalanced      = "addBoostedUnbalanced"
	OpAddBoostedProportional    = "addBoostedProportional"
	OpInitBuffer                = "initBuffer"
	OpAddBuffer                 = "addBuffer"

	// approval only operations, signed without a query
	OpApproveSwap      = "approveSwap"
	OpApproveAddNested = "approveAddNested"
)

// Request is one operation read from a yaml request file. Amounts are human
// readable and scaled by the decimals of the referenced token.
type Request struct {
	Operation string `yaml:"operation"`
	ChainID   uint64 `yaml:"chainId"`
	Block     uint64 `yaml:"block"` // simulate at this block, latest when zero

	Pool *PoolSpec `yaml:"pool"`

	AmountsIn       []AmountSpec `yaml:"amountsIn"`
	ReferenceAmount *AmountSpec  `yaml:"referenceAmount"`
	AmountOut       *AmountSpec  `yaml:"amountOut"`
	BptAmount       string       `yaml:"bptAmount"`
	Token           string       `yaml:"token"`    // token in or out of single token kinds
	TokensIn        []string     `yaml:"tokensIn"` // boosted proportional
	MinBptAmountOut string       `yaml:"minBptAmountOut"`
	UserData        string       `yaml:"userData"` // 0x hex

	Slippage  string `yaml:"slippage"` // percentage, config default when empty
	WethIsEth bool   `yaml:"wethIsEth"`

	Permit2    *PermitSpec     `yaml:"permit2"`
	Buffer     *BufferSpec     `yaml:"buffer"`
	CreatePool *CreatePoolSpec `yaml:"createPool"`
	Swap       *SwapSpec       `yaml:"swap"`
}

// PoolSpec is the pool state of a request
type PoolSpec struct {
	Address         string      `yaml:"address"`
	Type            string      `yaml:"type"`
	ProtocolVersion int         `yaml:"protocolVersion"`
	TotalShares     string      `yaml:"totalShares"` // human BPT supply
	Tokens          []TokenSpec `yaml:"tokens"`
}

// TokenSpec is a pool token. Balance is human readable.
type TokenSpec struct {
	Address    string     `yaml:"address"`
	Decimals   uint8      `yaml:"decimals"`
	Balance    string     `yaml:"balance"`
	Underlying *TokenSpec `yaml:"underlying"`
}

// AmountSpec is a human amount of a token. Decimals may be omitted for pool
// tokens, their underlyings and the pool's BPT.
type AmountSpec struct {
	Token    string `yaml:"token"`
	Amount   string `yaml:"amount"`
	Decimals *uint8 `yaml:"decimals"`
}

// PermitSpec asks for a Permit2 signature wrapped around the call. The
// owner defaults to the configured signer.
type PermitSpec struct {
	Owner       string   `yaml:"owner"`
	Nonces      []uint64 `yaml:"nonces"`
	Expirations []uint64 `yaml:"expirations"`
}

// BufferSpec describes an ERC4626 buffer operation
type BufferSpec struct {
	WrappedToken       TokenSpec `yaml:"wrappedToken"`
	UnderlyingToken    TokenSpec `yaml:"underlyingToken"`
	WrappedAmountIn    string    `yaml:"wrappedAmountIn"`
	UnderlyingAmountIn string    `yaml:"underlyingAmountIn"`
	ExactSharesToIssue string    `yaml:"exactSharesToIssue"` // human, wrapped token decimals
}

// CreatePoolSpec describes a Weighted or Stable pool deployment
type CreatePoolSpec struct {
	Type                       string            `yaml:"type"`
	ProtocolVersion            int               `yaml:"protocolVersion"`
	Name                       string            `yaml:"name"`
	Symbol                     string            `yaml:"symbol"`
	Tokens                     []CreateTokenSpec `yaml:"tokens"`
	SwapFee                    string            `yaml:"swapFee"` // percentage
	Amp                        uint64            `yaml:"amp"`
	PoolHooksContract          string            `yaml:"poolHooksContract"`
	PauseManager               string            `yaml:"pauseManager"`
	SwapFeeManager             string            `yaml:"swapFeeManager"`
	PoolCreator                string            `yaml:"poolCreator"`
	EnableDonation             bool              `yaml:"enableDonation"`
	DisableUnbalancedLiquidity bool              `yaml:"disableUnbalancedLiquidity"`
	Salt                       string            `yaml:"salt"` // random when empty
}

// CreateTokenSpec is one token of a pool deployment. Weight is a percentage.
type CreateTokenSpec struct {
	Address       string `yaml:"address"`
	Weight        string `yaml:"weight"`
	RateProvider  string `yaml:"rateProvider"`
	PaysYieldFees bool   `yaml:"paysYieldFees"`
}

// SwapSpec is the input side of a swap approval
type SwapSpec struct {
	MaxAmountIn AmountSpec `yaml:"maxAmountIn"`
	MultiPath   bool       `yaml:"multiPath"`
}

// LoadRequest reads a yaml request file
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	if req.Operation == "" {
		return nil, fmt.Errorf("request %s: operation is required", path)
	}
	if req.ChainID == 0 {
		return nil, fmt.Errorf("request %s: chainId is required", path)
	}
	return &req, nil
}

// chainParams resolves the simulation target of the request
func (r *Request) chainParams(rpcURL string) liquidity.ChainParams {
	params := liquidity.ChainParams{ChainID: consts.ChainID(r.ChainID), RPCURL: rpcURL}
	if r.Block != 0 {
		params.Block = new(big.Int).SetUint64(r.Block)
	}
	return params
}

// poolState converts the pool section into the pipeline's pool state
func (r *Request) poolState() (*pool.State, error) {
	if r.Pool == nil {
		return nil, fmt.Errorf("%s requires a pool section", r.Operation)
	}
	addr, err := parseAddress("pool.address", r.Pool.Address)
	if err != nil {
		return nil, err
	}
	state := &pool.State{
		Address:         addr,
		Type:            pool.Type(r.Pool.Type),
		ProtocolVersion: r.Pool.ProtocolVersion,
		Tokens:          make([]pool.Token, len(r.Pool.Tokens)),
	}
	if state.ProtocolVersion == 0 {
		state.ProtocolVersion = consts.ProtocolV3
	}
	if r.Pool.TotalShares != "" {
		shares, err := pool.NewTokenAmountFromHuman(state.BptRef(), r.Pool.TotalShares)
		if err != nil {
			return nil, fmt.Errorf("pool.totalShares: %w", err)
		}
		state.TotalShares = shares.Amount
	}
	for i, spec := range r.Pool.Tokens {
		field := fmt.Sprintf("pool.tokens[%d]", i)
		ref, err := spec.ref(field)
		if err != nil {
			return nil, err
		}
		token := pool.Token{Address: ref.Address, Decimals: ref.Decimals, Index: i}
		if token.Balance, err = humanBalance(field, ref, spec.Balance); err != nil {
			return nil, err
		}
		if spec.Underlying != nil {
			uref, err := spec.Underlying.ref(field + ".underlying")
			if err != nil {
				return nil, err
			}
			balance, err := humanBalance(field+".underlying", uref, spec.Underlying.Balance)
			if err != nil {
				return nil, err
			}
			token.UnderlyingToken = &pool.Underlying{Address: uref.Address, Decimals: uref.Decimals, Balance: balance}
		}
		state.Tokens[i] = token
	}
	return state, nil
}

func (s TokenSpec) ref(field string) (pool.TokenRef, error) {
	addr, err := parseAddress(field+".address", s.Address)
	if err != nil {
		return pool.TokenRef{}, err
	}
	return pool.TokenRef{Address: addr, Decimals: s.Decimals}, nil
}

func humanBalance(field string, ref pool.TokenRef, human string) (*big.Int, error) {
	if human == "" {
		return nil, nil
	}
	amount, err := pool.NewTokenAmountFromHuman(ref, human)
	if err != nil {
		return nil, fmt.Errorf("%s.balance: %w", field, err)
	}
	return amount.Amount, nil
}

// amount resolves a human amount against the pool tokens, their
// underlyings and the BPT. Explicit decimals win.
func (r *Request) amount(field string, spec AmountSpec, state *pool.State) (pool.TokenAmount, error) {
	addr, err := parseAddress(field+".token", spec.Token)
	if err != nil {
		return pool.TokenAmount{}, err
	}
	ref := pool.TokenRef{Address: addr}
	switch {
	case spec.Decimals != nil:
		ref.Decimals = *spec.Decimals
	case state == nil:
		return pool.TokenAmount{}, fmt.Errorf("%s.decimals is required without a pool", field)
	default:
		decimals, ok := knownDecimals(state, addr)
		if !ok {
			return pool.TokenAmount{}, fmt.Errorf("%s.decimals is required for %s", field, addr.Hex())
		}
		ref.Decimals = decimals
	}
	amount, err := pool.NewTokenAmountFromHuman(ref, spec.Amount)
	if err != nil {
		return pool.TokenAmount{}, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}

func (r *Request) amounts(field string, specs []AmountSpec, state *pool.State) ([]pool.TokenAmount, error) {
	out := make([]pool.TokenAmount, len(specs))
	for i, spec := range specs {
		amount, err := r.amount(fmt.Sprintf("%s[%d]", field, i), spec, state)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}

func knownDecimals(state *pool.State, addr common.Address) (uint8, bool) {
	if addr == state.Address {
		return pool.BptDecimals, true
	}
	for _, t := range state.Tokens {
		if t.Address == addr {
			return t.Decimals, true
		}
		if t.UnderlyingToken != nil && t.UnderlyingToken.Address == addr {
			return t.UnderlyingToken.Decimals, true
		}
	}
	return 0, false
}

// bpt parses the bptAmount field
func (r *Request) bpt(state *pool.State) (pool.TokenAmount, error) {
	if r.BptAmount == "" {
		return pool.TokenAmount{}, fmt.Errorf("%s requires bptAmount", r.Operation)
	}
	amount, err := pool.NewTokenAmountFromHuman(state.BptRef(), r.BptAmount)
	if err != nil {
		return pool.TokenAmount{}, fmt.Errorf("bptAmount: %w", err)
	}
	return amount, nil
}

func (r *Request) userData() ([]byte, error) {
	if r.UserData == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(r.UserData)
	if err != nil {
		return nil, fmt.Errorf("userData: %w", err)
	}
	return b, nil
}

// buildCreatePool converts the createPool section
func (r *Request) buildCreatePool() (liquidity.CreatePoolInput, error) {
	spec := r.CreatePool
	if spec == nil {
		return liquidity.CreatePoolInput{}, fmt.Errorf("%s requires a createPool section", r.Operation)
	}
	in := liquidity.CreatePoolInput{
		ChainID:                    consts.ChainID(r.ChainID),
		ProtocolVersion:            spec.ProtocolVersion,
		PoolType:                   pool.Type(spec.Type),
		Name:                       spec.Name,
		Symbol:                     spec.Symbol,
		EnableDonation:             spec.EnableDonation,
		DisableUnbalancedLiquidity: spec.DisableUnbalancedLiquidity,
		Tokens:                     make([]liquidity.CreatePoolToken, len(spec.Tokens)),
	}
	if in.ProtocolVersion == 0 {
		in.ProtocolVersion = consts.ProtocolV3
	}
	if spec.Amp != 0 {
		in.Amp = new(big.Int).SetUint64(spec.Amp)
	}
	var err error
	if in.SwapFeePercentage, err = percentageToWad("createPool.swapFee", spec.SwapFee); err != nil {
		return in, err
	}
	optional := []struct {
		field string
		value string
		dst   *common.Address
	}{
		{"createPool.poolHooksContract", spec.PoolHooksContract, &in.PoolHooksContract},
		{"createPool.pauseManager", spec.PauseManager, &in.PauseManager},
		{"createPool.swapFeeManager", spec.SwapFeeManager, &in.SwapFeeManager},
		{"createPool.poolCreator", spec.PoolCreator, &in.PoolCreator},
	}
	for _, o := range optional {
		if o.value == "" {
			continue
		}
		if *o.dst, err = parseAddress(o.field, o.value); err != nil {
			return in, err
		}
	}
	if spec.Salt != "" {
		in.Salt = common.HexToHash(spec.Salt)
	}
	for i, t := range spec.Tokens {
		field := fmt.Sprintf("createPool.tokens[%d]", i)
		token := liquidity.CreatePoolToken{PaysYieldFees: t.PaysYieldFees}
		if token.Address, err = parseAddress(field+".address", t.Address); err != nil {
			return in, err
		}
		if t.RateProvider != "" {
			if token.RateProvider, err = parseAddress(field+".rateProvider", t.RateProvider); err != nil {
				return in, err
			}
			token.TokenType = liquidity.TokenTypeWithRate
		}
		if t.Weight != "" {
			if token.Weight, err = percentageToWad(field+".weight", t.Weight); err != nil {
				return in, err
			}
		}
		in.Tokens[i] = token
	}
	return in, nil
}

// percentageToWad turns "80" into 0.8e18
func percentageToWad(field, percentage string) (*big.Int, error) {
	if percentage == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(percentage)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid percentage %q: %w", field, percentage, err)
	}
	scaled := d.Shift(16)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%s: percentage %q has more than 16 decimals", field, percentage)
	}
	return scaled.BigInt(), nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}
