package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
)

const sample = `
app:
  name: lp-test
  logLevel: debug
signer:
  privateKeyEnv: LP_SIGNER_KEY
chains:
  - chainId: 11155111
    rpcUrl: https://sepolia.example.org
    contracts:
      weightedPoolFactory: "0x7532d5a3bE916e4a4D900240F49F0BABd4FD855C"
slippage: "1"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "lp-test", cfg.App.Name)
	require.Equal(t, "debug", cfg.App.LogLevel)
	require.Equal(t, "LP_SIGNER_KEY", cfg.Signer.PrivateKeyEnv)
	require.True(t, cfg.SignerEnabled())

	chain := cfg.Chain(11155111)
	require.NotNil(t, chain)
	require.Equal(t, "https://sepolia.example.org", chain.RPCURL)
	require.Nil(t, cfg.Chain(1))

	s, err := cfg.DefaultSlippage()
	require.NoError(t, err)
	require.Equal(t, "1", s.Percentage())

	reg, err := cfg.Registry()
	require.NoError(t, err)
	factory, err := reg.Lookup(consts.Sepolia, addresses.WeightedPoolFactory)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x7532d5a3bE916e4a4D900240F49F0BABd4FD855C"), factory)

	// built-in deployments stay in place
	router, err := reg.Router(consts.Sepolia)
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, router)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	require.Equal(t, "lpctl", cfg.App.Name)
	require.Equal(t, "info", cfg.App.LogLevel)
	require.Equal(t, "0.5", cfg.Slippage)
	require.False(t, cfg.SignerEnabled())
	require.Empty(t, cfg.Chains)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "chains: [", "failed to parse config file"},
		{"log level", "app: {logLevel: loud}", "app.logLevel"},
		{"slippage range", `slippage: "100"`, "slippage"},
		{"slippage syntax", `slippage: "one"`, "slippage"},
		{"missing chain id", "chains: [{rpcUrl: http://localhost:8545}]", "chains[0].chainId is required"},
		{"unsupported chain", "chains: [{chainId: 5, rpcUrl: http://localhost:8545}]", "not supported"},
		{"missing rpc", "chains: [{chainId: 1}]", "chains[0].rpcUrl is required"},
		{
			"duplicate chain",
			"chains: [{chainId: 1, rpcUrl: a}, {chainId: 1, rpcUrl: b}]",
			"configured twice",
		},
		{
			"unknown contract",
			"chains: [{chainId: 1, rpcUrl: a, contracts: {quoter: '0x7532d5a3bE916e4a4D900240F49F0BABd4FD855C'}}]",
			`unknown contract "quoter"`,
		},
		{
			"bad address",
			"chains: [{chainId: 1, rpcUrl: a, contracts: {router: '0x1234'}}]",
			"invalid router address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 2)
	require.Equal(t, "LP_SIGNER_KEY", cfg.Signer.PrivateKeyEnv)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	_, err = reg.Lookup(consts.Sepolia, addresses.StablePoolFactory)
	require.NoError(t, err)
}
