package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// MockCaller is an in-memory node returning canned router results.
// For tests and dry runs only; real deployments dial a node.
type MockCaller struct {
	mu sync.Mutex

	// results by method selector
	results map[[4]byte][]byte
	errs    map[[4]byte]error

	// Calls records every call in order
	Calls []ethereum.CallMsg
	// Blocks records the block pin of every call
	Blocks []*big.Int
	// Dials counts the connections opened
	Dials int
}

// NewMockCaller creates an empty mock caller
func NewMockCaller() *MockCaller {
	return &MockCaller{
		results: make(map[[4]byte][]byte),
		errs:    make(map[[4]byte]error),
	}
}

// SetResult encodes the outputs of a router, composite router or buffer
// router method and returns them for every call to it
func (m *MockCaller) SetResult(method string, values ...interface{}) error {
	mt, err := lookupMethod(method)
	if err != nil {
		return err
	}
	packed, err := mt.Outputs.Pack(values...)
	if err != nil {
		return fmt.Errorf("pack %s outputs: %w", method, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[selector(mt.ID)] = packed
	return nil
}

// SetError makes every call to method fail with err
func (m *MockCaller) SetError(method string, err error) error {
	mt, lookupErr := lookupMethod(method)
	if lookupErr != nil {
		return lookupErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[selector(mt.ID)] = err
	return nil
}

// Dial satisfies DialFunc, handing out the mock itself
func (m *MockCaller) Dial(_ context.Context, _ string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dials++
	return m, nil
}

// CallContract implements ContractCaller
func (m *MockCaller) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, msg)
	m.Blocks = append(m.Blocks, blockNumber)

	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("call data too short")
	}
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	if err, ok := m.errs[sel]; ok {
		return nil, err
	}
	if out, ok := m.results[sel]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("no result for selector %x", sel)
}

// Close implements Client
func (m *MockCaller) Close() {}

// CallCount returns the number of calls seen so far
func (m *MockCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func lookupMethod(name string) (abi.Method, error) {
	for _, contract := range []abi.ABI{routerABI, compositeRouterABI, bufferRouterABI} {
		if mt, ok := contract.Methods[name]; ok {
			return mt, nil
		}
	}
	return abi.Method{}, fmt.Errorf("unknown method %s", name)
}

func selector(id []byte) [4]byte {
	var sel [4]byte
	copy(sel[:], id)
	return sel
}
