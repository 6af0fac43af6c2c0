package forksession

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryMockBackend is an in-memory Backend with no real compiler or EVM
// behind it: CompileSource/DeployContract always succeed, CallContract
// returns whatever RunResult is configured. Exists for tests that exercise
// the executor pipeline without a live forge/anvil toolchain.
type MemoryMockBackend struct {
	mu sync.Mutex

	DeployAddress common.Address
	RunResult     ExecutionResult
	RunErr        error

	CompileCalls int
	Balances     map[common.Address]*big.Int
	Sender       common.Address
}

// NewMemoryMockBackend builds a MemoryMockBackend that deploys to a fixed
// placeholder address and succeeds on run unless configured otherwise.
func NewMemoryMockBackend() *MemoryMockBackend {
	return &MemoryMockBackend{
		DeployAddress: common.HexToAddress("0x1234567890123456789012345678901234567890"),
		RunResult:     ExecutionResult{Success: true},
		Balances:      make(map[common.Address]*big.Int),
	}
}

func (m *MemoryMockBackend) CompileSource(ctx context.Context, label, path, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompileCalls++
	return nil
}

func (m *MemoryMockBackend) DeployContract(ctx context.Context, label, contractName string) (common.Address, error) {
	return m.DeployAddress, nil
}

func (m *MemoryMockBackend) CallContract(ctx context.Context, target common.Address, calldata []byte) (ExecutionResult, error) {
	if m.RunErr != nil {
		return ExecutionResult{}, m.RunErr
	}
	return m.RunResult, nil
}

func (m *MemoryMockBackend) SetBalance(ctx context.Context, addr common.Address, wei *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[addr] = wei
	return nil
}

func (m *MemoryMockBackend) SetSender(ctx context.Context, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sender = addr
	return nil
}
