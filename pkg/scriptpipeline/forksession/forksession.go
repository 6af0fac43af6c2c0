// Package forksession manages the shared forked-EVM session that group
// scripts compile, deploy, and run against, plus the fork-endpoint
// selection rule that picks which chain the fork talks to (see
// SPEC_FULL.md §4.9, C9).
package forksession

import (
	"context"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/aomilabs/agentcore/internal/agent"
)

// SharedSessionKey names the one shared fork session, distinct from the
// per-group compiled-artifact labels. Nothing in this package keys a cache
// by it.
const SharedSessionKey = "shared_session"

// defaultDevnetChainID is the chain id a bare local Anvil/forge fork
// targets absent any explicit configuration.
const defaultDevnetChainID = "31337"

// ExecutionResult is the outcome of one on-chain call against the fork.
type ExecutionResult struct {
	Success                 bool
	GasUsed                 uint64
	Returned                []byte
	Logs                    []string
	BroadcastableTransactions []agent.TransactionData
}

// Backend is the set of cheat-code operations a forked EVM session
// exposes. Production wires this to a forge/anvil-backed implementation;
// tests use a mock.
type Backend interface {
	CompileSource(ctx context.Context, label, path, source string) error
	DeployContract(ctx context.Context, label, contractName string) (common.Address, error)
	CallContract(ctx context.Context, target common.Address, calldata []byte) (ExecutionResult, error)
	SetBalance(ctx context.Context, addr common.Address, wei *big.Int) error
	SetSender(ctx context.Context, addr common.Address) error
}

// maxUint256 is the largest value representable in a uint256, used to fund
// the broadcaster with effectively unlimited ETH on the fork.
func maxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

// runSelector is the 4-byte selector for run(), the entry point every
// assembled script exposes.
func runSelector() []byte {
	return crypto.Keccak256([]byte("run()"))[:4]
}

// ResolveForkURL implements the original's fork-selection precedence:
// an explicit URL wins outright; absent one, any chain other than the
// default devnet id is an error (a real fork can't be guessed), and only
// the devnet id falls back to a local default endpoint.
func ResolveForkURL(explicitURL string, targetChainIDs []string) (string, error) {
	if explicitURL == "" {
		explicitURL = os.Getenv("AOMI_FORK_RPC")
	}
	if explicitURL == "" {
		explicitURL = os.Getenv("ETH_RPC_URL")
	}
	if explicitURL != "" {
		return explicitURL, nil
	}

	for _, id := range targetChainIDs {
		if id != defaultDevnetChainID {
			return "", agent.Errorf(agent.KindConfig,
				"no fork RPC configured (set AOMI_FORK_RPC or ETH_RPC_URL) but execution plan targets chain %s", id)
		}
	}
	return "http://localhost:8545", nil
}

// Session is a mutex-protected wrapper around one Backend, shared by every
// group that executes concurrently against the same fork. Per-group
// compiled artifacts are cached by label so repeated calls (e.g. retries)
// don't recompile.
type Session struct {
	mu      sync.Mutex
	backend Backend
	log     zerolog.Logger

	compiled map[string]struct{}
}

// New wraps backend in a Session.
func New(backend Backend, log zerolog.Logger) *Session {
	return &Session{
		backend:  backend,
		log:      log.With().Str("component", "forksession").Logger(),
		compiled: make(map[string]struct{}),
	}
}

// CompileAndDeploy compiles source under label (the executor passes
// group_{Index}, the original's numeric keying) and deploys contractName
// from it, returning the deployed address.
func (s *Session) CompileAndDeploy(ctx context.Context, label, path, source, contractName string) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.compiled[label]; !ok {
		if err := s.backend.CompileSource(ctx, label, path, source); err != nil {
			return common.Address{}, agent.Wrap(agent.KindCompile, err, "compile script "+label)
		}
		s.compiled[label] = struct{}{}
	}

	addr, err := s.backend.DeployContract(ctx, label, contractName)
	if err != nil {
		return common.Address{}, agent.Wrap(agent.KindDeploy, err, "deploy script "+label)
	}
	return addr, nil
}

// FundBroadcaster gives the well-known Anvil default account unlimited ETH
// and sets it as msg.sender for the run that follows.
func (s *Session) FundBroadcaster(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	broadcaster := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if err := s.backend.SetBalance(ctx, broadcaster, maxUint256()); err != nil {
		return agent.Wrap(agent.KindExecution, err, "fund broadcaster")
	}
	if err := s.backend.SetSender(ctx, broadcaster); err != nil {
		return agent.Wrap(agent.KindExecution, err, "set broadcaster sender")
	}
	return nil
}

// Run invokes run() on the deployed script address.
func (s *Session) Run(ctx context.Context, scriptAddress common.Address) (ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selector := runSelector()
	result, err := s.backend.CallContract(ctx, scriptAddress, selector)
	if err != nil {
		return ExecutionResult{}, agent.Wrap(agent.KindExecution, err, "call run()")
	}
	return result, nil
}
