package executor

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/forksession"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/plan"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/sourcefetcher"
)

type fakeCollaborator struct {
	scriptErr error
	block     ScriptBlock
}

func (f *fakeCollaborator) ExtractContractInfo(ctx context.Context, operations []string, sources []sourcefetcher.ContractSource) ([]ExtractedContractInfo, error) {
	infos := make([]ExtractedContractInfo, len(sources))
	for i, s := range sources {
		infos[i] = ExtractedContractInfo{Name: s.Name, Address: s.Address}
	}
	return infos, nil
}

func (f *fakeCollaborator) GenerateScript(ctx context.Context, operations []string, infos []ExtractedContractInfo) (ScriptBlock, error) {
	if f.scriptErr != nil {
		return ScriptBlock{}, f.scriptErr
	}
	if len(f.block.TransactionCalls) > 0 || len(f.block.InterfacesNeeded) > 0 {
		return f.block, nil
	}
	return ScriptBlock{
		TransactionCalls: []TransactionCall{{Description: "noop", SolidityCode: "// noop;"}},
	}, nil
}

func newTestExecutor(t *testing.T, groups []agent.OperationGroup, collab Collaborator, skipChain bool) (*Executor, *sourcefetcher.Service) {
	t.Helper()
	p := plan.New(groups)

	fetch := func(ctx context.Context, k agent.ContractKey) (sourcefetcher.ContractSource, error) {
		return sourcefetcher.ContractSource{ChainID: k.ChainID, Address: k.Address, Name: k.Name, Source: "contract " + k.Name + " {}"}, nil
	}
	sources, err := sourcefetcher.New(fetch, 10, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(sources.Shutdown)

	backend := forksession.NewMemoryMockBackend()
	session := forksession.New(backend, zerolog.Nop())

	exec := New(p, sources, session, collab, skipChain, false, zerolog.Nop())
	return exec, sources
}

func TestNextGroupsSkipChainFastPathReturnsGeneratedCode(t *testing.T) {
	groups := []agent.OperationGroup{
		{Description: "wrap eth", Operations: []string{"wrap 1 ETH to WETH"}},
	}
	exec, sources := newTestExecutor(t, groups, &fakeCollaborator{}, true)

	sources.RequestFetch(groups[0].Contracts)
	results, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Failed)
	require.Contains(t, results[0].GeneratedCode, "AomiScript")
	require.Contains(t, results[0].GeneratedCode, "noop;")
}

func TestNextGroupsReturnsEmptyWhenPlanQuiescent(t *testing.T) {
	groups := []agent.OperationGroup{{Description: "solo"}}
	exec, _ := newTestExecutor(t, groups, &fakeCollaborator{}, true)

	_, err := exec.NextGroups(context.Background())
	require.NoError(t, err)

	results, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestExecuteGroupFailsWhenScriptGenerationErrors(t *testing.T) {
	groups := []agent.OperationGroup{{Description: "broken"}}
	collab := &fakeCollaborator{scriptErr: assertErr{}}
	exec, _ := newTestExecutor(t, groups, collab, true)

	results, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Failed)
	require.NotEmpty(t, results[0].Error)
}

func TestDependentGroupWaitsUntilDependencyDone(t *testing.T) {
	groups := []agent.OperationGroup{
		{Description: "first"},
		{Description: "second", Dependencies: []int{0}},
	}
	exec, _ := newTestExecutor(t, groups, &fakeCollaborator{}, true)

	first, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "first", first[0].Description)

	second, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "second", second[0].Description)
}

func TestSkipGenerationUsesPlaceholderScript(t *testing.T) {
	groups := []agent.OperationGroup{
		{Description: "wrap eth", Operations: []string{"wrap 1 ETH to WETH"}},
	}
	p := plan.New(groups)
	fetch := func(ctx context.Context, k agent.ContractKey) (sourcefetcher.ContractSource, error) {
		return sourcefetcher.ContractSource{ChainID: k.ChainID, Address: k.Address, Name: k.Name, Source: "contract " + k.Name + " {}"}, nil
	}
	sources, err := sourcefetcher.New(fetch, 10, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(sources.Shutdown)
	sources.RequestFetch(groups[0].Contracts)

	backend := forksession.NewMemoryMockBackend()
	session := forksession.New(backend, zerolog.Nop())

	collab := &fakeCollaborator{scriptErr: assertErr{}}
	exec := New(p, sources, session, collab, true, true, zerolog.Nop())

	results, err := exec.NextGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Failed)
	require.Contains(t, results[0].GeneratedCode, "skip-generation placeholder")
}

type assertErr struct{}

func (assertErr) Error() string { return "generation collaborator unavailable" }
