package executor

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/retry"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/forksession"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/plan"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/sourcefetcher"
)

// sourceWaitLimit is how long NextGroups waits for a ready batch's contract
// sources before giving up and failing the whole batch.
const sourceWaitLimit = 60 * time.Second

const sourceWaitPoll = 500 * time.Millisecond

const collaboratorRetryDelay = 8 * time.Second

// Executor runs an ExecutionPlan's ready batches to completion, one batch
// at a time, fanning each batch's groups out concurrently against a shared
// fork session.
type Executor struct {
	plan      *plan.ExecutionPlan
	sources   *sourcefetcher.Service
	session   *forksession.Session
	collab    Collaborator
	assembly  AssemblyConfig
	skipChain bool // FORGE_TEST_SKIP_EXECUTION equivalent
	skipGen   bool // bypasses extract/generate, uses a placeholder script
	log       zerolog.Logger
}

// New builds an Executor wired to an already-running ExecutionPlan and
// source fetcher, and a shared fork session. skipChainExecution mirrors
// the original's FORGE_TEST_SKIP_EXECUTION fast path for tests that only
// want the generated script, not a live compile/deploy/run. skipGeneration
// bypasses the collaborator round trips entirely and assembles a trivial
// placeholder script instead, per spec.md §6.6's skip-generation toggle.
func New(
	p *plan.ExecutionPlan,
	sources *sourcefetcher.Service,
	session *forksession.Session,
	collab Collaborator,
	skipChainExecution bool,
	skipGeneration bool,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		plan:      p,
		sources:   sources,
		session:   session,
		collab:    collab,
		assembly:  DefaultAssemblyConfig(),
		skipChain: skipChainExecution,
		skipGen:   skipGeneration,
		log:       log.With().Str("component", "executor").Logger(),
	}
}

// NextGroups executes the plan's next ready batch to completion and
// reports its per-group results, or an empty slice once the plan is
// quiescent.
func (e *Executor) NextGroups(ctx context.Context) ([]agent.GroupResult, error) {
	batch := e.plan.NextReadyBatch()
	if len(batch) == 0 {
		return nil, nil
	}

	if err := e.waitForSources(ctx, batch); err != nil {
		return nil, err
	}

	results := make([]agent.GroupResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range batch {
		i, group := i, group
		g.Go(func() error {
			result := e.executeGroup(gctx, group)
			results[i] = result
			if result.Failed {
				e.plan.MarkFailed(group.Index)
			} else {
				e.plan.MarkDone(group.Index)
			}
			return nil
		})
	}
	// Group task failures are reported per-group in GroupResult, never
	// propagated as a Go error — every task returns nil, so g.Wait() only
	// waits for the batch to finish and never reports an error.
	_ = g.Wait()

	return results, nil
}

// waitForSources blocks until every contract referenced by batch has a
// resolved source, re-requesting any that are still Missing, and gives up
// after sourceWaitLimit.
func (e *Executor) waitForSources(ctx context.Context, batch []agent.OperationGroup) error {
	deadline := time.Now().Add(sourceWaitLimit)

	for {
		allReady := true
		var missing []agent.ContractKey
		for _, group := range batch {
			if !e.sources.AreReady(group) {
				allReady = false
				missing = append(missing, e.sources.Missing(group)...)
			}
		}
		if allReady {
			return nil
		}

		if time.Now().After(deadline) {
			return agent.Errorf(agent.KindSourceTimeout, "timed out waiting for contract sources: %d missing", len(missing))
		}

		if len(missing) > 0 {
			e.sources.RequestFetch(missing)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sourceWaitPoll):
		}
	}
}

// executeGroup runs the full per-group pipeline. Every failure is
// returned as a Failed GroupResult, never as a Go error — a bad group
// never aborts its siblings or the batch.
func (e *Executor) executeGroup(ctx context.Context, group agent.OperationGroup) agent.GroupResult {
	log := e.log.With().Str("group", group.Description).Logger()

	sources, err := e.sources.GetForGroup(group)
	if err != nil {
		return failedResult(group, err.Error(), "", nil)
	}

	scriptBlock := placeholderScriptBlock(group)
	if !e.skipGen {
		infos, err := e.extractContractInfo(ctx, group, sources)
		if err != nil {
			return failedResult(group, err.Error(), "", nil)
		}

		scriptBlock, err = e.generateScript(ctx, group, infos)
		if err != nil {
			return failedResult(group, err.Error(), "", nil)
		}
	} else {
		log.Debug().Msg("skipping structured generation, using placeholder script")
	}

	code, err := Assemble(scriptBlock, e.assembly)
	if err != nil {
		return failedResult(group, err.Error(), "", nil)
	}

	if e.skipChain {
		log.Debug().Msg("skipping execution, FORGE_TEST_SKIP_EXECUTION equivalent set")
		return agent.GroupResult{GroupIndex: group.Index, Description: group.Description, Operations: group.Operations, GeneratedCode: code}
	}

	label := groupLabel(group)
	scriptPath := fmt.Sprintf("script_%s.sol", label)

	scriptAddress, err := e.session.CompileAndDeploy(ctx, label, scriptPath, code, contractName)
	if err != nil {
		return failedResult(group, err.Error(), code, nil)
	}

	if err := e.session.FundBroadcaster(ctx); err != nil {
		return failedResult(group, err.Error(), code, nil)
	}

	execResult, err := e.session.Run(ctx, scriptAddress)
	if err != nil {
		return failedResult(group, err.Error(), code, nil)
	}

	transactions := execResult.BroadcastableTransactions

	if !execResult.Success {
		return failedResult(group, executionErrorMessage(execResult), code, transactions)
	}

	return agent.GroupResult{
		GroupIndex:    group.Index,
		Description:   group.Description,
		Operations:    group.Operations,
		GeneratedCode: code,
		Transactions:  transactions,
	}
}

// placeholderScriptBlock is the trivial script assembled when skip-generation
// is set: no interfaces, one no-op transaction call per operation, so the
// assembled script still compiles and deploys without ever invoking a real
// collaborator.
func placeholderScriptBlock(group agent.OperationGroup) ScriptBlock {
	calls := make([]TransactionCall, 0, len(group.Operations))
	for _, op := range group.Operations {
		calls = append(calls, TransactionCall{Description: op, SolidityCode: "// skip-generation placeholder;"})
	}
	if len(calls) == 0 {
		calls = append(calls, TransactionCall{Description: "placeholder", SolidityCode: "// skip-generation placeholder;"})
	}
	return ScriptBlock{TransactionCalls: calls}
}

func (e *Executor) extractContractInfo(ctx context.Context, group agent.OperationGroup, sources []sourcefetcher.ContractSource) ([]ExtractedContractInfo, error) {
	correlationID := uuid.NewString()
	log := e.log.With().Str("correlation_id", correlationID).Logger()

	var infos []ExtractedContractInfo
	attempt := 0
	err := retry.Do(ctx, collaboratorAttempts, collaboratorRetryDelay, func(ctx context.Context) error {
		attempt++
		log.Debug().Int("attempt", attempt).Msg("extracting contract info")
		var err error
		infos, err = e.collab.ExtractContractInfo(ctx, group.Operations, sources)
		return err
	})
	if err != nil {
		return nil, wrapGenerationError(err, "extract contract info for "+group.Description)
	}
	return infos, nil
}

func (e *Executor) generateScript(ctx context.Context, group agent.OperationGroup, infos []ExtractedContractInfo) (ScriptBlock, error) {
	correlationID := uuid.NewString()
	log := e.log.With().Str("correlation_id", correlationID).Logger()

	var block ScriptBlock
	attempt := 0
	err := retry.Do(ctx, collaboratorAttempts, collaboratorRetryDelay, func(ctx context.Context) error {
		attempt++
		log.Debug().Int("attempt", attempt).Msg("generating script")
		var err error
		block, err = e.collab.GenerateScript(ctx, group.Operations, infos)
		return err
	})
	if err != nil {
		return ScriptBlock{}, wrapGenerationError(err, "generate script for "+group.Description)
	}
	return block, nil
}

// groupLabel derives the forksession cache key for a group: the original's
// numeric group_{idx} keying, off the group's stable Index.
func groupLabel(group agent.OperationGroup) string {
	return fmt.Sprintf("group_%d", group.Index)
}

func executionErrorMessage(result forksession.ExecutionResult) string {
	if len(result.Returned) == 0 {
		return "script execution failed without revert data"
	}
	if reason, ok := decodeRevertReason(result.Returned); ok {
		return fmt.Sprintf("script execution failed: %s (0x%s)", reason, hex.EncodeToString(result.Returned))
	}
	return fmt.Sprintf("script execution failed. Return data: 0x%s", hex.EncodeToString(result.Returned))
}

func failedResult(group agent.OperationGroup, errMsg, code string, transactions []agent.TransactionData) agent.GroupResult {
	return agent.GroupResult{
		GroupIndex:    group.Index,
		Description:   group.Description,
		Operations:    group.Operations,
		Failed:        true,
		Error:         errMsg,
		GeneratedCode: code,
		Transactions:  transactions,
	}
}
