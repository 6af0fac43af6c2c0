// Package executor drives the per-group pipeline: wait for contract
// sources, extract contract info, generate a script, assemble it,
// compile/deploy/fund/run it against the shared fork session, and
// classify the result (see SPEC_FULL.md §4.8, C8).
package executor

import (
	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/generation"
)

// Collaborator is an alias for the generation package's collaborator
// boundary, kept local so executor call sites read naturally.
type Collaborator = generation.Client

type (
	ScriptBlock            = generation.ScriptBlock
	InterfaceDefinition    = generation.InterfaceDefinition
	TransactionCall        = generation.TransactionCall
	ExtractedContractInfo  = generation.ExtractedContractInfo
	InterfaceSource        = generation.InterfaceSource
)

const (
	InterfaceForgeStd = generation.InterfaceForgeStd
	InterfaceInline   = generation.InterfaceInline
)

// collaboratorAttempts mirrors the original's with_retry(attempts=3,
// delay=8s) call sites for both collaborator calls.
const collaboratorAttempts = 3

func wrapGenerationError(err error, what string) error {
	return agent.Wrap(agent.KindGeneration, err, what)
}
