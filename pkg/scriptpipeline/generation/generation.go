// Package generation defines the structured-generation collaborator
// boundary: given an operation group's natural-language operations and its
// contracts' fetched sources, extract the contracts' relevant interface and
// generate the Solidity calls that perform the operations (see
// SPEC_FULL.md §6.3, §4.8). agentcore ships no concrete implementation —
// callers plug in the real collaborator themselves.
package generation

import (
	"context"

	"github.com/aomilabs/agentcore/pkg/scriptpipeline/sourcefetcher"
)

// InterfaceSource names where an interface's Solidity definition comes
// from: a forge-std standard interface, or inline code the collaborator
// wrote out itself.
type InterfaceSource int

const (
	InterfaceForgeStd InterfaceSource = iota
	InterfaceInline
)

// InterfaceDefinition is one Solidity interface a generated script needs,
// either imported from forge-std or defined inline.
type InterfaceDefinition struct {
	Name         string
	Source       InterfaceSource
	SolidityCode string
}

// TransactionCall is one generated on-chain call, with a human-readable
// description and the Solidity statement(s) that perform it.
type TransactionCall struct {
	Description  string
	SolidityCode string
}

// ScriptBlock is the collaborator's complete output for one operation
// group: the interfaces it needs plus the ordered calls to make.
type ScriptBlock struct {
	InterfacesNeeded []InterfaceDefinition
	TransactionCalls []TransactionCall
}

// ExtractedContractInfo is the collaborator's structured understanding of
// one contract's relevant surface, derived from its fetched source.
type ExtractedContractInfo struct {
	Name            string
	Address         string
	RelevantMethods []string
}

// Client is the structured-generation black box. Always called through
// pkg/retry by its caller, since it is an external dependency expected to
// fail transiently.
type Client interface {
	ExtractContractInfo(ctx context.Context, operations []string, sources []sourcefetcher.ContractSource) ([]ExtractedContractInfo, error)
	GenerateScript(ctx context.Context, operations []string, infos []ExtractedContractInfo) (ScriptBlock, error)
}
