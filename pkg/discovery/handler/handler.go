// Package handler builds and executes the discovery handlers that turn a
// declarative agent.HandlerDefinition into a single output field, by
// replaying historical event logs against the configured event signature(s)
// (see SPEC_FULL.md §4.4, C4).
package handler

import (
	"context"
	encjson "encoding/json"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/decode"
	"github.com/aomilabs/agentcore/pkg/discovery/logfeed"
)

// json is jsoniter configured for byte-for-byte compatibility with
// encoding/json, used to decode the "select" field (internal/agent keeps
// the field itself typed as encoding/json.RawMessage, the wire type shared
// with WhereClause).
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler executes one field of a discovery configuration: it walks the
// chronologically sorted union of every add/remove/set operation's matching
// logs, classifying each by operation kind (add before remove before set,
// trying each operation whose event signatures include the log's topic0 in
// turn and falling through to the next when a where clause rejects it) and
// folding it into a per-group-key item map, then emits either a flat array
// (no group_by) or an object keyed by group_by's value (see SPEC_FULL.md
// §4.4).
type Handler struct {
	field        string
	selectFields []string
	addOp        *agent.EventOperation
	removeOp     *agent.EventOperation
	setOp        *agent.EventOperation
	groupBy      string
	dependencies []string
	hidden       bool
	log          zerolog.Logger
}

// New builds a Handler from an event-mode HandlerDefinition. If no
// operation is configured, a synthetic Set operation carrying the
// top-level event is materialized, matching the original's "no
// add/remove/set means replay the single event as a set" behavior.
func New(field string, def agent.HandlerDefinition, log zerolog.Logger) (*Handler, error) {
	if def.Mode != agent.ModeEvent {
		return nil, agent.Errorf(agent.KindConfig, "expected event handler definition for field %q", field)
	}

	add, remove, set := def.Add, def.Remove, def.Set
	if add == nil && remove == nil && set == nil {
		if def.Event == "" {
			return nil, agent.Errorf(agent.KindConfig, "event handler %q requires an 'event' field or add/remove/set operations", field)
		}
		set = &agent.EventOperation{Events: []string{def.Event}}
	}

	for name, op := range map[string]*agent.EventOperation{"add": add, "remove": remove, "set": set} {
		if op != nil && len(op.Events) == 0 {
			return nil, agent.Errorf(agent.KindConfig, "event handler %q: %s operation requires a non-empty 'events' list", field, name)
		}
	}

	selectFields, err := parseSelectFields(def.Select)
	if err != nil {
		return nil, agent.Wrap(agent.KindConfig, err, "parse select fields for "+field)
	}

	return &Handler{
		field:        field,
		selectFields: selectFields,
		addOp:        add,
		removeOp:     remove,
		setOp:        set,
		groupBy:      def.GroupBy,
		hidden:       def.IgnoreRelative,
		log:          log.With().Str("component", "handler").Str("field", field).Logger(),
	}, nil
}

// Field returns the output field name this handler populates.
func (h *Handler) Field() string { return h.field }

// Dependencies returns the other fields this handler's where clauses
// reference (currently always empty: where clauses only look at the
// event's own decoded fields, never at other handlers' results).
func (h *Handler) Dependencies() []string { return h.dependencies }

// Hidden reports whether this field should be omitted from the final,
// user-facing projection while still being computed (e.g. it only feeds a
// where clause on another field).
func (h *Handler) Hidden() bool { return h.hidden }

// Execute fetches logs for every signature across the handler's add,
// remove, and set operations over [fromBlock, toBlock] at address, then
// folds the chronologically sorted result into the handler's output value.
// Any failure is reported in the returned HandlerResult rather than as a Go
// error, matching the original's "a bad field never aborts the whole run"
// contract.
func (h *Handler) Execute(
	ctx context.Context,
	fetcher *logfeed.Fetcher,
	address common.Address,
	fromBlock, toBlock uint64,
) agent.HandlerResult {
	sources := []opSource{
		{kind: opAdd, op: h.addOp},
		{kind: opRemove, op: h.removeOp},
		{kind: opSet, op: h.setOp},
	}

	bySig := make(map[common.Hash][]matchedOp)
	var topic0s []common.Hash
	for _, src := range sources {
		if src.op == nil {
			continue
		}
		for _, sig := range src.op.Events {
			t := decode.Topic0(sig)
			topic0s = append(topic0s, t)
			bySig[t] = append(bySig[t], matchedOp{kind: src.kind, op: src.op, eventSig: sig})
		}
	}

	logs, err := fetcher.FetchSignatures(ctx, address, topic0s, fromBlock, toBlock)
	if err != nil {
		return h.errResult(agent.Wrap(agent.KindFetch, err, "fetch logs for "+h.field))
	}

	value := h.processLogs(logs, bySig)
	return h.okResult(value)
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opSet
)

type opSource struct {
	kind opKind
	op   *agent.EventOperation
}

// matchedOp is what a log's topic0 resolves to: the operation that
// consumes it, which kind that operation is, and the specific event
// signature (among possibly several configured on that operation) whose
// topic0 this is, so the log's fields are decoded with the right names.
type matchedOp struct {
	kind     opKind
	op       *agent.EventOperation
	eventSig string
}

func (h *Handler) okResult(value agent.HandlerValue) agent.HandlerResult {
	return agent.HandlerResult{Field: h.field, Value: &value, Hidden: h.hidden}
}

func (h *Handler) errResult(err error) agent.HandlerResult {
	return agent.HandlerResult{Field: h.field, Error: err.Error(), Hidden: h.hidden}
}

// parseSelectFields decodes the "select" configuration value, which may be
// a bare string, an array of strings, or absent.
func parseSelectFields(raw encjson.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	return nil, agent.Errorf(agent.KindConfig, "select must be a string or array of strings")
}
