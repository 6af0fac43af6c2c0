package handler

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/whereclause"
)

// processLogs is the unified event-handler algorithm (SPEC_FULL.md §4.4,
// grounded on the original's EventHandler::process_logs): walk the
// chronologically sorted logs, classify each by the operation its topic0
// belongs to, apply that operation's where clause, and fold the resulting
// item into the group named either by the configured group_by field's
// value or, absent that, by the handler's own field name. add inserts the
// item keyed by its own stringified form; remove deletes it; set discards
// the whole group and replaces it with just this item.
//
// A topic0 shared by more than one operation (e.g. add and remove both
// driven by the same event, distinguished only by their where clauses, see
// SPEC_FULL.md's where-filter scenario) is tried in add, remove, set order:
// the first candidate whose where clause passes wins, rather than handing
// the log unconditionally to whichever operation was configured first.
func (h *Handler) processLogs(logs []types.Log, bySig map[common.Hash][]matchedOp) agent.HandlerValue {
	groups := make(map[string]map[string]agent.HandlerValue)

	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		candidates, ok := bySig[l.Topics[0]]
		if !ok {
			continue
		}

		var matched matchedOp
		var parsed map[string]agent.HandlerValue
		applied := false
		for _, c := range candidates {
			p := parseLog(l, c.eventSig)
			if h.shouldApply(c, p) {
				matched, parsed, applied = c, p, true
				break
			}
		}
		if !applied {
			continue
		}

		groupKey := h.field
		if h.groupBy != "" {
			fieldValue, ok := parsed[h.groupBy]
			if !ok {
				continue // group_by field absent from this log, skip it
			}
			groupKey = fieldValue.StringKey()
		}

		value := extractFields(h.selectFields, parsed)

		switch matched.kind {
		case opAdd:
			group, ok := groups[groupKey]
			if !ok {
				group = make(map[string]agent.HandlerValue)
				groups[groupKey] = group
			}
			group[value.StringKey()] = value
		case opRemove:
			if group, ok := groups[groupKey]; ok {
				delete(group, value.StringKey())
			}
		case opSet:
			groups[groupKey] = map[string]agent.HandlerValue{groupKey: value}
		}
	}

	if h.groupBy != "" {
		result := make(map[string]agent.HandlerValue, len(groups))
		for key, group := range groups {
			result[key] = agent.ArrayValue(sortedValues(group))
		}
		return agent.ObjectValue(result)
	}

	group := groups[h.field]
	return agent.ArrayValue(sortedValues(group))
}

// shouldApply reports whether matched's where clause (if any) passes for
// parsed. An evaluation error is logged and treated as "does not apply",
// matching the original's log-and-skip behavior.
func (h *Handler) shouldApply(matched matchedOp, parsed map[string]agent.HandlerValue) bool {
	if matched.op.Where == nil {
		return true
	}
	ok, err := whereclause.Evaluate(matched.op.Where, parsed)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to evaluate where clause")
		return false
	}
	return ok
}

// sortedValues returns a group's items sorted by their stringified form,
// matching the original's value_to_string-keyed sort.
func sortedValues(group map[string]agent.HandlerValue) []agent.HandlerValue {
	values := make([]agent.HandlerValue, 0, len(group))
	for _, v := range group {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].StringKey() < values[j].StringKey()
	})
	return values
}
