package handler

import (
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/decode"
)

// parseLog decodes one log's indexed topics and, in the narrow single-bool
// case, its non-indexed data, into a field-name -> HandlerValue map. This
// mirrors the original handler's ABI-free parser rather than a full ABI
// unpack (see DESIGN.md's C2 grounding and Open Question 2/3).
func parseLog(log types.Log, eventSig string) map[string]agent.HandlerValue {
	result := make(map[string]agent.HandlerValue)

	fieldNames := decode.FieldNames(eventSig)

	topics := log.Topics
	for i, topic := range topics {
		if i == 0 {
			continue // topic0 is the event signature hash, not a field
		}
		fieldName := decode.FieldNameOrIndexed(fieldNames, i-1)
		result[fieldName] = decode.Topic(topic)
	}

	if len(log.Data) > 0 {
		result["data"] = agent.BytesValue(append([]byte(nil), log.Data...))

		if boolVal, ok := decode.DataBool(log.Data); ok {
			// The non-indexed parameter name is whichever field name falls
			// after the indexed ones in declaration order.
			nonIndexedStart := len(topics) - 1
			if nonIndexedStart < len(fieldNames) {
				name := fieldNames[nonIndexedStart]
				if name != "" {
					result[name] = boolVal
				}
			}
		}
	}

	return result
}

// extractFields projects a parsed field map down to the handler's select
// list: no selection returns the whole object, a single field returns it
// directly, multiple fields return a sub-object.
func extractFields(selectFields []string, parsed map[string]agent.HandlerValue) agent.HandlerValue {
	if len(selectFields) == 0 {
		return agent.ObjectValue(parsed)
	}
	if len(selectFields) == 1 {
		if v, ok := parsed[selectFields[0]]; ok {
			return v
		}
		return agent.Null
	}

	selected := make(map[string]agent.HandlerValue, len(selectFields))
	for _, field := range selectFields {
		if v, ok := parsed[field]; ok {
			selected[field] = v
		}
	}
	return agent.ObjectValue(selected)
}
