// Package whereclause evaluates the ternary S-expression filters attached
// to add/remove event operations: `[operator, field, value]` tested
// against a decoded event's fields.
package whereclause

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/aomilabs/agentcore/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Evaluate tests a where clause against a field map produced by decoding
// one event log. A nil or JSON-null clause always passes. Any other shape
// that isn't a 3-element [operator, field, value] array, or references a
// field absent from fields, is a WhereError.
func Evaluate(clause *agent.WhereClause, fields map[string]agent.HandlerValue) (bool, error) {
	if clause == nil || string(*clause) == "null" || len(*clause) == 0 {
		return true, nil
	}

	var arr []jsoniter.RawMessage
	if err := json.Unmarshal(*clause, &arr); err != nil {
		return false, agent.Wrap(agent.KindWhere, err, "where clause must be a JSON array")
	}
	if len(arr) != 3 {
		return false, agent.Errorf(agent.KindWhere, "where clause must have exactly 3 elements: [operator, field, value]")
	}

	var operator, fieldName string
	if err := json.Unmarshal(arr[0], &operator); err != nil {
		return false, agent.Wrap(agent.KindWhere, err, "where clause operator must be a string")
	}
	if err := json.Unmarshal(arr[1], &fieldName); err != nil {
		return false, agent.Wrap(agent.KindWhere, err, "where clause field must be a string")
	}
	// A leading '#' marks an indexed-topic field reference; strip it before lookup.
	fieldName = strings.TrimPrefix(fieldName, "#")

	actual, ok := fields[fieldName]
	if !ok {
		return false, agent.Errorf(agent.KindWhere, "field %q not found in event data", fieldName)
	}

	switch operator {
	case "=", "==":
		return valuesEqual(actual, arr[2]), nil
	case "!=":
		return !valuesEqual(actual, arr[2]), nil
	default:
		return false, agent.Errorf(agent.KindWhere, "unsupported where clause operator: %s", operator)
	}
}

// valuesEqual compares a decoded HandlerValue against the raw JSON operand
// from the where clause, applying the same coercions as the original
// evaluator: numbers compare as decimal strings, addresses and bytes
// compare as case-insensitive hex.
func valuesEqual(actual agent.HandlerValue, expected jsoniter.RawMessage) bool {
	switch actual.Kind {
	case agent.KindBoolean:
		var b bool
		if err := json.Unmarshal(expected, &b); err != nil {
			return false
		}
		return actual.Bool == b

	case agent.KindString:
		var s string
		if err := json.Unmarshal(expected, &s); err != nil {
			return false
		}
		return actual.Str == s

	case agent.KindNumber:
		// Numbers may be compared against a JSON number or a numeric string;
		// both are re-serialized as decimal text for an exact comparison.
		var s string
		if err := json.Unmarshal(expected, &s); err == nil {
			return actual.Num == s
		}
		var n jsoniter.Number
		if err := json.Unmarshal(expected, &n); err == nil {
			return actual.Num == n.String()
		}
		return false

	case agent.KindAddress:
		var s string
		if err := json.Unmarshal(expected, &s); err != nil {
			return false
		}
		return actual.Address == strings.ToLower(s)

	case agent.KindBytes:
		var s string
		if err := json.Unmarshal(expected, &s); err != nil {
			return false
		}
		return actual.StringKey() == strings.ToLower(s)

	default:
		return false
	}
}
