// Package agent holds the data model shared by the discovery handlers and
// the script pipeline: decoded event values, handler configuration, and the
// execution-plan/transaction shapes that flow between them.
package agent

import (
	"fmt"
	"sort"
	"strings"
)

// ValueKind identifies which variant of HandlerValue is populated.
type ValueKind int

// Supported HandlerValue variants, mirroring the seven-way union decoded
// event fields and where-clause operands can take.
const (
	KindString ValueKind = iota
	KindNumber
	KindBoolean
	KindAddress
	KindBytes
	KindArray
	KindObject
)

// HandlerValue is a decoded event field, a where-clause operand, or the
// final projection a handler returns for a field. Exactly one of the typed
// accessors below is meaningful, selected by Kind.
type HandlerValue struct {
	Kind ValueKind

	Str     string
	Num     string // decimal string, preserves values wider than int64/uint64
	Bool    bool
	Address string // checksum-independent lowercase hex, "0x"-prefixed
	Bytes   []byte
	Arr     []HandlerValue
	Obj     map[string]HandlerValue
}

// StringValue builds a HandlerValue of kind KindString.
func StringValue(s string) HandlerValue { return HandlerValue{Kind: KindString, Str: s} }

// NumberValue builds a HandlerValue of kind KindNumber from a decimal string.
func NumberValue(n string) HandlerValue { return HandlerValue{Kind: KindNumber, Num: n} }

// BooleanValue builds a HandlerValue of kind KindBoolean.
func BooleanValue(b bool) HandlerValue { return HandlerValue{Kind: KindBoolean, Bool: b} }

// AddressValue builds a HandlerValue of kind KindAddress. addr is stored
// lowercase, "0x"-prefixed.
func AddressValue(addr string) HandlerValue {
	return HandlerValue{Kind: KindAddress, Address: strings.ToLower(addr)}
}

// BytesValue builds a HandlerValue of kind KindBytes.
func BytesValue(b []byte) HandlerValue { return HandlerValue{Kind: KindBytes, Bytes: b} }

// ArrayValue builds a HandlerValue of kind KindArray.
func ArrayValue(vs []HandlerValue) HandlerValue { return HandlerValue{Kind: KindArray, Arr: vs} }

// ObjectValue builds a HandlerValue of kind KindObject.
func ObjectValue(m map[string]HandlerValue) HandlerValue {
	return HandlerValue{Kind: KindObject, Obj: m}
}

// Null is the sentinel HandlerValue returned in place of a missing field,
// matching the original's "null" string placeholder rather than a Go nil.
var Null = StringValue("null")

// StringKey renders a HandlerValue as a string suitable for deduplication in
// add/remove set tracking. Composite values (array/object) fall back to
// their JSON encoding so two structurally equal values collapse to the same
// key.
func (v HandlerValue) StringKey() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindAddress:
		return v.Address
	case KindBytes:
		return "0x" + fmt.Sprintf("%x", v.Bytes)
	case KindArray, KindObject:
		b, err := marshalValue(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// marshalValue renders a HandlerValue to canonical JSON, used only for
// dedup keys where stable ordering of object keys matters.
func marshalValue(v HandlerValue) ([]byte, error) {
	switch v.Kind {
	case KindArray:
		parts := make([]string, 0, len(v.Arr))
		for _, item := range v.Arr {
			b, err := marshalValue(item)
			if err != nil {
				return nil, err
			}
			parts = append(parts, string(b))
		}
		return []byte("[" + strings.Join(parts, ",") + "]"), nil
	case KindObject:
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			b, err := marshalValue(v.Obj[k])
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf("%q:%s", k, b))
		}
		return []byte("{" + strings.Join(parts, ",") + "}"), nil
	case KindString:
		return []byte(fmt.Sprintf("%q", v.Str)), nil
	case KindNumber:
		return []byte(v.Num), nil
	case KindBoolean:
		return []byte(v.StringKey()), nil
	case KindAddress:
		return []byte(fmt.Sprintf("%q", v.Address)), nil
	case KindBytes:
		return []byte(fmt.Sprintf("%q", v.StringKey())), nil
	default:
		return []byte("null"), nil
	}
}

// MarshalJSON implements json.Marshaler so a HandlerValue can be embedded
// directly in an API response without a manual projection step.
func (v HandlerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindArray:
		parts := make([]string, 0, len(v.Arr))
		for _, item := range v.Arr {
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			parts = append(parts, string(b))
		}
		return []byte("[" + strings.Join(parts, ",") + "]"), nil
	case KindObject:
		parts := make([]string, 0, len(v.Obj))
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b, err := v.Obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf("%q:%s", k, b))
		}
		return []byte("{" + strings.Join(parts, ",") + "}"), nil
	case KindString:
		return []byte(fmt.Sprintf("%q", v.Str)), nil
	case KindNumber:
		return []byte(v.Num), nil
	case KindBoolean:
		return []byte(v.StringKey()), nil
	case KindAddress:
		return []byte(fmt.Sprintf("%q", v.Address)), nil
	case KindBytes:
		return []byte(fmt.Sprintf("%q", "0x"+fmt.Sprintf("%x", v.Bytes))), nil
	default:
		return []byte("null"), nil
	}
}
