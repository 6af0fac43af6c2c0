package decode

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aomilabs/agentcore/internal/agent"
)

// Topic decodes one 32-byte indexed topic into a HandlerValue, without
// access to the full ABI. It applies the same narrow heuristics as the
// discovery handlers' original event parser:
//
//   - all zero bytes except the last, which is 0 or 1: Boolean
//   - first 12 bytes zero, remaining 20 a plausible address: Address
//   - anything else: raw Bytes, left for the caller to interpret
func Topic(topic common.Hash) agent.HandlerValue {
	b := topic.Bytes()

	if isBoolean(b) {
		return agent.BooleanValue(b[31] == 1)
	}

	if allZero(b[0:12]) {
		addr := common.BytesToAddress(b[12:32])
		return agent.AddressValue(addr.Hex())
	}

	return agent.BytesValue(append([]byte(nil), b...))
}

// DataBool decodes the single-non-indexed-boolean special case: a 32-byte
// non-indexed data payload that is all zero except a trailing 0/1 byte is
// treated as a bool. Any other data shape is left undecoded — the caller
// still gets the raw bytes under the "data" field.
func DataBool(data []byte) (agent.HandlerValue, bool) {
	if len(data) != 32 || !isBoolean(data) {
		return agent.HandlerValue{}, false
	}
	return agent.BooleanValue(data[31] == 1), true
}

func isBoolean(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	if !allZero(b[0:31]) {
		return false
	}
	return b[31] == 0 || b[31] == 1
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// FieldNameOrIndexed returns names[i] if present and non-empty, otherwise
// the "indexed_N" fallback placeholder.
func FieldNameOrIndexed(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("indexed_%d", i)
}
