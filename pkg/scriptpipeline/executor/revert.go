package executor

import "math/big"

// errorSelector is the 4-byte selector for Solidity's standard
// Error(string) revert encoding.
var errorSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// decodeRevertReason extracts the message from a standard ABI-encoded
// Error(string) revert, returning ok=false for any other revert shape
// (custom errors, panics, or no return data at all).
func decodeRevertReason(data []byte) (string, bool) {
	if len(data) < 4 || data[0] != errorSelector[0] || data[1] != errorSelector[1] ||
		data[2] != errorSelector[2] || data[3] != errorSelector[3] {
		return "", false
	}
	if len(data) < 68 {
		return "", false
	}

	strLen := new(big.Int).SetBytes(data[36:68])
	if !strLen.IsUint64() {
		return "", false
	}
	start := 68
	end := start + int(strLen.Uint64())
	if end > len(data) || end < start {
		return "", false
	}

	return string(data[start:end]), true
}
