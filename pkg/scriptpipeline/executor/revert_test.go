package executor

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRevertReasonParsesStandardError(t *testing.T) {
	// Error(string) selector + offset(32) + length(32) + "insufficient balance" padded to 32.
	data, err := hex.DecodeString(
		"08c379a0" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000014" +
			"696e73756666696369656e742062616c616e6365000000000000000000000000",
	)
	require.NoError(t, err)

	reason, ok := decodeRevertReason(data)
	require.True(t, ok)
	require.Equal(t, "insufficient balance", reason)
}

func TestDecodeRevertReasonRejectsOtherSelectors(t *testing.T) {
	data := []byte{0x11, 0x22, 0x33, 0x44}
	_, ok := decodeRevertReason(data)
	require.False(t, ok)
}

func TestDecodeRevertReasonRejectsTruncatedData(t *testing.T) {
	data := append(errorSelector[:], make([]byte, 10)...)
	_, ok := decodeRevertReason(data)
	require.False(t, ok)
}
