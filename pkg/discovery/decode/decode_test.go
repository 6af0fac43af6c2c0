package decode

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/aomilabs/agentcore/internal/agent"
)

func TestCanonicalSignatureStripsNames(t *testing.T) {
	require.Equal(t,
		"Transfer(address,address,uint256)",
		CanonicalSignature("Transfer(address from, address to, uint256 value)"))
	require.Equal(t,
		"ProposerPermissionUpdated(address,bool)",
		CanonicalSignature("ProposerPermissionUpdated(address proposer, bool allowed)"))
	require.Equal(t,
		"Transfer(address,address,uint256)",
		CanonicalSignature("Transfer(address,address,uint256)"))
	require.Equal(t, "NoParams()", CanonicalSignature("NoParams()"))
}

func TestTopic0KnownVectors(t *testing.T) {
	require.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		Topic0("Transfer(address,address,uint256)").Hex())
	require.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		Topic0("Transfer(address from, address to, uint256 value)").Hex())
	require.Equal(t,
		"0x2f8788117e7eff1d82e926ec794901d17c78024a50270940304540a733656f0d",
		Topic0("RoleGranted(bytes32,address,address)").Hex())
}

func TestFieldNames(t *testing.T) {
	names := FieldNames("ProposerPermissionUpdated(address proposer, bool allowed)")
	require.Equal(t, []string{"proposer", "allowed"}, names)

	names = FieldNames("Transfer(address,address,uint256)")
	require.Equal(t, []string{"", "", ""}, names)

	names = FieldNames("Event(address sender, uint256, bool flag)")
	require.Equal(t, []string{"sender", "", "flag"}, names)

	names = FieldNames("ValidatorAdded(uint256 indexed chainId,address indexed validator)")
	require.Equal(t, []string{"chainId", "validator"}, names)
}

func TestTopicBoolean(t *testing.T) {
	var raw [32]byte
	raw[31] = 1
	v := Topic(common.BytesToHash(raw[:]))
	require.Equal(t, agent.KindBoolean, v.Kind)
	require.True(t, v.Bool)
}

func TestTopicAddress(t *testing.T) {
	var raw [32]byte
	for i := 12; i < 32; i++ {
		raw[i] = 0x42
	}
	v := Topic(common.BytesToHash(raw[:]))
	require.Equal(t, agent.KindAddress, v.Kind)
	require.Equal(t, strings.ToLower(common.BytesToAddress(raw[12:32]).Hex()), v.Address)
}

func TestTopicFallsBackToBytes(t *testing.T) {
	var raw [32]byte
	raw[0] = 0xff // not zero-padded, so neither bool nor address
	v := Topic(common.BytesToHash(raw[:]))
	require.Equal(t, agent.KindBytes, v.Kind)
	require.Len(t, v.Bytes, 32)
}

func TestDataBool(t *testing.T) {
	data := make([]byte, 32)
	data[31] = 1
	v, ok := DataBool(data)
	require.True(t, ok)
	require.True(t, v.Bool)

	_, ok = DataBool([]byte{0x01, 0x02})
	require.False(t, ok)
}

func TestFieldNameOrIndexed(t *testing.T) {
	names := []string{"proposer", ""}
	require.Equal(t, "proposer", FieldNameOrIndexed(names, 0))
	require.Equal(t, "indexed_1", FieldNameOrIndexed(names, 1))
	require.Equal(t, "indexed_5", FieldNameOrIndexed(names, 5))
}
