package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/decode"
)

type fakeClient struct {
	byTopic map[common.Hash][]types.Log
}

func (f *fakeClient) BlockNumber(context.Context) (uint64, error) { return 100, nil }

func (f *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if len(q.Topics) == 0 || len(q.Topics[0]) == 0 {
		return nil, nil
	}
	return f.byTopic[q.Topics[0][0]], nil
}

func addressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

func TestBuildHandlersSkipsStorageMode(t *testing.T) {
	config := map[string]agent.HandlerDefinition{
		"owner": {Mode: agent.ModeEvent, Event: "OwnershipTransferred(address,address)"},
		"slot":  {Mode: agent.HandlerMode(99)},
	}
	handlers, err := BuildHandlers(config, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	require.Equal(t, "owner", handlers[0].Field())
}

func TestDiscoverAssemblesProjectionSkippingHidden(t *testing.T) {
	sig := "OwnershipTransferred(address,address)"
	topic0 := decode.Topic0(sig)
	newOwner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	client := &fakeClient{byTopic: map[common.Hash][]types.Log{
		topic0: {
			{Topics: []common.Hash{topic0, addressTopic(common.Address{}), addressTopic(newOwner)}, BlockNumber: 1, Index: 0},
		},
	}}

	selectRaw, _ := json.Marshal("indexed_1")
	config := map[string]agent.HandlerDefinition{
		"owner":   {Mode: agent.ModeEvent, Event: sig, Select: selectRaw},
		"hiddenF": {Mode: agent.ModeEvent, Event: sig, Select: selectRaw, IgnoreRelative: true},
	}

	handlers, err := BuildHandlers(config, zerolog.Nop())
	require.NoError(t, err)

	engine := New(client, zerolog.Nop())
	projection, results, err := engine.Discover(context.Background(), handlers, common.Address{}, 0, 100)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Contains(t, projection, "owner")
	require.NotContains(t, projection, "hiddenF")
}

func TestBuildHandlersRejectsEventDefinitionWithoutEventOrOperations(t *testing.T) {
	config := map[string]agent.HandlerDefinition{
		"broken": {Mode: agent.ModeEvent},
	}
	_, err := BuildHandlers(config, zerolog.Nop())
	require.Error(t, err)
	require.True(t, agent.Is(err, agent.KindConfig))
}
