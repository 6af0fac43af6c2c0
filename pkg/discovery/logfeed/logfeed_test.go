package logfeed

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	headBlock uint64
	calls     [][2]uint64
	failOn    map[uint64]error
	logsAt    map[uint64][]types.Log
}

func (f *fakeClient) BlockNumber(context.Context) (uint64, error) {
	return f.headBlock, nil
}

func (f *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()
	f.calls = append(f.calls, [2]uint64{from, to})
	if err, ok := f.failOn[from]; ok {
		return nil, err
	}
	return f.logsAt[from], nil
}

func TestFetchRangeEmptyWhenFromAfterTo(t *testing.T) {
	client := &fakeClient{}
	f := New(client, zerolog.Nop())
	logs, err := f.FetchRange(context.Background(), common.Address{}, common.Hash{}, 10, 5)
	require.NoError(t, err)
	require.Empty(t, logs)
	require.Empty(t, client.calls)
}

func TestFetchRangeWalksBatches(t *testing.T) {
	client := &fakeClient{
		logsAt: map[uint64][]types.Log{
			0:     {{BlockNumber: 500}},
			1_000: {{BlockNumber: 1500}},
			2_000: {{BlockNumber: 2000}},
		},
	}
	f := New(client, zerolog.Nop())
	logs, err := f.FetchRange(context.Background(), common.Address{}, common.Hash{}, 0, 2_500)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.Equal(t, [][2]uint64{{0, 999}, {1000, 1999}, {2000, 2500}}, client.calls)
}

func TestFetchRangeAbortsOnFirstError(t *testing.T) {
	client := &fakeClient{
		failOn: map[uint64]error{1_000: errors.New("rpc blew up")},
		logsAt: map[uint64][]types.Log{0: {{BlockNumber: 500}}, 2_000: {{BlockNumber: 2100}}},
	}
	f := New(client, zerolog.Nop())
	logs, err := f.FetchRange(context.Background(), common.Address{}, common.Hash{}, 0, 2_500)
	require.Error(t, err)
	require.Nil(t, logs)
	// The batch that fails is reached, but the walk stops there.
	require.Equal(t, [][2]uint64{{0, 999}, {1000, 1999}}, client.calls)
}

func TestFetchSignaturesMergesAndSortsChronologically(t *testing.T) {
	sigA := common.HexToHash("0x01")
	sigB := common.HexToHash("0x02")
	client := &fakeClient{
		logsAt: map[uint64][]types.Log{
			0: {
				{BlockNumber: 10, Index: 1, Topics: []common.Hash{sigA}},
				{BlockNumber: 5, Index: 0, Topics: []common.Hash{sigB}},
			},
		},
	}
	f := New(client, zerolog.Nop())
	logs, err := f.FetchSignatures(context.Background(), common.Address{}, []common.Hash{sigA, sigB}, 0, 100)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	for i := 1; i < len(logs); i++ {
		require.True(t, logs[i-1].BlockNumber <= logs[i].BlockNumber)
	}
}

func TestRangeWithAnchorAppliesFixedWindow(t *testing.T) {
	client := &fakeClient{headBlock: 2000}
	f := New(client, zerolog.Nop())
	anchor := uint64(1000)
	from, to, err := f.Range(context.Background(), &anchor)
	require.NoError(t, err)
	require.Equal(t, uint64(997), from)
	require.Equal(t, uint64(1003), to)
}

func TestRangeWithAnchorClampsToCurrentHead(t *testing.T) {
	client := &fakeClient{headBlock: 1001}
	f := New(client, zerolog.Nop())
	anchor := uint64(1000)
	from, to, err := f.Range(context.Background(), &anchor)
	require.NoError(t, err)
	require.Equal(t, uint64(997), from)
	require.Equal(t, uint64(1001), to, "upper bound must never exceed the current chain head")
}

func TestRangeWithoutAnchorUsesCurrentHeadLookback(t *testing.T) {
	client := &fakeClient{headBlock: 100}
	f := New(client, zerolog.Nop())
	from, to, err := f.Range(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(95), from)
	require.Equal(t, uint64(100), to)
}

func TestRangeClampsNearGenesis(t *testing.T) {
	client := &fakeClient{headBlock: 2}
	f := New(client, zerolog.Nop())
	from, to, err := f.Range(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), from)
	require.Equal(t, uint64(2), to)
}
