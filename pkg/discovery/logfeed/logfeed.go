// Package logfeed fetches historical event logs over a block range,
// walking it in bounded sub-ranges so a single call never exceeds what an
// RPC provider is willing to return (see SPEC_FULL.md §4.1).
package logfeed

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/aomilabs/agentcore/internal/agent"
)

// BatchSize is the maximum block span requested in a single FilterLogs
// call, matching the original handler's 1,000-block batches (many public
// RPC providers, e.g. Ankr, reject wider ranges).
const BatchSize = 1_000

// ChainClient is the subset of an ethclient.Client the log feed needs.
// Narrowed to an interface so tests can supply an in-memory fake.
type ChainClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Fetcher walks a block range in BatchSize chunks, fetching logs matching
// one address and topic0 per chunk.
type Fetcher struct {
	client ChainClient
	log    zerolog.Logger
}

// New builds a Fetcher over the given chain client.
func New(client ChainClient, log zerolog.Logger) *Fetcher {
	return &Fetcher{client: client, log: log.With().Str("component", "logfeed").Logger()}
}

// FetchRange fetches all logs for (address, topic0) across [fromBlock,
// toBlock], batching the underlying RPC calls. If fromBlock > toBlock it
// returns an empty slice without making any call. The first sub-range that
// errors aborts the whole fetch — logs already collected are discarded,
// matching the original's all-or-nothing batching contract.
func (f *Fetcher) FetchRange(
	ctx context.Context,
	address common.Address,
	topic0 common.Hash,
	fromBlock, toBlock uint64,
) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, nil
	}

	var all []types.Log
	current := fromBlock
	for current <= toBlock {
		end := current + BatchSize - 1
		if end > toBlock {
			end = toBlock
		}

		query := ethereum.FilterQuery{
			Addresses: []common.Address{address},
			Topics:    [][]common.Hash{{topic0}},
			FromBlock: new(big.Int).SetUint64(current),
			ToBlock:   new(big.Int).SetUint64(end),
		}

		logs, err := f.client.FilterLogs(ctx, query)
		if err != nil {
			return nil, agent.Wrap(agent.KindFetch, err, "fetch logs for blocks")
		}
		all = append(all, logs...)

		current = end + 1
	}

	return all, nil
}

// FetchSignatures fetches logs for multiple topic0 hashes over the same
// range and returns them globally ordered by (block number, log index),
// mirroring the original handler's cross-signature chronological merge.
func (f *Fetcher) FetchSignatures(
	ctx context.Context,
	address common.Address,
	topic0s []common.Hash,
	fromBlock, toBlock uint64,
) ([]types.Log, error) {
	var all []types.Log
	for _, t := range topic0s {
		logs, err := f.FetchRange(ctx, address, t, fromBlock, toBlock)
		if err != nil {
			return nil, err
		}
		all = append(all, logs...)
	}

	SortChronological(all)
	return all, nil
}

// SortChronological sorts logs by (block number, log index) ascending, the
// ordering every handler mode depends on to process occurrences in the
// order they happened on chain.
func SortChronological(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}
