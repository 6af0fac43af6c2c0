// Package discovery ties the log fetcher, topic decoder, where-clause
// evaluator, and handler runtime (C1-C5) together: given a declarative
// configuration document mapping output field names to
// agent.HandlerDefinition, it runs every field's handler over one
// contract address and block range and assembles the final projection
// (see SPEC_FULL.md §4.4, C4).
package discovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/handler"
	"github.com/aomilabs/agentcore/pkg/discovery/logfeed"
)

// fieldHandler is the common surface handler.Handler and
// handler.AccessControlHandler both already implement; the engine doesn't
// care which mode produced it.
type fieldHandler interface {
	Field() string
	Hidden() bool
	Execute(ctx context.Context, fetcher *logfeed.Fetcher, address common.Address, fromBlock, toBlock uint64) agent.HandlerResult
}

// Engine runs a configuration's field handlers against a single chain
// client and assembles their results into one projection.
type Engine struct {
	fetcher *logfeed.Fetcher
	log     zerolog.Logger
}

// New builds an Engine over the given chain client.
func New(client logfeed.ChainClient, log zerolog.Logger) *Engine {
	return &Engine{
		fetcher: logfeed.New(client, log),
		log:     log.With().Str("component", "discovery").Logger(),
	}
}

// BuildHandlers decodes a configuration document (field name ->
// agent.HandlerDefinition) into the concrete handlers that execute it,
// dispatching on each definition's Mode. A Storage/DynamicArray-mode
// definition (produced by external collaborators, opaque to the core per
// spec.md §3) is skipped rather than rejected.
func BuildHandlers(config map[string]agent.HandlerDefinition, log zerolog.Logger) ([]fieldHandler, error) {
	handlers := make([]fieldHandler, 0, len(config))
	for field, def := range config {
		switch def.Mode {
		case agent.ModeEvent:
			h, err := handler.New(field, def, log)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		case agent.ModeAccessControl:
			h, err := handler.NewAccessControl(field, def, log)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		default:
			continue
		}
	}
	return handlers, nil
}

// Discover executes every handler in handlers concurrently over
// [fromBlock, toBlock] at address, then assembles the final
// user-facing projection: one entry per non-hidden field that
// resolved without error. Per-field failures never abort the run — they
// are reported back alongside the projection so a caller can decide
// whether a partial result is acceptable, matching C4's "a bad field
// never aborts the whole run" contract.
func (e *Engine) Discover(
	ctx context.Context,
	handlers []fieldHandler,
	address common.Address,
	fromBlock, toBlock uint64,
) (map[string]agent.HandlerValue, []agent.HandlerResult, error) {
	results := make([]agent.HandlerResult, len(handlers))

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handlers {
		i, h := i, h
		g.Go(func() error {
			results[i] = h.Execute(gctx, e.fetcher, address, fromBlock, toBlock)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	projection := make(map[string]agent.HandlerValue, len(results))
	for _, r := range results {
		if r.Hidden || r.Value == nil {
			continue
		}
		projection[r.Field] = *r.Value
	}
	return projection, results, nil
}
