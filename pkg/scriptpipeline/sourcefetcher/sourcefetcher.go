// Package sourcefetcher resolves contract source code for the contracts an
// OperationGroup references, in the background, so execution can proceed
// as soon as the groups it needs are ready (see SPEC_FULL.md §4.6, C6).
package sourcefetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-limiter/memorystore"
	"go.uber.org/atomic"

	"github.com/aomilabs/agentcore/internal/agent"
)

// ContractSource is one fetched contract's source record, in the shape a
// structured-generation collaborator expects as input.
type ContractSource struct {
	ChainID  string
	Address  string
	Name     string
	Source   string
	ABI      string
}

// Fetch resolves one ContractKey to its source, or an error. Tests supply a
// fake; the embedding caller supplies the real one (cmd/agentcore's default
// fails every key).
type Fetch func(ctx context.Context, key agent.ContractKey) (ContractSource, error)

// entry is the mutex-protected state of a single tracked contract,
// following pkg/sharedmemory's map-plus-RWMutex shape.
type entry struct {
	state  agent.FetcherState
	source ContractSource
	err    error
}

// Service tracks fetch state for every ContractKey requested of it and
// serves readiness checks against an OperationGroup's contract list.
type Service struct {
	mu      sync.RWMutex
	entries map[agent.ContractKey]*entry

	fetch   Fetch
	limiter *memorystore.Store
	log     zerolog.Logger

	// inFlight counts fetches currently running, mirroring
	// eventfeed.mCurrentHeight's atomic-gauge-for-a-running-worker idiom.
	inFlight atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Service that rate-limits outbound fetches with a token
// bucket of maxConcurrent fetch starts per second (mirrors cmd/api/middlewares/ratelim.go's inbound use of the same
// library, generalized here to outbound RPC calls).
func New(fetch Fetch, maxConcurrent uint64, log zerolog.Logger) (*Service, error) {
	limiter, err := memorystore.New(&memorystore.Config{
		Tokens:   maxConcurrent,
		Interval: time.Second,
	})
	if err != nil {
		return nil, agent.Wrap(agent.KindConfig, err, "build source fetcher rate limiter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		entries: make(map[agent.ContractKey]*entry),
		fetch:   fetch,
		limiter: limiter,
		log:     log.With().Str("component", "sourcefetcher").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	return s, nil
}

// RequestFetch kicks off background fetches for any key not yet tracked and
// re-fetches any key whose earlier fetch Failed. Keys already Fetching or
// Available are left alone.
func (s *Service) RequestFetch(keys []agent.ContractKey) {
	for _, key := range keys {
		s.mu.Lock()
		if e, ok := s.entries[key]; ok {
			if e.state != agent.FetcherFailed {
				s.mu.Unlock()
				continue
			}
			e.state = agent.FetcherMissing
			e.err = nil
		} else {
			s.entries[key] = &entry{state: agent.FetcherMissing}
		}
		s.mu.Unlock()

		s.spawn(key)
	}
}

func (s *Service) spawn(key agent.ContractKey) {
	s.mu.Lock()
	e := s.entries[key]
	e.state = agent.FetcherFetching
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			_, _, _, ok, err := s.limiter.Take(s.ctx, "sourcefetcher")
			if err != nil {
				s.log.Warn().Err(err).Msg("rate limiter error, proceeding without throttling")
				break
			}
			if ok {
				break
			}
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}

		s.inFlight.Inc()
		source, err := s.fetch(s.ctx, key)
		s.inFlight.Dec()

		select {
		case <-s.ctx.Done():
			// Shutdown raced the fetch: never write after Shutdown returns.
			return
		default:
		}

		s.mu.Lock()
		if err != nil {
			e.state = agent.FetcherFailed
			e.err = err
		} else {
			e.state = agent.FetcherAvailable
			e.source = source
		}
		s.mu.Unlock()
	}()
}

// InFlight reports how many fetches are currently running, for health/ops
// reporting.
func (s *Service) InFlight() int64 {
	return s.inFlight.Load()
}

// AreReady reports whether every contract referenced by group has reached
// FetcherAvailable.
func (s *Service) AreReady(group agent.OperationGroup) bool {
	return len(s.Missing(group)) == 0
}

// Missing returns the contract keys referenced by group that are not yet
// FetcherAvailable (whether Missing, Fetching, or Failed).
func (s *Service) Missing(group agent.OperationGroup) []agent.ContractKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []agent.ContractKey
	for _, key := range group.Contracts {
		e, ok := s.entries[key]
		if !ok || e.state != agent.FetcherAvailable {
			missing = append(missing, key)
		}
	}
	return missing
}

// GetForGroup returns the resolved sources for every contract a group
// references. It is only safe to call once AreReady(group) is true;
// otherwise it returns a FetchError naming the still-missing keys.
func (s *Service) GetForGroup(group agent.OperationGroup) ([]ContractSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]ContractSource, 0, len(group.Contracts))
	for _, key := range group.Contracts {
		e, ok := s.entries[key]
		if !ok || e.state != agent.FetcherAvailable {
			return nil, agent.Errorf(agent.KindFetch, "contract source for %s:%s not ready", key.ChainID, key.Address)
		}
		sources = append(sources, e.source)
	}
	return sources, nil
}

// Shutdown stops accepting new work; in-flight fetches that lose the race
// discard their result rather than writing to a closed Service (DESIGN.md
// Open Question 4).
func (s *Service) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
