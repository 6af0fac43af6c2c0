package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/textileio/cli"

	"github.com/aomilabs/agentcore/buildinfo"
	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery"
	"github.com/aomilabs/agentcore/pkg/logging"
	"github.com/aomilabs/agentcore/pkg/metrics"
	"github.com/aomilabs/agentcore/pkg/scriptpipeline/sourcefetcher"
)

type moduleCloser func(ctx context.Context) error

// chainStack is everything wired for one configured chain: an RPC
// connection and the discovery engine running over it. CORE-A (discovery)
// is the part of this spec agentcore can run end to end from its own
// config, since it needs no external collaborator; CORE-B's executor
// additionally needs a generation.Client and a forksession.Backend, which
// this binary does not instantiate — those are supplied by whatever
// embeds agentcore as a library, matching spec.md's "external
// collaborator" framing for the structured-generation and fork-node
// seams.
type chainStack struct {
	client *ethclient.Client
	engine *discovery.Engine
}

func main() {
	config, _ := setupConfig()

	// Logging.
	logging.SetupLogger(buildinfo.GetSummary().BinaryVersion, config.Log.Debug, config.Log.Human)

	// Instrumentation.
	if err := metrics.SetupInstrumentation(":"+config.Metrics.Port, "agentcore"); err != nil {
		log.Fatal().Err(err).Str("port", config.Metrics.Port).Msg("could not setup instrumentation")
	}

	chainStacks, closeChainStacks, err := createChainStacks(config.Chains)
	if err != nil {
		log.Fatal().Err(err).Msg("creating chain stacks")
	}
	log.Info().Int("count", len(chainStacks)).Msg("chain stacks wired")

	sources, err := sourcefetcher.New(unwiredSourceFetch, config.Pipeline.MaxConcurrentFetch, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("creating source fetcher service")
	}

	closeHTTPServer, err := createOpsServer(config.HTTP, sources)
	if err != nil {
		log.Fatal().Err(err).Msg("creating ops HTTP server")
	}

	cli.HandleInterrupt(func() {
		ctx, cls := context.WithTimeout(context.Background(), time.Second*10)
		defer cls()
		if err := closeHTTPServer(ctx); err != nil {
			log.Error().Err(err).Msg("shutting down ops http server")
		}

		ctx, cls = context.WithTimeout(context.Background(), time.Second*20)
		defer cls()
		if err := closeChainStacks(ctx); err != nil {
			log.Error().Err(err).Msg("closing chain stacks")
		}

		sources.Shutdown()
	})
}

// unwiredSourceFetch is the default Fetch function: agentcore ships no
// concrete contract-source-fetching backend (explorer API wire formats are
// an explicit non-goal), so every key immediately fails until a caller
// supplies a real sourcefetcher.Fetch via its own wiring.
func unwiredSourceFetch(ctx context.Context, key agent.ContractKey) (sourcefetcher.ContractSource, error) {
	return sourcefetcher.ContractSource{}, agent.Errorf(agent.KindFetch, "no source fetch backend configured for %s:%s", key.ChainID, key.Address)
}

func createChainStacks(chains []ChainConfig) (map[string]chainStack, moduleCloser, error) {
	stacks := make(map[string]chainStack, len(chains))
	for _, c := range chains {
		if c.EthEndpoint == "" {
			continue
		}
		conn, err := ethclient.Dial(c.EthEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing chain %s endpoint: %s", c.ChainID, err)
		}
		engine := discovery.New(conn, log.Logger.With().Str("chain_id", c.ChainID).Logger())
		stacks[c.ChainID] = chainStack{client: conn, engine: engine}
	}

	closeModule := func(ctx context.Context) error {
		for _, s := range stacks {
			s.client.Close()
		}
		return nil
	}
	return stacks, closeModule, nil
}

func createOpsServer(httpConfig HTTPConfig, sources *sourcefetcher.Service) (moduleCloser, error) {
	router := configuredRouter(sources)
	server := &http.Server{
		Addr:         ":" + httpConfig.Port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      router.Handler(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info().Msg("ops http server gracefully closed")
				return
			}
			log.Fatal().Err(err).Str("port", httpConfig.Port).Msg("couldn't start ops HTTP server")
		}
	}()

	closeModule := func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("closing ops HTTP server: %s", err)
		}
		return nil
	}
	return closeModule, nil
}
