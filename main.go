package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	generatorx "github.com/demostore/cod-agent/agent/agents/generator"
	orchestratorx "github.com/demostore/cod-agent/agent/agents/orchestrator"
	catalogx "github.com/demostore/cod-agent/agent/catalog"
	intentx "github.com/demostore/cod-agent/agent/intent"
	llmx "github.com/demostore/cod-agent/agent/llm"
	orderx "github.com/demostore/cod-agent/agent/order"
	pricingx "github.com/demostore/cod-agent/agent/pricing"
	statex "github.com/demostore/cod-agent/agent/state"
	bridgex "github.com/demostore/cod-agent/pkg/bridge"
	configx "github.com/demostore/cod-agent/pkg/config"
	_ "github.com/demostore/cod-agent/pkg/logger/autoload"
	openrouterx "github.com/demostore/cod-agent/pkg/openrouter"
	postgresx "github.com/demostore/cod-agent/pkg/postgres"
	serverx "github.com/demostore/cod-agent/server"
)

type AppConfig struct {
	SessionBackend string `envconfig:"SESSION_BACKEND" default:"memory"`
	OrderChannel   string `envconfig:"ORDER_CHANNEL" default:"whatsapp"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	pricingCfg := configx.MustNew[pricingx.Config]("PRICING")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	pgCfg := configx.MustNew[postgresx.Config]("POSTGRES")
	db := postgresx.MustNew(ctx, *pgCfg)
	defer db.Close()

	sessions := newSessionStore(appCfg.SessionBackend)

	catalog := catalogx.NewPostgresStore(db)
	orders := orderx.NewPostgresStore(db)

	finalizer, err := orderx.NewFinalizer(orders, *pricingCfg, appCfg.OrderChannel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build order finalizer")
	}

	executor, err := intentx.NewExecutor(catalog, finalizer, *pricingCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build intent executor")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")

	openRouterClient := openrouterx.NewClient(llmCfg.OpenRouter())
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	gen, err := generatorx.New(
		openRouterClient,
		llmCfg.Model,
		llmCfg.Temperature,
		llmCfg.MaxCompletionToken,
		llmCfg.Timeout,
		serverCfg.StoreName,
		*pricingCfg,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build generator")
	}

	orch, err := orchestratorx.New(sessions, catalog, gen, executor, orchestratorx.Config{
		Currency: pricingCfg.Currency,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	bridgeCfg := configx.MustNew[bridgex.Config]("BRIDGE")
	bridgeClient := bridgex.MustNew(*bridgeCfg)

	srv, err := serverx.New(orch, bridgeClient, *serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	log.Info().
		Str("port", serverCfg.Port).
		Str("store", serverCfg.StoreName).
		Str("session_backend", appCfg.SessionBackend).
		Msg("starting ordering agent")

	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newSessionStore(backend string) statex.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore()
	case "redis":
		redisCfg := configx.MustNew[statex.RedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build redis session store")
		}
		return store
	default:
		log.Fatal().Str("backend", backend).Msg("unknown session backend")
		return nil
	}
}
