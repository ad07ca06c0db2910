package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/aggregate"
	"github.com/kisanmitra/advisor/internal/cache"
	"github.com/kisanmitra/advisor/internal/classify"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/monitoring"
	"github.com/kisanmitra/advisor/internal/orchestrator"
	"github.com/kisanmitra/advisor/internal/provider"
	"github.com/kisanmitra/advisor/internal/ratelimit"
	"github.com/kisanmitra/advisor/internal/store"
	"github.com/kisanmitra/advisor/pkg/agmarknet"
	"github.com/kisanmitra/advisor/pkg/agridata"
	"github.com/kisanmitra/advisor/pkg/anthropic"
	"github.com/kisanmitra/advisor/pkg/openmeteo"
)

// advisorEnv holds everything the serve/ask commands need. Callers should
// defer env.Close().
type advisorEnv struct {
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store // nil when store.driver is "none"
	Metrics      *monitoring.Metrics

	cache   cache.Cache
	limiter *ratelimit.Limiter
}

// Close releases resources held by the environment.
func (env *advisorEnv) Close() {
	if env.limiter != nil {
		_ = env.limiter.Close()
	}
	if env.cache != nil {
		_ = env.cache.Close()
	}
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initAdvisor assembles the pipeline from configuration: store, cache,
// providers, classifier, aggregator, orchestrator.
func initAdvisor(ctx context.Context) (*advisorEnv, error) {
	env := &advisorEnv{Metrics: monitoring.New()}

	// Conversation log store.
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		env.Store = st
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		env.Store = st
	case "none":
		// Conversation logging disabled.
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if env.Store != nil {
		if err := env.Store.Migrate(ctx); err != nil {
			env.Close()
			return nil, err
		}
	}

	// Cache backend.
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedis(cfg.Cache.Redis)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.cache = c
	case "memory", "":
		env.cache = cache.NewMemory()
	default:
		env.Close()
		return nil, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	// Classifier, with an optional external rules file.
	rules := []classify.Rule(nil)
	if cfg.Classify.RulesPath != "" {
		loaded, err := classify.LoadRules(cfg.Classify.RulesPath)
		if err != nil {
			env.Close()
			return nil, err
		}
		rules = loaded
	}
	classifier := classify.New(classify.Config{
		MinIntentScore:   cfg.Classify.MinIntentScore,
		LowConfidence:    cfg.Classify.LowConfidence,
		FuzzyMaxDistance: cfg.Classify.FuzzyMaxDistance,
		BaseLanguage:     model.Language(cfg.Classify.BaseLanguage),
	}, rules)

	// Providers.
	floor := cfg.Providers.FallbackReliability
	registry := provider.NewRegistry()
	registry.Register(provider.NewWeather(
		openmeteo.NewClient(openmeteo.WithBaseURL(cfg.Providers.OpenMeteo.BaseURL)), floor))
	registry.Register(provider.NewMarket(
		agmarknet.NewClient(cfg.Providers.Agmarknet.Key,
			agmarknet.WithBaseURL(cfg.Providers.Agmarknet.BaseURL)), floor))

	agridataOpts := []agridata.Option{}
	if cfg.Providers.Agridata.BaseURL != "" {
		agridataOpts = append(agridataOpts, agridata.WithBaseURL(cfg.Providers.Agridata.BaseURL))
	}
	agridataClient := agridata.NewClient(cfg.Providers.Agridata.Key, agridataOpts...)
	registry.Register(provider.NewCrop(agridataClient, floor))
	registry.Register(provider.NewScheme(agridataClient, floor))

	if cfg.Providers.Anthropic.Key != "" {
		registry.Register(provider.NewKnowledge(
			anthropic.NewClient(cfg.Providers.Anthropic.Key),
			cfg.Providers.Anthropic.Model,
			cfg.Providers.Anthropic.MaxTokens,
			floor,
		))
	} else {
		zap.L().Warn("anthropic key not set, general-knowledge questions will use fallback answers")
		registry.Register(provider.NewKnowledge(nil, "", 0, floor))
	}

	aggregator := aggregate.New(registry, env.cache, cfg.Cache.TTL, cfg.Providers.Timeout, floor)

	env.limiter = ratelimit.New(ratelimit.DefaultTiers(
		cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, cfg.RateLimit.PerDay))

	sinks := []orchestrator.EventSink{}
	if env.Store != nil {
		sinks = append(sinks, store.Sink(env.Store))
	}

	env.Orchestrator = orchestrator.New(
		env.limiter, classifier, aggregator, env.cache,
		cfg.Cache.TTL.Answer, env.Metrics, sinks...,
	)

	return env, nil
}
