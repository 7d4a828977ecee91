package cmd

import (
	"fmt"
	"time"

	"github.com/kayz/promptflow/internal/ai"
	"github.com/kayz/promptflow/internal/config"
	"github.com/kayz/promptflow/internal/executor"
	"github.com/kayz/promptflow/internal/logger"
	"github.com/kayz/promptflow/internal/persist"
	"github.com/kayz/promptflow/internal/pipeline"
	"github.com/kayz/promptflow/internal/relay"
	"github.com/kayz/promptflow/internal/taskdef"
)

// app bundles the wired runtime for one command invocation.
type app struct {
	cfg      *config.Config
	registry *ai.Registry
	router   *ai.ModelRouter
	limiter  *executor.RateLimiter

	chunkRelay executor.ChunkRelay
	knowledge  *taskdef.KnowledgeBase
	auditor    *pipeline.Auditor
	store      *persist.Store
	relay      *relay.Client

	pipeline *pipeline.Pipeline
}

func (a *app) Close() {
	if a.relay != nil {
		a.relay.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// newApp loads config and wires the full pipeline. withRelay dials the relay
// server when one is configured; commands that never stream skip it.
func newApp(modelOverride string, withRelay bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	a.limiter = executor.NewRateLimiter(
		time.Duration(cfg.Limits.RateWindowSeconds)*time.Second,
		cfg.Limits.RateMaxCalls,
	)

	if withRelay && cfg.Relay.ServerURL != "" {
		client, err := relay.Dial(cfg.Relay.ServerURL, cfg.Relay.Token)
		if err != nil {
			logger.Warn("Relay unavailable, streaming without forwarding: %v", err)
		} else {
			a.relay = client
			a.chunkRelay = client
		}
	}

	if cfg.Tasks.KnowledgeDir != "" {
		a.knowledge = taskdef.NewKnowledgeBase(cfg.Tasks.KnowledgeDir)
	}
	if cfg.Audit.Enabled {
		a.auditor = pipeline.NewAuditor(cfg.Audit)
	}
	if cfg.Store.SQLitePath != "" {
		store, err := persist.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open execution history: %w", err)
		}
		a.store = store
	}

	if err := a.selectModel(modelOverride); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// selectModel picks the provider and model and (re)builds the pipeline. The
// model registry takes precedence when present; otherwise the flat ai section
// of the config is used directly.
func (a *app) selectModel(modelOverride string) error {
	if a.registry == nil {
		if reg, err := ai.LoadRegistry(); err == nil && len(reg.ListModels()) > 0 {
			a.registry = reg
			a.router = ai.NewModelRouter(reg, 5*time.Minute)
		}
	}

	if a.router != nil {
		if modelOverride != "" {
			if err := a.router.SwitchToModel(modelOverride, true); err != nil {
				return err
			}
		}
		model := a.router.GetCurrentModel()
		if model == nil {
			return fmt.Errorf("model registry has no usable model")
		}
		return a.useRegistryModel(model)
	}

	if a.cfg.AI.APIKey == "" {
		return fmt.Errorf("no model registry found and ai.api_key is not set")
	}
	provider, err := ai.NewProvider(&ai.ProviderConfig{
		Name:    a.cfg.AI.Provider,
		Type:    a.cfg.AI.Provider,
		BaseURL: a.cfg.AI.BaseURL,
		APIKey:  a.cfg.AI.APIKey,
	})
	if err != nil {
		return err
	}
	model := a.cfg.AI.Model
	if modelOverride != "" {
		model = modelOverride
	}
	a.buildPipeline(provider, model)
	return nil
}

// useRegistryModel rebuilds the pipeline against a registry model. Used on
// initial selection and again on failover.
func (a *app) useRegistryModel(model *ai.ModelConfig) error {
	providerCfg, ok := a.registry.GetProvider(model.Provider)
	if !ok {
		return fmt.Errorf("model %s references unknown provider %s", model.Name, model.Provider)
	}
	provider, err := ai.NewProvider(providerCfg)
	if err != nil {
		return err
	}
	a.buildPipeline(provider, model.Code)
	return nil
}

func (a *app) buildPipeline(provider executor.Provider, model string) {
	controller := executor.NewController(provider, a.limiter, a.chunkRelay, executor.Options{
		Model:       model,
		Temperature: a.cfg.AI.Temperature,
		MaxTokens:   a.cfg.AI.MaxTokens,
		Timeout:     time.Duration(a.cfg.AI.TimeoutSeconds) * time.Second,
	})
	a.pipeline = pipeline.New(a.cfg, controller, a.knowledge, a.auditor, a.store)
}

func loadTask(cfg *config.Config, name string) (*taskdef.Task, error) {
	if cfg.Tasks.Dir == "" {
		return nil, fmt.Errorf("tasks.dir is not configured")
	}
	return taskdef.LoadByName(cfg.Tasks.Dir, name)
}
