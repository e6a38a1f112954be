package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	completionx "github.com/tanpawarit/tenant-assistant/assistant/completion"
	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	orchestratorx "github.com/tanpawarit/tenant-assistant/assistant/orchestrator"
	promptx "github.com/tanpawarit/tenant-assistant/assistant/prompt"
	tenantx "github.com/tanpawarit/tenant-assistant/assistant/tenant"
	transcriptx "github.com/tanpawarit/tenant-assistant/assistant/transcript"
	configx "github.com/tanpawarit/tenant-assistant/pkg/config"
	databasex "github.com/tanpawarit/tenant-assistant/pkg/database"
	openrouterx "github.com/tanpawarit/tenant-assistant/pkg/openrouter"
)

const (
	transcriptBackendDatabase = "database"
	transcriptBackendMemory   = "memory"
)

type TranscriptConfig struct {
	Backend string `default:"database"`
}

type App struct {
	DB           *bun.DB
	Orchestrator *orchestratorx.Orchestrator
}

func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}

func openDatabase(ctx context.Context, opts ...configx.Option) (*bun.DB, error) {
	dbCfg, err := configx.New[databasex.Config]("DATABASE", opts...)
	if err != nil {
		return nil, err
	}
	return databasex.Open(ctx, *dbCfg)
}

func migrate(ctx context.Context, db *bun.DB) error {
	if err := tenantx.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("tenant schema: %w", err)
	}
	if err := transcriptx.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("transcript schema: %w", err)
	}
	return nil
}

// newApp builds every component from configuration once. Nothing reads the
// environment after this returns.
func newApp(ctx context.Context, opts ...configx.Option) (*App, error) {
	db, err := openDatabase(ctx, opts...)
	if err != nil {
		return nil, err
	}
	app := &App{DB: db}

	orch, err := buildOrchestrator(ctx, db, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Orchestrator = orch
	return app, nil
}

func buildOrchestrator(ctx context.Context, db *bun.DB, opts ...configx.Option) (*orchestratorx.Orchestrator, error) {
	gateway, err := tenantx.NewBunGateway(db)
	if err != nil {
		return nil, err
	}

	ctxCfg, err := configx.New[promptx.Config]("CONTEXT", opts...)
	if err != nil {
		return nil, err
	}
	assembler, err := promptx.NewAssembler(*ctxCfg)
	if err != nil {
		return nil, err
	}

	completer, err := buildCompleter(ctx, opts...)
	if err != nil {
		return nil, err
	}

	store, err := buildTranscriptStore(db, opts...)
	if err != nil {
		return nil, err
	}

	turnCfg, err := configx.New[orchestratorx.Config]("TURN", opts...)
	if err != nil {
		return nil, err
	}
	return orchestratorx.New(gateway, assembler, completer, store, *turnCfg)
}

func buildCompleter(ctx context.Context, opts ...configx.Option) (*completionx.Client, error) {
	orCfg, err := configx.New[openrouterx.Config]("OPENROUTER", opts...)
	if err != nil {
		return nil, err
	}
	compCfg, err := configx.New[completionx.Config]("COMPLETION", opts...)
	if err != nil {
		return nil, err
	}

	var provider completionx.Provider
	switch strings.ToLower(strings.TrimSpace(compCfg.Backend)) {
	case completionx.BackendEino:
		provider, err = completionx.NewEinoProviderFromConfig(ctx, orCfg)
	default:
		provider, err = completionx.NewOpenAIProvider(*orCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s completion provider: %w", compCfg.Backend, err)
	}

	log.Info().
		Str("backend", compCfg.Backend).
		Str("model", orCfg.Model).
		Int("max_retries", compCfg.MaxRetries).
		Msg("completion client ready")
	return completionx.NewClient(provider, *compCfg)
}

func buildTranscriptStore(db *bun.DB, opts ...configx.Option) (contractx.TranscriptStore, error) {
	cfg, err := configx.New[TranscriptConfig]("TRANSCRIPT", opts...)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case transcriptBackendMemory:
		log.Warn().Msg("transcript kept in memory; turns are lost on exit")
		return transcriptx.NewMemoryStore(), nil
	case transcriptBackendDatabase, "":
		return transcriptx.NewBunStore(db)
	default:
		return nil, fmt.Errorf("%w: unknown transcript backend %q", contractx.ErrValidation, cfg.Backend)
	}
}
