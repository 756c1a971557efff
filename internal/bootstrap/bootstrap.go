package bootstrap

import (
	"log/slog"
	"time"

	"github.com/akoval/chatrag/internal/config"
	"github.com/akoval/chatrag/internal/core/ports"
	"github.com/akoval/chatrag/internal/core/usecase"
	"github.com/akoval/chatrag/internal/infrastructure/llm/ollama"
	"github.com/akoval/chatrag/internal/infrastructure/resilience"
	"github.com/akoval/chatrag/internal/infrastructure/vector/searchapi"
	"github.com/akoval/chatrag/internal/observability/metrics"
)

type App struct {
	Config    config.Config
	Retrieval ports.RetrievalService
	Metrics   *metrics.ServerMetrics
}

func New(cfg config.Config) *App {
	exec := resilience.NewExecutor(resilience.DefaultConfig())

	var backend ports.SearchBackend
	if cfg.VectorAPIKey != "" {
		backend = searchapi.New(cfg.VectorBaseURL, cfg.VectorFileBaseURL, cfg.VectorAPIKey, exec)
	} else {
		// Missing credentials are a normal degraded mode: retrieval
		// returns no context, the chat keeps working.
		slog.Info("vector_backend_disabled", "reason", "no api key configured")
	}

	var runner ports.PromptRunner
	var embedder ports.Embedder
	if cfg.OllamaEnabled {
		llmClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec)
		runner = llmClient
		embedder = llmClient
	}

	rewriter := usecase.NewQueryRewriter(runner, cfg.RewriteMaxVariants)
	reranker := usecase.NewReranker(embedder, nil)
	pipeline := usecase.NewRetrievalPipeline(
		backend,
		rewriter,
		reranker,
		time.Duration(cfg.SearchTimeoutSeconds)*time.Second,
	)
	retrieval := usecase.NewRetrievalUseCase(
		backend,
		pipeline,
		cfg.VectorStoreID,
		cfg.ContextTokenBudget,
		time.Duration(cfg.StoreCacheTTLSeconds)*time.Second,
	)

	return &App{
		Config:    cfg,
		Retrieval: retrieval,
		Metrics:   metrics.NewServerMetrics("chatrag-api"),
	}
}
