package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/game-knowledge-search/internal/config"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
	"github.com/kirillkom/game-knowledge-search/internal/core/usecase"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/rerank/crossencoder"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/rerank/lexical"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/resilience"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/game-knowledge-search/internal/observability/metrics"
)

const closeTimeout = 5 * time.Second

// Options carries process-specific collaborators. A nil Registerer disables
// search metrics.
type Options struct {
	Service    string
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Search   *usecase.HybridSearcher
	Planner  ports.QueryPlanner
	Answer   ports.AnswerService
	Executor *resilience.Executor

	// Graph is nil when the graph store is disabled or unreachable.
	Graph *neo4j.Client

	Checks map[string]func(ctx context.Context) error

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	service := opts.Service
	if service == "" {
		service = "api"
	}

	var observer ports.SearchObserver = ports.NopObserver{}
	executorOpts := []resilience.Option{resilience.WithLogger(logger)}
	if opts.Registerer != nil {
		searchMetrics := metrics.NewSearchMetrics(opts.Registerer, service)
		observer = searchMetrics
		executorOpts = append(executorOpts, resilience.WithStateListener(searchMetrics.BreakerStateChanged))
	}
	executor := resilience.NewExecutor(cfg.Resilience, executorOpts...)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	records := postgres.NewRecordRepository(db)
	if err := records.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	checks := map[string]func(ctx context.Context) error{
		"postgres": records.Ping,
	}

	lexicon, err := usecase.LoadLexicon(cfg.ClassifierLexiconPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	completer := ollama.NewCompleter(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	var semantic *usecase.SemanticSearcher
	if index, check := openSemanticIndex(ctx, cfg, db, embedder, logger); index != nil {
		semantic = usecase.NewSemanticSearcher(index, logger)
		if check != nil {
			checks[cfg.SemanticBackend] = check
		}
	}

	var graphClient *neo4j.Client
	var graph *usecase.GraphSearcher
	if cfg.GraphEnabled {
		graphClient, err = neo4j.New(ctx, neo4j.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		}, logger)
		if err != nil {
			logger.Warn("graph_search_disabled", "error", err)
		} else {
			graph = usecase.NewGraphSearcher(graphClient, records, lexicon, logger)
			checks["neo4j"] = graphClient.Ping
		}
	}

	var reranker ports.Reranker
	switch cfg.RerankerMode {
	case config.RerankerModeRemote:
		reranker = crossencoder.New(cfg.RerankerURL, cfg.RerankerTimeout, executor)
	case config.RerankerModeLexical:
		reranker = lexical.New()
	}

	rules := usecase.NewRuleClassifier(lexicon)
	planner := usecase.NewPlanClassifier(completer, rules, cfg.ClassifierTimeout, logger)
	search := usecase.NewHybridSearcher(
		planner,
		usecase.NewKeywordSearcher(records, logger),
		semantic,
		graph,
		usecase.NewRerankStage(reranker, cfg.RerankerTimeout, logger),
		observer,
		usecase.SearchOptions{
			RRFK:         cfg.SearchRRFK,
			DefaultLimit: cfg.SearchDefaultLimit,
			MaxLimit:     cfg.SearchMaxLimit,
			EntityLimit:  cfg.SearchEntityLimit,
			SentenceTopK: cfg.SearchSentenceTopK,
		},
		logger,
	)

	logger.Info("bootstrap_ready",
		"semantic_backend", semanticBackendLabel(cfg, semantic),
		"graph_enabled", graph.Enabled(),
		"reranker_mode", cfg.RerankerMode,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Search:   search,
		Planner:  planner,
		Answer:   usecase.NewAnswerUseCase(search, generator),
		Executor: executor,
		Graph:    graphClient,
		Checks:   checks,
		closeFn: func() {
			if graphClient != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				if err := graphClient.Close(closeCtx); err != nil {
					logger.Warn("neo4j_close_failed", "error", err)
				}
			}
			_ = db.Close()
		},
	}, nil
}

// openSemanticIndex returns nil when the backend is disabled or its
// collection/table is missing; semantic search then stays off until restart.
func openSemanticIndex(
	ctx context.Context,
	cfg config.Config,
	db *sql.DB,
	embedder ports.Embedder,
	logger *slog.Logger,
) (ports.SemanticIndex, func(ctx context.Context) error) {
	switch cfg.SemanticBackend {
	case config.SemanticBackendQdrant:
		index, err := qdrant.NewQAIndex(ctx, cfg.QdrantURL, cfg.QdrantCollection, embedder)
		if err != nil {
			logger.Warn("semantic_search_disabled", "backend", cfg.SemanticBackend, "error", err)
			return nil, nil
		}
		return index, index.CheckCollection
	case config.SemanticBackendPGVector:
		index, err := pgvector.NewQAIndex(db, cfg.PGVectorTable, embedder)
		if err == nil && cfg.PGVectorDimension > 0 {
			err = index.EnsureSchema(ctx, cfg.PGVectorDimension)
		}
		if err == nil {
			err = index.CheckTable(ctx)
		}
		if err != nil {
			logger.Warn("semantic_search_disabled", "backend", cfg.SemanticBackend, "error", err)
			return nil, nil
		}
		return index, index.CheckTable
	default:
		return nil, nil
	}
}

func semanticBackendLabel(cfg config.Config, semantic *usecase.SemanticSearcher) string {
	if !semantic.Enabled() {
		return config.SemanticBackendNone
	}
	return cfg.SemanticBackend
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
