package bootstrap

import (
	"context"
	"fmt"

	"github.com/askdesk/knowledge-assistant/internal/config"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
	"github.com/askdesk/knowledge-assistant/internal/core/usecase"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/chunking"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/extractor"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/extractor/docx"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/extractor/pdf"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/extractor/xlsx"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/llm/openai"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/msgraph"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/queue/nats"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/repository/postgres"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/resilience"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/search/azsearch"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/session/memory"
	"github.com/askdesk/knowledge-assistant/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	ChatUC    ports.ChatService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	SearchUC  ports.SearchService
	SyncUC    ports.DriveSyncService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient, err := openai.New(openai.Options{
		BaseURL:            cfg.OpenAIBaseURL,
		APIKey:             cfg.OpenAIAPIKey,
		ChatModel:          cfg.OpenAIChatModel,
		EmbedModel:         cfg.OpenAIEmbedModel,
		RequestsPerSecond:  cfg.OpenAIRPS,
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	searchClient, err := azsearch.New(cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.SearchIndex)
	if err != nil {
		return nil, fmt.Errorf("init search client: %w", err)
	}
	if err := searchClient.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure search index: %w", err)
	}

	rules := usecase.DefaultIntentRules()
	if cfg.IntentRulesPath != "" {
		rules, err = usecase.LoadIntentRules(cfg.IntentRulesPath)
		if err != nil {
			return nil, fmt.Errorf("load intent rules: %w", err)
		}
	}
	classifier, err := usecase.NewIntentClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("build intent classifier: %w", err)
	}

	rc := cfg.Retrieval

	fetcher := usecase.NewCandidateFetcher(llmClient, searchClient, rc.CandidateCap, rc.EntitySearchCap)

	var relevance *usecase.RelevanceFilter
	if rc.RelevanceFilterEnabled {
		relevance = usecase.NewRelevanceFilter(llmClient, usecase.RelevanceOptions{
			BatchSize:    rc.RelevanceBatchSize,
			Concurrency:  rc.RelevanceConcurrency,
			MinKeepScore: rc.RelevanceMinKeepScore,
		})
	}

	ranker := usecase.NewDocumentRanker(usecase.RankerOptions{
		TrackerPenalty:     rc.TrackerPenalty,
		AuthoritativeBoost: rc.AuthoritativeBoost,
		TopRankedCount:     rc.TopRankedCount,
		FinalCount:         rc.FinalCount,
	})

	composer := usecase.NewAnswerComposer(llmClient, usecase.ComposerOptions{
		HistoryTurns:     rc.HistoryPromptTurns,
		HistoryTurnChars: rc.HistoryTurnChars,
		MaxTokens:        rc.AnswerMaxTokens,
		Temperature:      rc.AnswerTemperature,
		Timeout:          rc.AnswerTimeout,
	})

	sessions := memory.New(rc.HistoryCap)

	chatUC := usecase.NewChatUseCase(classifier, fetcher, relevance, ranker, composer, sessions,
		usecase.SnippetOptions{
			MaxSnippets:        rc.MaxSnippets,
			MaxCharsPerSnippet: rc.MaxCharsPerSnippet,
			MinChars:           rc.MinSnippetChars,
			PerDocCap:          rc.PerDocCap,
			FlattenMode:        !rc.DiversityEnabled,
		})

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)

	// Drive sync is optional; it stays nil unless Graph credentials are set.
	var syncUC ports.DriveSyncService
	if cfg.GraphTenantID != "" || cfg.GraphClientID != "" || cfg.GraphClientSecret != "" {
		drive, err := msgraph.New(msgraph.Options{
			TenantID:     cfg.GraphTenantID,
			ClientID:     cfg.GraphClientID,
			ClientSecret: cfg.GraphClientSecret,
			RedirectURI:  cfg.GraphRedirectURI,
		})
		if err != nil {
			return nil, fmt.Errorf("init graph client: %w", err)
		}
		syncUC = usecase.NewDriveSyncUseCase(drive, ingestUC)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if cfg.MinChunkChars > 0 {
		chunker.MinChunkChars = cfg.MinChunkChars
	}

	extractors := extractor.NewDispatcher().
		Register(plaintext.NewExtractor(storage), "txt", "md").
		Register(pdf.NewExtractor(storage), "pdf").
		Register(docx.NewExtractor(storage), "docx", "doc").
		Register(xlsx.NewExtractor(storage), "xlsx")

	processUC := usecase.NewProcessDocumentUseCase(repo, extractors, chunker, llmClient, searchClient)
	searchUC := usecase.NewSearchUseCase(searchClient)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		ChatUC:    chatUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,
		SyncUC:    syncUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
