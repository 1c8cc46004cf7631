package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"animalcare-rag/internal/ai"
	"animalcare-rag/internal/analytics"
	"animalcare-rag/internal/app"
	"animalcare-rag/internal/cache"
	"animalcare-rag/internal/config"
	"animalcare-rag/internal/loader"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/platform/database"
	milvusClient "animalcare-rag/internal/platform/milvus"
	rabbitmqClient "animalcare-rag/internal/platform/rabbitmq"
	redisClient "animalcare-rag/internal/platform/redis"
	"animalcare-rag/internal/repository"
	"animalcare-rag/internal/transport/http/handler"
	"animalcare-rag/internal/vectorindex"
	"animalcare-rag/internal/worker"
)

type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	Milvus       *milvusclient.Client
	Dispatcher   *analytics.Dispatcher
	ExportWorker *worker.AnalyticsExportWorker

	Conversations *app.ConversationService
	Documents     *app.DocumentService

	StartedAt time.Time
}

// New connects every configured dependency and wires the services. On failure the
// already-opened resources are closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	defaultModel, err := model.ParseModelName(cfg.LLM.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("llm.default_model: %w", err)
	}

	a.DB, err = database.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(a.DB); err != nil {
		return nil, err
	}

	var (
		historyCache app.HistoryCache
		locker       cache.SessionLocker = cache.NewLocalLocker()
	)
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, redisClient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		historyCache = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
		locker = cache.NewRedisLocker(a.Redis, time.Duration(cfg.Redis.SessionLockTTLSeconds)*time.Second)
	}

	llmClient := ai.NewClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	embedder := ai.NewEmbedder(llmClient, ai.EmbeddingConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.EmbeddingModel,
		BatchSize: cfg.LLM.EmbeddingBatchSize,
	})

	index, err := a.newIndex(ctx, embedder)
	if err != nil {
		return nil, err
	}

	sink, err := a.newAnalyticsSink(ctx)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = analytics.NewDispatcher(sink, time.Duration(cfg.Analytics.TimeoutSeconds)*time.Second)

	chatCfg := ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey}
	a.Conversations = app.NewConversationService(
		repository.NewChatTurnRepository(a.DB),
		historyCache,
		locker,
		app.NewHistoryAwareRetriever(llmClient, index, chatCfg, cfg.RAG.RetrievalK),
		app.NewAnswerComposer(llmClient, chatCfg, app.ComposerOptions{Prompt: cfg.RAG.AnswerPrompt}),
		a.Dispatcher,
		app.ConversationOptions{
			DefaultModel:   defaultModel,
			RequestTimeout: cfg.RequestTimeout(),
		},
	)
	a.Documents = app.NewDocumentService(
		repository.NewDocumentRepository(a.DB),
		index,
		loader.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		app.DocumentOptions{
			AllowedExtensions: cfg.RAG.AllowedExtensions,
			TempDir:           cfg.RAG.UploadTempDir,
			MaxUploadBytes:    cfg.RAG.MaxUploadBytes,
			Concurrency:       cfg.RAG.UploadConcurrency,
		},
	)

	logger.Infow("application wired",
		"database", cfg.Database.Driver,
		"vector", cfg.Vector.Driver,
		"analytics", cfg.Analytics.Mode,
		"redis", cfg.Redis.Enabled,
	)
	return a, nil
}

func (a *App) newIndex(ctx context.Context, embedder vectorindex.Embedder) (vectorindex.Index, error) {
	cfg := a.Config.Vector
	if cfg.Driver != config.VectorMilvus {
		return vectorindex.NewGormIndex(repository.NewChunkRepository(a.DB), embedder), nil
	}

	client, err := milvusClient.New(ctx, milvusClient.Config{
		Address:    cfg.Milvus.Address,
		Username:   cfg.Milvus.Username,
		Password:   cfg.Milvus.Password,
		Database:   cfg.Milvus.Database,
		Collection: cfg.Milvus.Collection,
		Dimension:  cfg.Milvus.Dimension,
	})
	if err != nil {
		return nil, err
	}
	a.Milvus = client
	return vectorindex.NewMilvusIndex(client, cfg.Milvus.Collection, embedder), nil
}

// newAnalyticsSink returns the sink the request path dispatches to. In queue mode the
// sheet is written by the export worker instead.
func (a *App) newAnalyticsSink(ctx context.Context) (analytics.Sink, error) {
	cfg := a.Config.Analytics
	switch cfg.Mode {
	case config.AnalyticsSheets:
		return analytics.NewSheetsSink(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.Range)
	case config.AnalyticsQueue:
		sheetsSink, err := analytics.NewSheetsSink(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.Range)
		if err != nil {
			return nil, err
		}
		a.MQConn, err = rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		a.ExportWorker = worker.NewAnalyticsExportWorker(a.MQConn, sheetsSink, a.Config.RabbitMQ.AnalyticsQueue,
			time.Duration(cfg.TimeoutSeconds)*time.Second)
		if err := a.ExportWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start analytics export worker failed: %w", err)
		}
		return analytics.NewQueueSink(rabbitmqClient.NewJSONPublisher(a.MQConn, a.Config.RabbitMQ.AnalyticsQueue)), nil
	default:
		return analytics.NopSink{}, nil
	}
}

// HealthChecks lists a probe per connected dependency.
func (a *App) HealthChecks() map[string]handler.Check {
	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx, a.Redis)
		}
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			return rabbitmqClient.Ping(ctx, a.MQConn)
		}
	}
	if a.Milvus != nil {
		checks["milvus"] = func(ctx context.Context) error {
			_, err := a.Milvus.HasCollection(ctx, milvusclient.NewHasCollectionOption(a.Config.Vector.Milvus.Collection))
			return err
		}
	}
	return checks
}

// Close drains pending analytics, then releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	if a.Dispatcher != nil {
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Dispatcher.Wait(waitCtx); err != nil {
			logger.Warnw("analytics events still pending at shutdown", "error", err)
		}
		cancel()
	}
	if a.ExportWorker != nil {
		a.ExportWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Milvus != nil {
		if err := a.Milvus.Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
