package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docflow/internal/ai"
	"docflow/internal/app"
	"docflow/internal/cache"
	"docflow/internal/config"
	"docflow/internal/kb"
	"docflow/internal/model"
	mysqlClient "docflow/internal/platform/mysql"
	rabbitmqClient "docflow/internal/platform/rabbitmq"
	redisClient "docflow/internal/platform/redis"
	"docflow/internal/repository"
	"docflow/internal/source"
	"docflow/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Ingestion       *app.IngestionService
	Query           *app.QueryService
	IngestPublisher *rabbitmqClient.IngestPublisher
	IngestWorker    *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Document{},
		&model.DocumentChunk{},
		&model.Metadata{},
		&model.FailedChunk{},
		&model.QueryRecord{},
		&model.QueryResult{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbeddingClient(ai.EmbeddingConfig{
		BaseURL:     cfg.Embedding.BaseURL,
		APIKey:      cfg.Embedding.APIKey,
		Model:       cfg.Embedding.Model,
		Dimension:   cfg.Embedding.Dimension,
		MaxRetries:  cfg.Embedding.MaxRetries,
		RetryBase:   time.Duration(cfg.Embedding.RetryBaseMs) * time.Millisecond,
		HTTPTimeout: time.Duration(cfg.Embedding.TimeoutSecond) * time.Second,
	})
	kbClient := kb.NewClient(kb.ClientConfig{
		BaseURL:          cfg.KB.BaseURL,
		APIKey:           cfg.KB.APIKey,
		KnowledgeBaseID:  cfg.KB.KnowledgeBaseID,
		DataSourceID:     cfg.KB.DataSourceID,
		StartSyncRetries: cfg.KB.StartSyncRetries,
	})
	statusCache := cache.NewStatusCache(redisCli, time.Duration(cfg.Redis.StatusTTLSeconds)*time.Second)

	docRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	metadataRepo := repository.NewMetadataRepository(mysqlDB)
	failedRepo := repository.NewFailedChunkRepository(mysqlDB)
	queryRepo := repository.NewQueryRepository(mysqlDB)

	ingestion, err := app.NewIngestionService(
		docRepo, chunkRepo, metadataRepo, failedRepo,
		embedder, kbClient, statusCache,
		app.IngestSettings{
			MaxChunkWords: cfg.Ingest.MaxChunkWords,
			OverlapWords:  cfg.Ingest.OverlapWords,
			EmbedFanout:   cfg.Ingest.EmbedFanout,
			PollInterval:  time.Duration(cfg.KB.PollIntervalSeconds) * time.Second,
			PollTimeout:   time.Duration(cfg.KB.PollTimeoutSeconds) * time.Second,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("build ingestion service failed: %w", err)
	}
	query := app.NewQueryService(queryRepo, embedder, kbClient)

	objects := source.NewObjectStore(cfg.Source.BaseURL, 30*time.Second)
	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	ingestWorker := worker.NewIngestWorker(mqConn, ingestion, objects, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:          cfg,
		MySQL:           mysqlDB,
		Redis:           redisCli,
		MQConn:          mqConn,
		Ingestion:       ingestion,
		Query:           query,
		IngestPublisher: publisher,
		IngestWorker:    ingestWorker,
		StartedAt:       time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
