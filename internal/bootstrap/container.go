package bootstrap

import (
	"context"
	"log"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kisaanbot-be/internal/config"
	"kisaanbot-be/internal/controller"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/implementation"
	"kisaanbot-be/internal/repository/redisstore"
	"kisaanbot-be/internal/service"
	"kisaanbot-be/pkg/cropindex"
	"kisaanbot-be/pkg/embedding"
	"kisaanbot-be/pkg/llm"
	pktNats "kisaanbot-be/pkg/nats"
	"kisaanbot-be/pkg/orchestrator"
	"kisaanbot-be/pkg/rag"
	"kisaanbot-be/pkg/scheduler"
	"kisaanbot-be/pkg/storage"
	"kisaanbot-be/pkg/whatsapp"
)

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService

	// Shared infrastructure exposed for shutdown.
	Scheduler *scheduler.Scheduler
	Logger    logger.ILogger
}

// resolverLLM adapts the generation provider to the single-call surface the
// crop resolver needs.
type resolverLLM struct {
	provider llm.LLMProvider
}

func (r resolverLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return r.provider.Generate(ctx, prompt, llm.WithTemperature(0))
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Database (pgvector-backed knowledge index)
	chunkRepo := implementation.NewKnowledgeChunkRepository(openDB(cfg))

	// Redis session store
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	sessionRepo := redisstore.NewSessionRepository(rdb, cfg.Pipeline.SessionTTL, sysLogger)

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// NATS mirror for session dumps, optional
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
	}

	// Providers
	llmProvider := llm.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Pipeline.GenerationModel, sysLogger)
	embeddingProvider := embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Pipeline.EmbeddingModel)
	log.Printf("[INFO] Using generation model %s, embedding model %s",
		cfg.Pipeline.GenerationModel, cfg.Pipeline.EmbeddingModel)

	orch := orchestrator.New(cfg.Pipeline.WorkerPoolSize, sysLogger)
	retriever := rag.NewRetriever(chunkRepo, embeddingProvider, orch, sysLogger, cfg.Pipeline.RetrievalTopK)

	// Crop vocabulary and resolver
	cropStore := cropindex.NewStore(filepath.Join(cfg.Data.Dir, "crops.json"), sysLogger)
	resolver := cropindex.NewResolver(cropStore, resolverLLM{provider: llmProvider}, sysLogger)

	// WhatsApp transport
	waClient := whatsapp.NewClient(cfg.WhatsApp.GraphAPIURL, cfg.WhatsApp.AccessToken, sysLogger)

	// Media blob storage
	blobStore, err := storage.NewS3Store(context.Background(),
		cfg.Media.Bucket, cfg.Media.Region, cfg.Media.KeyPrefix, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize media storage: %v", err)
	}

	sched := scheduler.New()

	// Services
	publisherService := service.NewPublisherService(pubSub, cfg.Data.AuditTopic)
	auditService := service.NewAuditService(pubSub, cfg.Data.AuditTopic,
		filepath.Join(cfg.Data.Dir, "session_dumps"), natsPub, sysLogger)

	aggregatorService := service.NewAggregatorService(llmProvider, orch, sysLogger)
	decomposerService := service.NewDecomposerService(llmProvider, orch, sysLogger)
	adviceService := service.NewAdviceService(llmProvider, retriever, decomposerService, orch, sysLogger)
	varietyService := service.NewVarietyService(cfg.Data.Dir, llmProvider, orch, sysLogger)
	weatherService := service.NewWeatherService(cfg.Keys.Weather, sysLogger)

	conversationService := service.NewConversationService(
		sessionRepo,
		waClient,
		waClient,
		blobStore,
		resolver,
		aggregatorService,
		adviceService,
		varietyService,
		weatherService,
		publisherService,
		sched,
		sysLogger,
		cfg.Pipeline.RequestBudget,
		cfg.Pipeline.MenuDelay,
	)

	webhookController := controller.NewWebhookController(conversationService, cfg.WhatsApp.VerifyToken, sysLogger)

	return &Container{
		WebhookController: webhookController,
		AuditService:      auditService,
		Scheduler:         sched,
		Logger:            sysLogger,
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.Database.Connection), &gorm.Config{})
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to database: %v", err)
	}
	return db
}
