package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	mongoadapter "github.com/tickethub/tickethub/internal/adapters/mongo"
	"github.com/tickethub/tickethub/internal/adapters/postgres"
	"github.com/tickethub/tickethub/internal/adapters/rabbit"
	redisadapter "github.com/tickethub/tickethub/internal/adapters/redis"
	"github.com/tickethub/tickethub/internal/assistant"
	"github.com/tickethub/tickethub/internal/config"
	httphandler "github.com/tickethub/tickethub/internal/http"
	"github.com/tickethub/tickethub/internal/observability"
	"github.com/tickethub/tickethub/internal/outbox"
	"github.com/tickethub/tickethub/internal/qr"
	"github.com/tickethub/tickethub/internal/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("tickethub")
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)
	chatlog := mongoadapter.NewChatLog(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	replies := redisadapter.NewReplayStore(redisClient, cfg.IdempotencyTTL)
	rl := ratelimit.New(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	qrgen, err := qr.NewGenerator(cfg.QRDir)
	if err != nil {
		log.Fatalf("failed to create qr dir: %v", err)
	}

	completion := assistant.NewOpenAIClient(assistant.ClientConfig{
		Model:   cfg.OpenAIModel,
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})
	chat := assistant.NewGateway(completion, repo, logger)

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, replies, chat, chatlog, audit, qrgen, logger)
	r := httphandler.SetupRouter(handlers, rl, logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	// In-process outbox drain alongside the server; the standalone
	// outbox-publisher binary exists for split deployments.
	drainCtx, drainCancel := context.WithCancel(context.Background())
	defer drainCancel()
	go outbox.NewPublisher(repo, rabbitPub, logger, time.Second).Run(drainCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")
	drainCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
