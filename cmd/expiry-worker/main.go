package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tickethub/tickethub/internal/adapters/postgres"
	"github.com/tickethub/tickethub/internal/adapters/rabbit"
	"github.com/tickethub/tickethub/internal/config"
	"github.com/tickethub/tickethub/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.ExpiryInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker sweeps past-date events and flips their unvalidated tickets
// to EXPIRED, announcing each flip on the broker.
type ExpiryWorker struct {
	repo      *postgres.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewExpiryWorker(repo *postgres.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ids, err := w.repo.ExpireTickets(ctx, now)
			if err != nil {
				w.logger.WithError(err).Error("failed to expire tickets")
				continue
			}
			if len(ids) > 0 {
				w.logger.WithField("count", len(ids)).Info("expired tickets")
			}
			for _, id := range ids {
				if err := w.publishWithRetry(ctx, id); err != nil {
					w.logger.WithError(err).WithField("ticket_id", id).Error("failed to publish expiry after retries")
				}
			}
		}
	}
}

func (w *ExpiryWorker) publishWithRetry(ctx context.Context, ticketID uuid.UUID) error {
	payload, _ := json.Marshal(map[string]interface{}{"ticket_id": ticketID})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		err := w.rabbitPub.Publish(ctx, "ticket.expired", msg)
		if err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Newf("failed after %d retries", maxRetries)
}
