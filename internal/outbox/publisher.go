// Package outbox drains staged domain events to the broker. Publishing is
// at-least-once: a record is marked published only after the broker accepts
// it, so consumers must dedupe on the record's dedupe key.
package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tickethub/tickethub/internal/adapters/postgres"
	"github.com/tickethub/tickethub/internal/adapters/rabbit"
	"github.com/tickethub/tickethub/internal/observability"
)

const batchSize = 100

type Publisher struct {
	repo     *postgres.Repository
	rabbit   *rabbit.Publisher
	logger   observability.Logger
	interval time.Duration
}

func NewPublisher(repo *postgres.Repository, pub *rabbit.Publisher, logger observability.Logger, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{repo: repo, rabbit: pub, logger: logger, interval: interval}
}

// Run drains the outbox on a fixed cadence until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.WithError(err).Error("outbox drain failed")
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	records, err := p.repo.GetUnpublishedOutbox(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, rec := range records {
		msg := amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    rec.DedupeKey,
			Timestamp:    rec.CreatedAt,
			Body:         rec.Payload,
			DeliveryMode: amqp.Persistent,
		}
		if err := p.rabbit.Publish(ctx, rec.EventType, msg); err != nil {
			// Leave the record NEW; the next sweep retries it.
			p.logger.WithError(err).WithField("event_type", rec.EventType).Error("publish failed")
			continue
		}
		now := time.Now()
		if err := p.repo.MarkPublished(ctx, rec.ID, now); err != nil {
			p.logger.WithError(err).Error("mark published failed")
			continue
		}
		observability.OutboxLag.Set(now.Sub(rec.CreatedAt).Seconds())
	}
	return nil
}
