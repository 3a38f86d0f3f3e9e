// Package service hosts the background outbox dispatcher and its delivery
// client. The dispatcher drains the outbox written by the payment write path.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type outboxRepo interface {
	ClaimPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkAttempt(ctx context.Context, id uuid.UUID, status domain.OutboxStatus) error
}

type deliverer interface {
	Deliver(ctx context.Context, event domain.OutboxEvent) error
}

// OutboxDispatcher polls the outbox and delivers pending events. Delivery is
// at-least-once; an event that keeps failing is parked as failed after
// maxAttempts so the queue cannot wedge on a poison row.
type OutboxDispatcher struct {
	outbox      outboxRepo
	client      deliverer
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewOutboxDispatcher(
	outbox outboxRepo,
	client deliverer,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
) *OutboxDispatcher {
	return &OutboxDispatcher{
		outbox:      outbox,
		client:      client,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

func (d *OutboxDispatcher) Start(ctx context.Context) {
	d.logger.Info("outbox dispatcher started", "interval", d.interval, "batch_size", d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.processOnce(ctx)
		}
	}
}

func (d *OutboxDispatcher) processOnce(ctx context.Context) {
	events, err := d.outbox.ClaimPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to fetch pending outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := d.dispatch(ctx, event); err != nil {
			d.logger.Error("failed to record outbox attempt",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context, event domain.OutboxEvent) error {
	if err := d.client.Deliver(ctx, event); err != nil {
		status := domain.OutboxStatusPending
		if event.Attempts+1 >= d.maxAttempts {
			status = domain.OutboxStatusFailed
			d.logger.Error("outbox event exhausted attempts",
				"event_id", event.ID,
				"event_type", event.EventType,
				"attempts", event.Attempts+1,
			)
		} else {
			d.logger.Warn("outbox delivery failed, will retry",
				"event_id", event.ID,
				"attempt", event.Attempts+1,
				"error", err,
			)
		}
		return d.outbox.MarkAttempt(ctx, event.ID, status)
	}

	d.logger.Info("outbox event delivered", "event_id", event.ID, "event_type", event.EventType)
	return d.outbox.MarkAttempt(ctx, event.ID, domain.OutboxStatusDispatched)
}
