// Package worker drains the audit outbox into Kafka. Events are written
// at least once: a crash between produce and mark-published replays the
// batch on restart, which downstream consumers must tolerate.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"salegate/pkg/platform/audit/store/postgres"
)

// Worker polls the outbox and publishes pending events to a Kafka topic.
type Worker struct {
	outbox *postgres.Store
	client *kgo.Client
	topic  string
	logger *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval overrides the outbox polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.pollInterval = d
	}
}

// WithBatchSize overrides the per-poll batch size.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		w.batchSize = n
	}
}

// New builds a Worker over an outbox store and a Kafka client.
func New(outbox *postgres.Store, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		outbox:       outbox,
		client:       client,
		topic:        topic,
		logger:       logger,
		pollInterval: 2 * time.Second,
		batchSize:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureTopic creates the audit topic when it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Run polls until the context is canceled. A failed batch is retried on
// the next tick; ordering within the outbox is preserved because rows
// are drained oldest first and only marked published after produce.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	pending, err := w.outbox.Pending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(pending))
	ids := make([]uuid.UUID, len(pending))
	for i, row := range pending {
		records[i] = &kgo.Record{
			Topic: w.topic,
			Key:   []byte(row.ID.String()),
			Value: row.Payload,
		}
		ids[i] = row.ID
	}

	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}
	if err := w.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
		return err
	}

	w.logger.Debug("published audit batch", "count", len(pending))
	return nil
}
