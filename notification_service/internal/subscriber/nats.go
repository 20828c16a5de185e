package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/stockbook/pkg/config"
	"github.com/abgdnv/stockbook/pkg/messaging/events"
	pnats "github.com/abgdnv/stockbook/pkg/nats"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// message is the part of jetstream.Msg the handler relies on.
type message interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
}

// Start initializes the NATS JetStream consumer and starts multiple worker goroutines to process messages.
func Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig, notifier *Notifier, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if subscriberCfg.MaxDeliver > 0 {
		cfg.MaxDeliver = subscriberCfg.MaxDeliver
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", subscriberCfg.Consumer, err)
	}
	logger = logger.With("component", "subscriber", "consumer", subscriberCfg.Consumer)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < subscriberCfg.Workers; i++ {
		w := worker{
			consumer: consumer,
			batch:    subscriberCfg.Batch,
			timeout:  subscriberCfg.Timeout,
			interval: subscriberCfg.Interval,
			notifier: notifier,
			logger:   logger.With("worker", i),
		}
		g.Go(func() error {
			return w.run(gCtx)
		})
	}
	return g.Wait()
}

type worker struct {
	consumer jetstream.Consumer
	batch    int
	timeout  time.Duration
	interval time.Duration
	notifier *Notifier
	logger   *slog.Logger
}

// run fetches messages from the NATS JetStream consumer and processes them.
func (w worker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := w.consumer.Fetch(w.batch, jetstream.FetchMaxWait(w.timeout))
			if err != nil {
				if pnats.IsTimeout(err) {
					continue
				}
				w.logger.Error("failed to fetch messages", "error", err)
				// back off before retrying
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(w.interval):
				}
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, w.notifier, w.logger)
			}
			if err := batch.Error(); err != nil && !pnats.IsTimeout(err) {
				w.logger.Warn("fetch finished with error", "error", err)
			}
		}
	}
}

// handleMessage decodes one invoice event, acks it once notified and naks it when it cannot be decoded.
func handleMessage(ctx context.Context, msg message, notifier *Notifier, logger *slog.Logger) {
	if msg == nil {
		logger.Error("received nil message")
		return
	}
	var event events.InvoiceEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	notifier.Notify(ctx, event)

	if err := msg.Ack(); err != nil {
		logger.Error("failed to ack message", "error", err)
	}
}
