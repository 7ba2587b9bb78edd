package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads jobs from NotificationQueue and passes them to a Handler.
// Workers goroutines handle deliveries concurrently; Prefetch caps how many
// unacknowledged deliveries the broker hands out at once.
type Consumer struct {
	URL      string
	Handler  Handler
	Prefetch int
	Workers  int
	Log      *zap.Logger
}

// Run connects to the broker and consumes until ctx is done.  Lost
// connections are redialed with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Handler == nil {
		return errors.New("consumer has no handler")
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("amqp-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Warn("set qos failed", zap.Error(err))
	}
	if err := declare(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	return c.dispatch(ctx, msgs, log)
}

// dispatch fans deliveries out to the workers and returns once ctx ends or
// the delivery channel closes.
func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery, log *zap.Logger) error {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.work(ctx, msgs, log)
		}()
	}
	wg.Wait()
	return <-errs
}

func (c *Consumer) work(ctx context.Context, msgs <-chan amqp.Delivery, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				log.Error("handle job failed", zap.String("message_id", d.MessageId), zap.Error(err))
				// The retry sweep picks the booking up again, so the message
				// is dropped instead of requeued.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var job NotificationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.Handler(ctx, job)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
