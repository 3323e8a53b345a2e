package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// NewRedisSubscriber returns a Redis Streams subscriber in consumerGroup.
func NewRedisSubscriber(client redis.UniversalClient, consumerGroup string) (message.Subscriber, error) {
	return redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: consumerGroup,
		},
		watermill.NewSlogLogger(nil),
	)
}

// Consumer feeds envelopes from a topic to a Dispatcher, one at a time.
// A handler failure stops consumption without acknowledging the message,
// so the host redelivers it once the cause is repaired.
type Consumer struct {
	router     *message.Router
	dispatcher *Dispatcher
	stop       context.CancelCauseFunc
}

// NewConsumer subscribes d to topic on sub.
func NewConsumer(sub message.Subscriber, d *Dispatcher, topic string) (*Consumer, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(nil))
	if err != nil {
		return nil, err
	}
	c := &Consumer{router: router, dispatcher: d}
	router.AddNoPublisherHandler("index-events", topic, sub, c.handle)
	return c, nil
}

func (c *Consumer) handle(msg *message.Message) error {
	start := time.Now()
	err := c.dispatcher.Dispatch(msg.Context(), msg.Payload)
	if errors.Is(err, ErrMalformed) {
		slog.Warn("feed dropped envelope", "msg_uuid", msg.UUID, "err", err)
		return nil
	}
	if err != nil {
		slog.Error("feed handler failed, stopping",
			"msg_uuid", msg.UUID,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		c.stop(fmt.Errorf("feed: %w", err))
		return err
	}
	slog.Debug("feed event processed", "msg_uuid", msg.UUID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Run consumes until ctx is cancelled or a handler fails. It returns the
// handler error in the latter case.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	c.stop = cancel

	err := c.router.Run(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// Running is closed once the consumer is subscribed.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

// Close stops the router and its subscriber.
func (c *Consumer) Close() error {
	return c.router.Close()
}
