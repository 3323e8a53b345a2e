package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/aco-indexer/internal/chain"
)

// commandNamespace scopes the deterministic ids of published commands.
var commandNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("aco-indexer/register-contract"))

// NewRedisPublisher returns a Redis Streams publisher.
func NewRedisPublisher(client redis.UniversalClient) (message.Publisher, error) {
	return redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewSlogLogger(nil),
	)
}

// Publisher sends RegisterContract commands to the host.
type Publisher struct {
	pub   message.Publisher
	topic string
}

var _ chain.Registrar = (*Publisher)(nil)

// NewPublisher publishes commands to topic on pub.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{pub: pub, topic: topic}
}

// CommandID is the message id of cmd. A command sent again after a replay
// keeps its id, so the host can drop the duplicate.
func CommandID(cmd chain.RegisterContract) string {
	key := chain.HexID(cmd.Address) + "/" + string(cmd.Template) + "/" + strconv.FormatUint(cmd.Block, 10)
	return uuid.NewSHA1(commandNamespace, []byte(key)).String()
}

// Register publishes cmd.
func (p *Publisher) Register(ctx context.Context, cmd chain.RegisterContract) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	msg := message.NewMessage(CommandID(cmd), payload)
	msg.SetContext(ctx)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		slog.Error("register contract publish failed",
			"address", chain.HexID(cmd.Address),
			"template", cmd.Template,
			"msg_uuid", msg.UUID,
			"err", err,
		)
		return err
	}
	slog.Info("register contract published",
		"address", chain.HexID(cmd.Address),
		"template", cmd.Template,
		"block", cmd.Block,
		"msg_uuid", msg.UUID,
	)
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}
