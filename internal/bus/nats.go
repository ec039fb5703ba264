package bus

import (
	"fmt"
	"time"

	"chat-core/internal/models"
	"chat-core/pkg/logger"

	"github.com/nats-io/nats.go"
)

const maxReconnectDelay = 30 * time.Second

// NATSBus distributes envelopes over NATS, one subject per room
// ("<prefix>.<roomID>"). The connection reconnects forever with capped
// exponential backoff and core subscriptions survive reconnects; messages
// published by other instances while this one was disconnected are not
// replayed, clients recover them from persisted history.
type NATSBus struct {
	conn   *nats.Conn
	prefix string
	sub    *nats.Subscription
}

func ConnectNATS(url, subjectPrefix string) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("chat-core"),
		nats.MaxReconnects(-1),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			delay := time.Second << uint(attempts)
			if delay > maxReconnectDelay || delay <= 0 {
				delay = maxReconnectDelay
			}
			return delay
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Bus disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Bus reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS at %s", conn.ConnectedUrl())
	return &NATSBus{conn: conn, prefix: subjectPrefix}, nil
}

func (b *NATSBus) subject(roomID int) string {
	return fmt.Sprintf("%s.%d", b.prefix, roomID)
}

func (b *NATSBus) Publish(roomID int, env models.Envelope) error {
	data, err := models.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	if !b.conn.IsConnected() {
		// The client buffers the publish and flushes it if the
		// connection comes back, but the sender must hear about the
		// degradation now.
		_ = b.conn.Publish(b.subject(roomID), data)
		return ErrBusUnavailable
	}

	if err := b.conn.Publish(b.subject(roomID), data); err != nil {
		return fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(h Handler) error {
	sub, err := b.conn.Subscribe(b.prefix+".*", func(msg *nats.Msg) {
		env, err := models.DecodeEnvelope(msg.Data)
		if err != nil {
			logger.Error("Dropping undecodable bus payload on %s: %v", msg.Subject, err)
			return
		}
		h(env)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s.*: %w", b.prefix, err)
	}

	b.sub = sub
	return nil
}

func (b *NATSBus) Close() {
	if err := b.conn.Drain(); err != nil {
		logger.Error("Error draining bus connection: %v", err)
	}
}
