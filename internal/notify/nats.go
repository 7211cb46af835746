package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"coiapi/internal/resilience"
)

// publisher is the subset of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON to "<prefix>.<kind>" subjects.
type NATSNotifier struct {
	conn     publisher
	prefix   string
	executor *resilience.Executor
}

// NATSOptions tunes the connection.
type NATSOptions struct {
	Name          string
	Timeout       time.Duration
	ReconnectWait time.Duration
	MaxReconnects int
}

// ConnectNATS dials the server with reconnect handling that logs through zap.
func ConnectNATS(url string, opts NATSOptions, logger *zap.Logger) (*nats.Conn, error) {
	if opts.Name == "" {
		opts.Name = "coiapi"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	conn, err := nats.Connect(url,
		nats.Name(opts.Name),
		nats.Timeout(opts.Timeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NewNATSNotifier builds a notifier on an existing connection. executor may be nil.
func NewNATSNotifier(conn publisher, prefix string, executor *resilience.Executor) *NATSNotifier {
	if prefix == "" {
		prefix = "coiapi.events"
	}
	return &NATSNotifier{conn: conn, prefix: prefix, executor: executor}
}

// Subject returns the subject an event kind is published on.
func (n *NATSNotifier) Subject(kind Kind) string {
	return n.prefix + "." + string(kind)
}

// Notify publishes the event.
func (n *NATSNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := n.Subject(ev.Kind)
	call := func(context.Context) error {
		if err := n.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}
	if n.executor == nil {
		return call(ctx)
	}
	return n.executor.Execute(ctx, "nats.publish", call, func(error) bool { return true })
}
