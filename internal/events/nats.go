package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds the bus connection settings
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Connect opens a NATS connection that logs disconnects and reconnects
func Connect(cfg NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("overlay-widgets"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// MessagePublisher is the part of *nats.Conn the publisher needs
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events as JSON on
// <prefix>.<timer id>.<event type>
type NATSPublisher struct {
	conn   MessagePublisher
	prefix string
}

// NewNATSPublisher creates a publisher on conn under subject prefix
func NewNATSPublisher(conn MessagePublisher, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject event is published on
func (p *NATSPublisher) Subject(event Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, event.TimerID, event.Type)
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// NATSSubscriber delivers bus events to a handler. It lets every instance
// of the server push events produced by any other instance.
type NATSSubscriber struct {
	conn    *nats.Conn
	prefix  string
	handler func(Event)
	sub     *nats.Subscription
}

// NewNATSSubscriber creates a subscriber for all timer events under prefix
func NewNATSSubscriber(conn *nats.Conn, prefix string, handler func(Event)) *NATSSubscriber {
	return &NATSSubscriber{conn: conn, prefix: strings.TrimSuffix(prefix, "."), handler: handler}
}

// Start subscribes and delivers until ctx is cancelled
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub, err := s.conn.Subscribe(s.prefix+".>", s.HandleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", s.prefix, err)
	}
	s.sub = sub
	log.Info().Str("subject", s.prefix+".>").Msg("subscribed to timer events")

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("unsubscribe timer events")
		}
	}()
	return nil
}

// HandleMsg decodes one bus message and passes it to the handler.
// Malformed messages are logged and dropped.
func (s *NATSSubscriber) HandleMsg(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed timer event")
		return
	}
	s.handler(event)
}
