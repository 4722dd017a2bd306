package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventType classifies a bridge lifecycle event.
type EventType string

const (
	EventVaultInitialized EventType = "vault_initialized"
	EventTicketLocked     EventType = "ticket_locked"
	EventTicketBridged    EventType = "ticket_bridged"
	EventBridgeFailed     EventType = "bridge_failed"
)

// Event is published after each bridge lifecycle transition so the launch
// app's off-chain consumers can track locks and sends.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Mint        string    `json:"mint,omitempty"`
	TicketID    uint64    `json:"ticket_id,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	DstEid      uint32    `json:"dst_eid,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	MessageGUID string    `json:"message_guid,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Stamp assigns a fresh id and timestamp if the event has none yet.
func (e *Event) Stamp() *Event {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

// Publisher publishes bridge lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Config configures the NATS publisher.
type Config struct {
	Enabled    bool     `mapstructure:"enabled"`
	URLs       []string `mapstructure:"urls"`
	Subject    string   `mapstructure:"subject"`
	StreamName string   `mapstructure:"stream_name"`
}

// NATSPublisher implements Publisher on NATS JetStream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to NATS and ensures the event stream exists.
func NewNATSPublisher(cfg Config, logger zerolog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("zaunch-bridged"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}
	if len(cfg.URLs) > 1 {
		opts = append(opts, nats.DontRandomize())
	}

	conn, err := nats.Connect(cfg.URLs[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		logger:  logger.With().Str("component", "queue").Logger(),
	}

	if _, err := js.StreamInfo(cfg.StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.StreamName,
			Subjects:  []string{cfg.Subject},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	p.logger.Info().
		Str("url", cfg.URLs[0]).
		Str("stream", cfg.StreamName).
		Str("subject", cfg.Subject).
		Msg("NATS publisher initialized")

	return p, nil
}

// Publish publishes an event to the stream.
func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(p.subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Msg("Event published")
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NopPublisher discards events; used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
func (NopPublisher) Close() error                          { return nil }
