package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/segmentio/kafka-go"
)

// DefaultMailTopic is where mail requests are published.
const DefaultMailTopic = "auth.mail.requested"

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures [NewKafka].
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// Kafka publishes each message as a JSON mail request for a downstream
// mailer. Templates are rendered by the consumer.
type Kafka struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

var _ sessionauth.Notifier = (*Kafka)(nil)

type mailRequest struct {
	To          string         `json:"to"`
	Subject     string         `json:"subject"`
	Template    string         `json:"template"`
	Data        map[string]any `json:"data,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) *Kafka {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaWithWriter(w, cfg.Topic, logger)
}

// NewKafkaWithWriter publishes through w. An empty topic means
// [DefaultMailTopic].
func NewKafkaWithWriter(w MessageWriter, topic string, logger *slog.Logger) *Kafka {
	if topic == "" {
		topic = DefaultMailTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{writer: w, topic: topic, logger: logger, now: time.Now}
}

func (k *Kafka) Send(ctx context.Context, msg sessionauth.Message) error {
	data, err := json.Marshal(mailRequest{
		To:          msg.To,
		Subject:     msg.Subject,
		Template:    msg.Template,
		Data:        msg.Data,
		RequestedAt: k.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	// Keyed by recipient so one address's mail stays ordered.
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(msg.To),
		Value: data,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(msg.Template)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish mail request to %s: %w", k.topic, err)
	}

	k.logger.DebugContext(ctx, "mail request published",
		slog.String("topic", k.topic),
		slog.String("template", msg.Template),
	)
	return nil
}

// Close flushes pending messages.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
