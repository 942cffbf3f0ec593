package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/room-reservation/internal/application"
)

// ErrNoBrokers is returned when a Kafka notifier is configured without brokers.
var ErrNoBrokers = errors.New("notify: at least one kafka broker is required")

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka notifier.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	MaxAttempts  int
}

// KafkaNotifier publishes each notice as a JSON message keyed by member id,
// so that one member's notices stay ordered within a partition.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
}

type voidedMessage struct {
	MemberID string   `json:"member_id"`
	Message  string   `json:"message"`
	Slots    []string `json:"slots"`
	At       string   `json:"at"`
}

// NewKafkaNotifier builds a notifier over a kafka-go Writer.
func NewKafkaNotifier(cfg KafkaConfig, logger *slog.Logger) (*KafkaNotifier, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, fmt.Errorf("notify: kafka topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	errorLogger := logger.With("component", "kafka")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			errorLogger.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return NewKafkaNotifierWithWriter(writer, topic), nil
}

// NewKafkaNotifierWithWriter wraps an existing writer.
func NewKafkaNotifierWithWriter(writer MessageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic}
}

// NotifyVoided publishes the notice.
func (k *KafkaNotifier) NotifyVoided(ctx context.Context, notice application.VoidedNotice) error {
	if k == nil || k.writer == nil {
		return fmt.Errorf("notify: kafka writer not configured")
	}
	if strings.TrimSpace(notice.MemberID) == "" {
		return fmt.Errorf("notify: member id is required")
	}

	payload, err := json.Marshal(voidedMessage{
		MemberID: notice.MemberID,
		Message:  notice.Message,
		Slots:    notice.Slots,
		At:       notice.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("notify: encode notice: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notice.MemberID),
		Value: payload,
		Time:  notice.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("reservation.voided")},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", k.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaNotifier) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
