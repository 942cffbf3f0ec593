package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/room-reservation/internal/application"
)

type writerStub struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

type notifierFunc func(ctx context.Context, notice application.VoidedNotice) error

func (f notifierFunc) NotifyVoided(ctx context.Context, notice application.VoidedNotice) error {
	return f(ctx, notice)
}

func sampleNotice() application.VoidedNotice {
	return application.VoidedNotice{
		MemberID: "s1",
		Message:  "授業が入ったため、以下の予約は取り消されました：\n2025-04-24 13:10の予約",
		Slots:    []string{"2025-04-24 13:10"},
		At:       time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifier(t *testing.T) {
	t.Parallel()

	t.Run("publishes notice keyed by member", func(t *testing.T) {
		t.Parallel()
		writer := &writerStub{}
		notifier := NewKafkaNotifierWithWriter(writer, "reservations.voided")

		if err := notifier.NotifyVoided(context.Background(), sampleNotice()); err != nil {
			t.Fatalf("expected publish to succeed, got %v", err)
		}
		if len(writer.messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(writer.messages))
		}
		msg := writer.messages[0]
		if string(msg.Key) != "s1" {
			t.Fatalf("expected key s1, got %q", msg.Key)
		}
		var decoded voidedMessage
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if decoded.At != "2025-04-10T00:00:00Z" || len(decoded.Slots) != 1 {
			t.Fatalf("unexpected payload %+v", decoded)
		}

		if err := notifier.Close(); err != nil || !writer.closed {
			t.Fatalf("expected writer to be closed")
		}
	})

	t.Run("wraps writer failures", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("leader not available")
		notifier := NewKafkaNotifierWithWriter(&writerStub{err: boom}, "t")

		if err := notifier.NotifyVoided(context.Background(), sampleNotice()); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped writer error, got %v", err)
		}
	})

	t.Run("requires brokers and topic", func(t *testing.T) {
		t.Parallel()
		if _, err := NewKafkaNotifier(KafkaConfig{Brokers: []string{" "}, Topic: "t"}, nil); !errors.Is(err, ErrNoBrokers) {
			t.Fatalf("expected ErrNoBrokers, got %v", err)
		}
		if _, err := NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
			t.Fatalf("expected missing topic error")
		}
	})
}

func TestLogNotifierAndMulti(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logNotifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	calls := 0
	failing := notifierFunc(func(context.Context, application.VoidedNotice) error {
		calls++
		return errors.New("down")
	})

	err := Multi{failing, nil, logNotifier}.NotifyVoided(context.Background(), sampleNotice())
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected failing notifier to be called once, got %d", calls)
	}
	if !strings.Contains(buf.String(), `"member_id":"s1"`) {
		t.Fatalf("expected log entry for s1, got %s", buf.String())
	}
}
