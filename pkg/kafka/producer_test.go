package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"slotkeeper/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("res-1").
		WithValue(map[string]string{"kind": "reservation_confirmed"}).
		WithEventType("reservation_confirmed").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return msg
}

func TestProducer_Publish(t *testing.T) {
	main := &fakeWriter{}
	p := newProducer(main, nil, "notifications", "", logger.Discard())

	if err := p.Publish(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(main.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(main.messages))
	}
	if string(main.messages[0].Key) != "res-1" {
		t.Errorf("key = %q, want res-1", main.messages[0].Key)
	}
	if header(main.messages[0], HeaderEventID) == "" {
		t.Errorf("expected generated event id header")
	}
}

func TestProducer_PublishValidation(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "notifications", "", logger.Discard())

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), buildMessage(t)); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_FailedPublishGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	main := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(main, dlq, "notifications", "notifications-dlq", logger.Discard())

	err := p.Publish(context.Background(), buildMessage(t))
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dlq.messages))
	}
	if got := header(dlq.messages[0], HeaderOriginalTopic); got != "notifications" {
		t.Errorf("original topic header = %q", got)
	}
	if got := header(dlq.messages[0], HeaderDLQError); got != writeErr.Error() {
		t.Errorf("dlq error header = %q", got)
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "notifications", "", logger.Discard())

	var calls []string
	mw := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			calls = append(calls, name)
			return next(ctx, msg)
		}
	}
	p.Use(mw("first"))
	p.Use(mw("second"))

	if err := p.Publish(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("middleware order = %v", calls)
	}
}

func TestMessageBuilder_EncodeFailure(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Fatal("expected encoding error")
	}
}
