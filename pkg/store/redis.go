package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var redisTracer = otel.Tracer("slotkeeper/store/redis")

const streamField = "data"

// RedisStore keeps values as plain strings and logs as Redis streams,
// which give append-only FIFO ordering with server-assigned ids.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Persist(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	ctx, span := startSpan(ctx, "store.persist", key)
	defer span.End()

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return spanError(span, fmt.Errorf("failed to persist %s: %w", key, err))
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, "store.load", key)
	defer span.End()

	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, spanError(span, fmt.Errorf("failed to load %s: %w", key, err))
	}
	return value, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	ctx, span := startSpan(ctx, "store.remove", key)
	defer span.End()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return spanError(span, fmt.Errorf("failed to remove %s: %w", key, err))
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, stream string, data []byte) (string, error) {
	if stream == "" {
		return "", ErrEmptyKey
	}
	ctx, span := startSpan(ctx, "store.append", stream)
	defer span.End()

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{streamField: data},
	}).Result()
	if err != nil {
		return "", spanError(span, fmt.Errorf("failed to append to %s: %w", stream, err))
	}
	return id, nil
}

func (s *RedisStore) List(ctx context.Context, stream string) ([]Entry, error) {
	ctx, span := startSpan(ctx, "store.list", stream)
	defer span.End()

	msgs, err := s.client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to list %s: %w", stream, err))
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[streamField].(string)
		if !ok {
			return nil, spanError(span, fmt.Errorf("%w: %s has no %q field", ErrInvalidID, msg.ID, streamField))
		}
		entries = append(entries, Entry{ID: msg.ID, Data: []byte(raw)})
	}
	span.SetAttributes(attribute.Int("store.entries", len(entries)))
	return entries, nil
}

func (s *RedisStore) Delete(ctx context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := startSpan(ctx, "store.delete", stream)
	defer span.End()

	if err := s.client.XDel(ctx, stream, ids...).Err(); err != nil {
		return spanError(span, fmt.Errorf("failed to delete from %s: %w", stream, err))
	}
	return nil
}

func (s *RedisStore) Truncate(ctx context.Context, stream string) error {
	return s.Remove(ctx, stream)
}

func (s *RedisStore) Len(ctx context.Context, stream string) (int, error) {
	n, err := s.client.XLen(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", stream, err)
	}
	return int(n), nil
}

func startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, name)
	span.SetAttributes(attribute.String("store.key", key))
	return ctx, span
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
