// Package offline keeps shift mutations that could not reach the server and
// replays them, oldest first, once connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/metrics"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/store"
)

var ErrUnknownKind = errors.New("unknown operation kind")

// Executor performs one queued operation against the server.
type Executor interface {
	Execute(ctx context.Context, op model.OfflineOperation) error
}

type FlushResult struct {
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Dropped   int  `json:"dropped"`
	Remaining int  `json:"remaining"`
	Skipped   bool `json:"skipped"`
}

// Queue is an append-only operation log over store.Log.
//
// Flush removes each operation right after its own successful replay, so an
// Enqueue landing during a flush is never lost. Enqueue and Clear are
// serialized; a Flush already running makes a second one return Skipped.
type Queue struct {
	log      store.Log
	stream   string
	executor Executor
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.EngineMetrics
	logger   *logger.Logger

	mu       sync.Mutex
	flushing atomic.Bool
}

func NewQueue(log store.Log, stream string, executor Executor, interval time.Duration, m *metrics.EngineMetrics, lg *logger.Logger) *Queue {
	return &Queue{
		log:      log,
		stream:   stream,
		executor: executor,
		interval: interval,
		now:      time.Now,
		metrics:  m,
		logger:   lg,
	}
}

// NewOperation builds an operation of kind carrying payload as JSON.
func NewOperation(kind model.OperationKind, payload any) (model.OfflineOperation, error) {
	if !kind.Valid() {
		return model.OfflineOperation{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return model.OfflineOperation{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return model.OfflineOperation{Kind: kind, Payload: data}, nil
}

func (q *Queue) Enqueue(ctx context.Context, op model.OfflineOperation) (model.OfflineOperation, error) {
	if !op.Kind.Valid() {
		return op, fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = q.now().UTC()
	}
	data, err := json.Marshal(op)
	if err != nil {
		return op, fmt.Errorf("failed to marshal operation: %w", err)
	}

	q.mu.Lock()
	_, err = q.log.Append(ctx, q.stream, data)
	q.mu.Unlock()
	if err != nil {
		return op, fmt.Errorf("failed to enqueue %s: %w", op.Kind, err)
	}

	q.logger.Info("Operation queued for replay",
		"operation_id", op.ID,
		"kind", op.Kind,
	)
	q.refreshDepth(ctx)
	return op, nil
}

// Flush replays queued operations in FIFO order. A failed operation stays
// queued and does not stop the ones after it.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	if !q.flushing.CompareAndSwap(false, true) {
		q.logger.Debug("Flush already running, skipped")
		return FlushResult{Skipped: true}, nil
	}
	defer q.flushing.Store(false)

	entries, err := q.log.List(ctx, q.stream)
	if err != nil {
		return FlushResult{}, fmt.Errorf("failed to read offline queue: %w", err)
	}

	var result FlushResult
	for i, entry := range entries {
		if ctx.Err() != nil {
			result.Remaining = len(entries) - result.Processed - result.Dropped
			return result, ctx.Err()
		}

		var op model.OfflineOperation
		if err := json.Unmarshal(entry.Data, &op); err != nil || !op.Kind.Valid() {
			q.logger.Error("Dropping unreadable queued operation",
				"entry_id", entry.ID,
				"error", err,
			)
			if err := q.log.Delete(ctx, q.stream, entry.ID); err != nil {
				q.logger.Error("Failed to drop queued operation", "entry_id", entry.ID, "error", err)
			}
			result.Dropped++
			continue
		}
		op.Seq = int64(i + 1)

		if err := q.executor.Execute(ctx, op); err != nil {
			result.Failed++
			q.metrics.ObserveReplay(string(op.Kind), "failed")
			q.logFailure(op, err)
			continue
		}

		if err := q.log.Delete(ctx, q.stream, entry.ID); err != nil {
			// Still queued, so the next flush sends it again.
			q.logger.Error("Failed to remove replayed operation",
				"operation_id", op.ID,
				"entry_id", entry.ID,
				"error", err,
			)
		}
		result.Processed++
		q.metrics.ObserveReplay(string(op.Kind), "replayed")
	}

	result.Remaining = q.refreshDepth(ctx)
	if result.Processed > 0 || result.Failed > 0 {
		q.logger.Info("Offline queue flushed",
			"processed", result.Processed,
			"failed", result.Failed,
			"dropped", result.Dropped,
			"remaining", result.Remaining,
		)
	}
	return result, nil
}

func (q *Queue) logFailure(op model.OfflineOperation, err error) {
	c := apperrors.Classify(err)
	args := []any{
		"operation_id", op.ID,
		"kind", op.Kind,
		"enqueued_at", op.EnqueuedAt,
		"category", c.Category,
		"error", err,
	}
	if c.Retryable {
		q.logger.Warn("Replay failed, will retry on next flush", args...)
		return
	}
	q.logger.Error("Replay rejected by server, operation kept for review", args...)
}

// Clear drops every queued operation.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.log.Truncate(ctx, q.stream); err != nil {
		return fmt.Errorf("failed to clear offline queue: %w", err)
	}
	q.metrics.SetQueueDepth(0)
	q.logger.Warn("Offline queue cleared")
	return nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.log.Len(ctx, q.stream)
}

// Pending lists queued operations oldest first.
func (q *Queue) Pending(ctx context.Context) ([]model.OfflineOperation, error) {
	entries, err := q.log.List(ctx, q.stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read offline queue: %w", err)
	}
	ops := make([]model.OfflineOperation, 0, len(entries))
	for i, entry := range entries {
		var op model.OfflineOperation
		if err := json.Unmarshal(entry.Data, &op); err != nil {
			continue
		}
		op.Seq = int64(i + 1)
		ops = append(ops, op)
	}
	return ops, nil
}

// Run flushes once immediately and then on every interval until ctx ends.
func (q *Queue) Run(ctx context.Context) {
	if q.interval <= 0 {
		return
	}
	q.flushOnce(ctx)

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.flushOnce(ctx)
		}
	}
}

func (q *Queue) flushOnce(ctx context.Context) {
	if _, err := q.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		q.logger.Error("Offline queue flush failed", "error", err)
	}
}

func (q *Queue) refreshDepth(ctx context.Context) int {
	n, err := q.log.Len(ctx, q.stream)
	if err != nil {
		q.logger.Warn("Failed to read offline queue depth", "error", err)
		return 0
	}
	q.metrics.SetQueueDepth(n)
	return n
}
