package offline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/store"
)

type mockExecutor struct {
	mu          sync.Mutex
	executed    []string
	executeFunc func(ctx context.Context, op model.OfflineOperation) error
}

func (m *mockExecutor) Execute(ctx context.Context, op model.OfflineOperation) error {
	m.mu.Lock()
	m.executed = append(m.executed, op.ID)
	m.mu.Unlock()
	if m.executeFunc == nil {
		return nil
	}
	return m.executeFunc(ctx, op)
}

func (m *mockExecutor) order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

func logs(t *testing.T) map[string]store.Log {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]store.Log{
		"memory": store.NewMemoryStore(),
		"redis":  store.NewRedisStore(client),
	}
}

func newQueue(log store.Log, exec Executor) *Queue {
	return NewQueue(log, store.Key("test", "offline", "b1"), exec, time.Hour, nil, logger.Discard())
}

func enqueueItems(t *testing.T, q *Queue, ids ...string) {
	t.Helper()
	for _, id := range ids {
		op, err := NewOperation(model.OpAddItem, model.ItemRequest{
			ShiftID: "shift-1",
			Item:    model.WalkInItem{ID: "item-" + id, ServiceID: "svc-cut", Price: 500},
		})
		require.NoError(t, err)
		op.ID = id
		_, err = q.Enqueue(context.Background(), op)
		require.NoError(t, err)
	}
}

func pendingIDs(t *testing.T, q *Queue) []string {
	t.Helper()
	ops, err := q.Pending(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	return ids
}

func TestFlush_ReplaysInOrderAndEmptiesQueue(t *testing.T) {
	for name, log := range logs(t) {
		t.Run(name, func(t *testing.T) {
			exec := &mockExecutor{}
			q := newQueue(log, exec)
			enqueueItems(t, q, "op1", "op2", "op3")

			result, err := q.Flush(context.Background())
			require.NoError(t, err)
			require.Equal(t, FlushResult{Processed: 3}, result)
			require.Equal(t, []string{"op1", "op2", "op3"}, exec.order())

			n, err := q.Len(context.Background())
			require.NoError(t, err)
			require.Zero(t, n)
		})
	}
}

func TestFlush_FailedOperationStaysQueued(t *testing.T) {
	for name, log := range logs(t) {
		t.Run(name, func(t *testing.T) {
			exec := &mockExecutor{
				executeFunc: func(_ context.Context, op model.OfflineOperation) error {
					if op.ID == "op3" {
						return apperrors.Network("request failed", errors.New("connection refused"))
					}
					return nil
				},
			}
			q := newQueue(log, exec)
			enqueueItems(t, q, "op1", "op2", "op3", "op4", "op5")

			result, err := q.Flush(context.Background())
			require.NoError(t, err)
			require.Equal(t, 4, result.Processed)
			require.Equal(t, 1, result.Failed)
			require.Equal(t, 1, result.Remaining)
			require.Equal(t, []string{"op1", "op2", "op3", "op4", "op5"}, exec.order())
			require.Equal(t, []string{"op3"}, pendingIDs(t, q))

			exec.executeFunc = nil
			result, err = q.Flush(context.Background())
			require.NoError(t, err)
			require.Equal(t, FlushResult{Processed: 1}, result)
			require.Empty(t, pendingIDs(t, q))
		})
	}
}

func TestFlush_ConcurrentFlushSkipped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	exec := &mockExecutor{
		executeFunc: func(context.Context, model.OfflineOperation) error {
			once.Do(func() { close(entered) })
			<-release
			return nil
		},
	}
	q := newQueue(store.NewMemoryStore(), exec)
	enqueueItems(t, q, "op1", "op2")

	done := make(chan FlushResult, 1)
	go func() {
		result, _ := q.Flush(context.Background())
		done <- result
	}()
	<-entered

	second, err := q.Flush(context.Background())
	require.NoError(t, err)
	require.True(t, second.Skipped)

	close(release)
	first := <-done
	require.False(t, first.Skipped)
	require.Equal(t, 2, first.Processed)
	require.Len(t, exec.order(), 2)
}

func TestFlush_EnqueueDuringFlushIsKept(t *testing.T) {
	q := newQueue(store.NewMemoryStore(), nil)
	var once sync.Once
	q.executor = &mockExecutor{
		executeFunc: func(context.Context, model.OfflineOperation) error {
			once.Do(func() { enqueueItems(t, q, "late") })
			return nil
		},
	}
	enqueueItems(t, q, "op1", "op2")

	result, err := q.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, []string{"late"}, pendingIDs(t, q))
}

func TestFlush_DropsUnreadableEntries(t *testing.T) {
	log := store.NewMemoryStore()
	exec := &mockExecutor{}
	q := newQueue(log, exec)

	_, err := log.Append(context.Background(), q.stream, []byte("{not json"))
	require.NoError(t, err)
	enqueueItems(t, q, "op1")

	result, err := q.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Dropped)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, []string{"op1"}, exec.order())
}

func TestFlush_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &mockExecutor{
		executeFunc: func(context.Context, model.OfflineOperation) error {
			cancel()
			return nil
		},
	}
	q := newQueue(store.NewMemoryStore(), exec)
	enqueueItems(t, q, "op1", "op2", "op3")

	result, err := q.Flush(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 2, result.Remaining)
	require.Equal(t, []string{"op2", "op3"}, pendingIDs(t, q))
}

func TestEnqueue(t *testing.T) {
	q := newQueue(store.NewMemoryStore(), &mockExecutor{})
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	op, err := NewOperation(model.OpOpenShift, model.OpenShiftRequest{ShiftID: "sh1", StaffID: "s1", BranchID: "br"})
	require.NoError(t, err)

	op, err = q.Enqueue(context.Background(), op)
	require.NoError(t, err)
	require.NotEmpty(t, op.ID)
	require.Equal(t, fixed, op.EnqueuedAt)

	pending, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, model.OpOpenShift, pending[0].Kind)
	require.JSONEq(t, `{"shift_id":"sh1","staff_id":"s1","branch_id":"br","opened_at":"0001-01-01T00:00:00Z"}`, string(pending[0].Payload))

	_, err = q.Enqueue(context.Background(), model.OfflineOperation{Kind: "bogus"})
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = NewOperation("bogus", nil)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestClear(t *testing.T) {
	q := newQueue(store.NewMemoryStore(), &mockExecutor{})
	enqueueItems(t, q, "op1", "op2")

	require.NoError(t, q.Clear(context.Background()))

	n, err := q.Len(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
