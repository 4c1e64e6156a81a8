package shifts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"slotkeeper/internal/offline"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/store"
)

type mockRemote struct {
	mu             sync.Mutex
	calls          []string
	err            error
	openFunc       func(ctx context.Context, req model.OpenShiftRequest) (*model.Shift, error)
	currentFunc    func(ctx context.Context, staffID string) (*model.Shift, error)
	addedItems     []model.ItemRequest
	deletedItems   []model.DeleteItemRequest
	closedRequests []model.CloseShiftRequest
}

func (m *mockRemote) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockRemote) OpenShift(ctx context.Context, req model.OpenShiftRequest) (*model.Shift, error) {
	if err := m.record("open"); err != nil {
		return nil, err
	}
	if m.openFunc != nil {
		return m.openFunc(ctx, req)
	}
	return &model.Shift{ID: req.ShiftID, StaffID: req.StaffID, BranchID: req.BranchID, OpenedAt: req.OpenedAt}, nil
}

func (m *mockRemote) CloseShift(_ context.Context, req model.CloseShiftRequest) (*model.Shift, error) {
	if err := m.record("close"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.closedRequests = append(m.closedRequests, req)
	m.mu.Unlock()
	closedAt := req.ClosedAt
	return &model.Shift{ID: req.ShiftID, StaffID: "s1", ClosedAt: &closedAt}, nil
}

func (m *mockRemote) AddItem(_ context.Context, req model.ItemRequest) error {
	if err := m.record("add"); err != nil {
		return err
	}
	m.mu.Lock()
	m.addedItems = append(m.addedItems, req)
	m.mu.Unlock()
	return nil
}

func (m *mockRemote) UpdateItem(context.Context, model.ItemRequest) error {
	return m.record("update")
}

func (m *mockRemote) DeleteItem(_ context.Context, req model.DeleteItemRequest) error {
	if err := m.record("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	m.deletedItems = append(m.deletedItems, req)
	m.mu.Unlock()
	return nil
}

func (m *mockRemote) CurrentShift(ctx context.Context, staffID string) (*model.Shift, error) {
	if err := m.record("current"); err != nil {
		return nil, err
	}
	if m.currentFunc != nil {
		return m.currentFunc(ctx, staffID)
	}
	return nil, nil
}

func (m *mockRemote) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

var errOffline = apperrors.Network("request failed", errors.New("dial tcp: connection refused"))

type fixture struct {
	remote  *mockRemote
	store   *store.MemoryStore
	queue   *offline.Queue
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{remote: &mockRemote{}, store: store.NewMemoryStore()}
	log := logger.Discard()
	f.queue = offline.NewQueue(f.store, store.Key("test", "offline"), NewExecutor(f.remote), time.Hour, nil, log)
	f.service = NewService(f.remote, f.queue, f.store, "test", log)
	f.service.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestOpenShift_Direct(t *testing.T) {
	f := newFixture(t)

	out, err := f.service.OpenShift(context.Background(), model.OpenShiftRequest{StaffID: "s1", BranchID: "br"})
	require.NoError(t, err)
	require.False(t, out.Queued)
	require.NotNil(t, out.Shift)
	require.NotEmpty(t, out.Shift.ID)
	require.True(t, out.Shift.IsOpen())

	n, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMutations_QueueOnNetworkFailureAndReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.setErr(errOffline)

	open, err := f.service.OpenShift(ctx, model.OpenShiftRequest{StaffID: "s1", BranchID: "br"})
	require.NoError(t, err)
	require.True(t, open.Queued)
	require.NotEmpty(t, open.OperationID)

	pending, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	add, err := f.service.AddItem(ctx, model.ItemRequest{ShiftID: "sh1", Item: model.WalkInItem{ServiceID: "svc-cut", Price: 700}})
	require.NoError(t, err)
	require.True(t, add.Queued)

	_, err = f.service.DeleteItem(ctx, model.DeleteItemRequest{ShiftID: "sh1", ItemID: "i9"})
	require.NoError(t, err)
	_, err = f.service.CloseShift(ctx, model.CloseShiftRequest{ShiftID: "sh1"})
	require.NoError(t, err)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	f.remote.setErr(nil)
	f.remote.calls = nil

	result, err := f.queue.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, result.Processed)
	require.Equal(t, []string{"open", "add", "delete", "close"}, f.remote.calls)

	require.Len(t, f.remote.addedItems, 1)
	item := f.remote.addedItems[0].Item
	require.NotEmpty(t, item.ID, "item id is generated before queueing")
	require.Equal(t, int64(700), item.Price)
	require.Equal(t, "i9", f.remote.deletedItems[0].ItemID)
	require.False(t, f.remote.closedRequests[0].ClosedAt.IsZero())
}

func TestMutations_DomainErrorNotQueued(t *testing.T) {
	f := newFixture(t)
	f.remote.setErr(apperrors.Conflict("shift already closed"))

	_, err := f.service.CloseShift(context.Background(), model.CloseShiftRequest{ShiftID: "sh1"})
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	n, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMutations_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.OpenShift(ctx, model.OpenShiftRequest{StaffID: "s1"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.service.AddItem(ctx, model.ItemRequest{ShiftID: "sh1", Item: model.WalkInItem{ServiceID: "svc", Price: -1}})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.service.UpdateItem(ctx, model.ItemRequest{ShiftID: "sh1", Item: model.WalkInItem{ServiceID: "svc"}})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.Empty(t, f.remote.calls)
}

func TestCurrentShift_FallsBackToSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := &model.Shift{ID: "sh1", StaffID: "s1", BranchID: "br", OpenedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
	f.remote.currentFunc = func(context.Context, string) (*model.Shift, error) { return open, nil }

	shift, stale, err := f.service.CurrentShift(ctx, "s1")
	require.NoError(t, err)
	require.False(t, stale)
	require.Equal(t, "sh1", shift.ID)

	f.remote.setErr(errOffline)

	shift, stale, err = f.service.CurrentShift(ctx, "s1")
	require.NoError(t, err)
	require.True(t, stale)
	require.Equal(t, open.ID, shift.ID)
	require.True(t, open.OpenedAt.Equal(shift.OpenedAt))

	_, _, err = f.service.CurrentShift(ctx, "s2")
	require.True(t, apperrors.IsNetwork(err), "no snapshot means the network error is returned")
}

func TestCurrentShift_NonNetworkErrorNotMasked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.currentFunc = func(context.Context, string) (*model.Shift, error) {
		return &model.Shift{ID: "sh1", StaffID: "s1"}, nil
	}
	_, _, err := f.service.CurrentShift(ctx, "s1")
	require.NoError(t, err)

	f.remote.setErr(apperrors.NotFound("staff"))
	_, stale, err := f.service.CurrentShift(ctx, "s1")
	require.Error(t, err)
	require.False(t, stale)
}
