// Package shifts runs shift and walk-in mutations against the server and
// falls back to the offline queue when the server cannot be reached.
package shifts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotkeeper/internal/offline"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/store"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, op model.OfflineOperation) (model.OfflineOperation, error)
}

// Outcome reports what happened to a mutation. Queued means the server was
// unreachable and the operation waits in the offline queue.
type Outcome struct {
	Shift       *model.Shift `json:"shift,omitempty"`
	Queued      bool         `json:"queued"`
	OperationID string       `json:"operation_id,omitempty"`
}

type Service struct {
	remote    Remote
	queue     Enqueuer
	snapshots store.KV
	prefix    string
	now       func() time.Time
	logger    *logger.Logger
}

func NewService(remote Remote, queue Enqueuer, snapshots store.KV, prefix string, log *logger.Logger) *Service {
	return &Service{
		remote:    remote,
		queue:     queue,
		snapshots: snapshots,
		prefix:    prefix,
		now:       time.Now,
		logger:    log,
	}
}

func (s *Service) OpenShift(ctx context.Context, req model.OpenShiftRequest) (Outcome, error) {
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.BranchID = strings.TrimSpace(req.BranchID)
	details := map[string]any{}
	if req.StaffID == "" {
		details["staff_id"] = "is required"
	}
	if req.BranchID == "" {
		details["branch_id"] = "is required"
	}
	if len(details) > 0 {
		return Outcome{}, apperrors.Validation("Invalid shift", details)
	}
	if req.ShiftID == "" {
		req.ShiftID = uuid.NewString()
	}
	if req.OpenedAt.IsZero() {
		req.OpenedAt = s.now().UTC()
	}

	shift, err := s.remote.OpenShift(ctx, req)
	if err != nil {
		return s.fallback(ctx, model.OpOpenShift, req, err)
	}
	s.saveSnapshot(ctx, req.StaffID, shift)
	return Outcome{Shift: shift}, nil
}

func (s *Service) CloseShift(ctx context.Context, req model.CloseShiftRequest) (Outcome, error) {
	if strings.TrimSpace(req.ShiftID) == "" {
		return Outcome{}, apperrors.Validation("Invalid shift", map[string]any{"shift_id": "is required"})
	}
	if req.ClosedAt.IsZero() {
		req.ClosedAt = s.now().UTC()
	}

	shift, err := s.remote.CloseShift(ctx, req)
	if err != nil {
		return s.fallback(ctx, model.OpCloseShift, req, err)
	}
	if shift != nil {
		s.saveSnapshot(ctx, shift.StaffID, shift)
	}
	return Outcome{Shift: shift}, nil
}

func (s *Service) AddItem(ctx context.Context, req model.ItemRequest) (Outcome, error) {
	if err := validateItem(req, false); err != nil {
		return Outcome{}, err
	}
	if req.Item.ID == "" {
		req.Item.ID = uuid.NewString()
	}
	if req.Item.RecordedAt.IsZero() {
		req.Item.RecordedAt = s.now().UTC()
	}
	return s.mutate(ctx, model.OpAddItem, req, func() error { return s.remote.AddItem(ctx, req) })
}

func (s *Service) UpdateItem(ctx context.Context, req model.ItemRequest) (Outcome, error) {
	if err := validateItem(req, true); err != nil {
		return Outcome{}, err
	}
	return s.mutate(ctx, model.OpUpdateItem, req, func() error { return s.remote.UpdateItem(ctx, req) })
}

func (s *Service) DeleteItem(ctx context.Context, req model.DeleteItemRequest) (Outcome, error) {
	if req.ShiftID == "" || req.ItemID == "" {
		return Outcome{}, apperrors.Validation("Invalid item", map[string]any{"shift_id": req.ShiftID, "item_id": req.ItemID})
	}
	return s.mutate(ctx, model.OpDeleteItem, req, func() error { return s.remote.DeleteItem(ctx, req) })
}

// CurrentShift reads the open shift of staffID. When the server is
// unreachable it returns the last snapshot read successfully, with
// stale set. A snapshot never expires; only the next successful read
// replaces it.
func (s *Service) CurrentShift(ctx context.Context, staffID string) (shift *model.Shift, stale bool, err error) {
	shift, err = s.remote.CurrentShift(ctx, staffID)
	if err == nil {
		s.saveSnapshot(ctx, staffID, shift)
		return shift, false, nil
	}
	if !apperrors.IsNetwork(err) {
		return nil, false, err
	}

	cached, loadErr := s.loadSnapshot(ctx, staffID)
	if loadErr != nil {
		if !errors.Is(loadErr, store.ErrNotFound) {
			s.logger.Warn("Failed to load shift snapshot", "staff_id", staffID, "error", loadErr)
		}
		return nil, false, err
	}
	s.logger.Info("Serving cached shift snapshot", "staff_id", staffID, "error", err)
	return cached, true, nil
}

func (s *Service) mutate(ctx context.Context, kind model.OperationKind, payload any, call func() error) (Outcome, error) {
	if err := call(); err != nil {
		return s.fallback(ctx, kind, payload, err)
	}
	return Outcome{}, nil
}

// fallback queues the operation when err is network-class and returns err
// unchanged otherwise.
func (s *Service) fallback(ctx context.Context, kind model.OperationKind, payload any, err error) (Outcome, error) {
	if !apperrors.IsNetwork(err) {
		return Outcome{}, err
	}

	op, buildErr := offline.NewOperation(kind, payload)
	if buildErr != nil {
		return Outcome{}, apperrors.Internal("Failed to queue operation", buildErr)
	}
	op, qErr := s.queue.Enqueue(ctx, op)
	if qErr != nil {
		s.logger.Error("Failed to queue operation after network failure",
			"kind", kind,
			"network_error", err,
			"error", qErr,
		)
		return Outcome{}, apperrors.Internal("Failed to queue operation", fmt.Errorf("%w; %w", err, qErr))
	}

	s.logger.Warn("Server unreachable, operation queued",
		"kind", kind,
		"operation_id", op.ID,
		"error", err,
	)
	return Outcome{Queued: true, OperationID: op.ID}, nil
}

func (s *Service) snapshotKey(staffID string) string {
	return store.Key(s.prefix, "shift", staffID)
}

func (s *Service) saveSnapshot(ctx context.Context, staffID string, shift *model.Shift) {
	if s.snapshots == nil || staffID == "" {
		return
	}
	data, err := json.Marshal(shift)
	if err != nil {
		s.logger.Warn("Failed to encode shift snapshot", "staff_id", staffID, "error", err)
		return
	}
	if err := s.snapshots.Persist(ctx, s.snapshotKey(staffID), data); err != nil {
		s.logger.Warn("Failed to persist shift snapshot", "staff_id", staffID, "error", err)
	}
}

func (s *Service) loadSnapshot(ctx context.Context, staffID string) (*model.Shift, error) {
	if s.snapshots == nil {
		return nil, store.ErrNotFound
	}
	data, err := s.snapshots.Load(ctx, s.snapshotKey(staffID))
	if err != nil {
		return nil, err
	}
	var shift *model.Shift
	if err := json.Unmarshal(data, &shift); err != nil {
		return nil, fmt.Errorf("failed to decode shift snapshot: %w", err)
	}
	return shift, nil
}

func validateItem(req model.ItemRequest, needID bool) error {
	details := map[string]any{}
	if strings.TrimSpace(req.ShiftID) == "" {
		details["shift_id"] = "is required"
	}
	if needID && req.Item.ID == "" {
		details["item.id"] = "is required"
	}
	if req.Item.ServiceID == "" {
		details["item.service_id"] = "is required"
	}
	if req.Item.Price < 0 {
		details["item.price"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.Validation("Invalid item", details)
	}
	return nil
}
