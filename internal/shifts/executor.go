package shifts

import (
	"context"
	"encoding/json"
	"fmt"

	"slotkeeper/pkg/model"
)

// Remote is the server side of shift management.
type Remote interface {
	OpenShift(ctx context.Context, req model.OpenShiftRequest) (*model.Shift, error)
	CloseShift(ctx context.Context, req model.CloseShiftRequest) (*model.Shift, error)
	AddItem(ctx context.Context, req model.ItemRequest) error
	UpdateItem(ctx context.Context, req model.ItemRequest) error
	DeleteItem(ctx context.Context, req model.DeleteItemRequest) error
	CurrentShift(ctx context.Context, staffID string) (*model.Shift, error)
}

// Executor replays queued operations straight against Remote. It never
// queues, so a failed replay stays where it was.
type Executor struct {
	remote Remote
}

func NewExecutor(remote Remote) *Executor {
	return &Executor{remote: remote}
}

func (e *Executor) Execute(ctx context.Context, op model.OfflineOperation) error {
	switch op.Kind {
	case model.OpOpenShift:
		var req model.OpenShiftRequest
		if err := decode(op, &req); err != nil {
			return err
		}
		_, err := e.remote.OpenShift(ctx, req)
		return err
	case model.OpCloseShift:
		var req model.CloseShiftRequest
		if err := decode(op, &req); err != nil {
			return err
		}
		_, err := e.remote.CloseShift(ctx, req)
		return err
	case model.OpAddItem:
		var req model.ItemRequest
		if err := decode(op, &req); err != nil {
			return err
		}
		return e.remote.AddItem(ctx, req)
	case model.OpUpdateItem:
		var req model.ItemRequest
		if err := decode(op, &req); err != nil {
			return err
		}
		return e.remote.UpdateItem(ctx, req)
	case model.OpDeleteItem:
		var req model.DeleteItemRequest
		if err := decode(op, &req); err != nil {
			return err
		}
		return e.remote.DeleteItem(ctx, req)
	default:
		return fmt.Errorf("unsupported operation kind %q", op.Kind)
	}
}

func decode(op model.OfflineOperation, v any) error {
	if err := json.Unmarshal(op.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", op.Kind, err)
	}
	return nil
}
