package model

import (
	"encoding/json"
	"time"
)

type OperationKind string

const (
	OpOpenShift  OperationKind = "open_shift"
	OpCloseShift OperationKind = "close_shift"
	OpAddItem    OperationKind = "add_item"
	OpUpdateItem OperationKind = "update_item"
	OpDeleteItem OperationKind = "delete_item"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OpOpenShift, OpCloseShift, OpAddItem, OpUpdateItem, OpDeleteItem:
		return true
	}
	return false
}

// OfflineOperation is a shift mutation waiting for replay.
type OfflineOperation struct {
	ID         string          `json:"id" bson:"_id"`
	Seq        int64           `json:"seq" bson:"seq"`
	Kind       OperationKind   `json:"kind" bson:"kind"`
	Payload    json.RawMessage `json:"payload" bson:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at" bson:"enqueued_at"`
}

type Shift struct {
	ID       string       `json:"id"`
	StaffID  string       `json:"staff_id"`
	BranchID string       `json:"branch_id"`
	OpenedAt time.Time    `json:"opened_at"`
	ClosedAt *time.Time   `json:"closed_at,omitempty"`
	Items    []WalkInItem `json:"items"`
}

func (s *Shift) IsOpen() bool {
	return s != nil && s.ClosedAt == nil
}

type WalkInItem struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"service_id"`
	Price      int64     `json:"price"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// OpenShiftRequest carries a client-generated ShiftID so a replayed open is
// idempotent and queued item operations can reference the shift.
type OpenShiftRequest struct {
	ShiftID  string    `json:"shift_id"`
	StaffID  string    `json:"staff_id"`
	BranchID string    `json:"branch_id"`
	OpenedAt time.Time `json:"opened_at"`
}

type CloseShiftRequest struct {
	ShiftID  string    `json:"shift_id"`
	ClosedAt time.Time `json:"closed_at"`
}

type ItemRequest struct {
	ShiftID string     `json:"shift_id"`
	Item    WalkInItem `json:"item"`
}

type DeleteItemRequest struct {
	ShiftID string `json:"shift_id"`
	ItemID  string `json:"item_id"`
}
