package model

import "time"

type ReservationStatus string

const (
	StatusHold      ReservationStatus = "hold"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusNoShow    ReservationStatus = "no_show"
)

type Reservation struct {
	ID         string            `json:"id"`
	BusinessID string            `json:"business_id"`
	BranchID   string            `json:"branch_id"`
	ServiceID  string            `json:"service_id"`
	StaffID    string            `json:"staff_id"`
	StartAt    time.Time         `json:"start_at"`
	Status     ReservationStatus `json:"status"`
}

// ReservationIntent is the ephemeral request to reserve a slot. It is never persisted.
type ReservationIntent struct {
	BusinessID string        `json:"business_id" validate:"required"`
	ServiceID  string        `json:"service_id" validate:"required"`
	StaffID    string        `json:"staff_id" validate:"required,ne=any"`
	BranchID   string        `json:"branch_id" validate:"required"`
	StartAt    time.Time     `json:"start_at" validate:"required"`
	UserID     string        `json:"user_id,omitempty"`
	Guest      *GuestContact `json:"guest,omitempty" validate:"omitempty"`
}

func (i ReservationIntent) IsGuest() bool {
	return i.UserID == ""
}

type GuestContact struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"required,guest_phone"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// ExistingReservation is an occupancy row from the ledger.
type ExistingReservation struct {
	StartAt time.Time         `json:"start_at"`
	EndAt   time.Time         `json:"end_at"`
	Status  ReservationStatus `json:"status"`
}

// Blocks reports whether the reservation still occupies its interval.
func (e ExistingReservation) Blocks() bool {
	return e.Status != StatusCancelled
}
