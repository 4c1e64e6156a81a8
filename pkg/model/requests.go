package model

import "time"

type AvailabilityRequest struct {
	BusinessID string   `json:"business_id"`
	BranchID   string   `json:"branch_id"`
	ServiceID  string   `json:"service_id"`
	Date       string   `json:"date"`
	StaffIDs   []string `json:"staff_ids"`
}

type HoldRequest struct {
	BusinessID string    `json:"business_id"`
	BranchID   string    `json:"branch_id"`
	ServiceID  string    `json:"service_id"`
	StaffID    string    `json:"staff_id"`
	StartAt    time.Time `json:"start_at"`
	UserID     string    `json:"user_id"`
}

type GuestReservationRequest struct {
	BusinessID string       `json:"business_id"`
	BranchID   string       `json:"branch_id"`
	ServiceID  string       `json:"service_id"`
	StaffID    string       `json:"staff_id"`
	StartAt    time.Time    `json:"start_at"`
	Guest      GuestContact `json:"guest"`
}

type OverridesRequest struct {
	BusinessID string   `json:"business_id"`
	StaffIDs   []string `json:"staff_ids"`
	From       string   `json:"from"`
	To         string   `json:"to"`
}
