package model

// Selection is the in-progress choice of a booking wizard.
// Clearing rules live in internal/selection.
type Selection struct {
	BranchID  string            `json:"branch_id"`
	Day       string            `json:"day"`
	StaffID   string            `json:"staff_id"`
	ServiceID string            `json:"service_id"`
	Slot      *AvailabilitySlot `json:"slot,omitempty"`
}
