package model

import "time"

// AvailabilitySlot is a bookable half-open interval [StartAt, EndAt).
type AvailabilitySlot struct {
	StaffID           string    `json:"staff_id"`
	EffectiveBranchID string    `json:"effective_branch_id"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
}

// Overlaps reports whether the slot intersects [start, end).
func (s AvailabilitySlot) Overlaps(start, end time.Time) bool {
	return s.StartAt.Before(end) && s.EndAt.After(start)
}

func (s AvailabilitySlot) Equal(other AvailabilitySlot) bool {
	return s.StaffID == other.StaffID &&
		s.EffectiveBranchID == other.EffectiveBranchID &&
		s.StartAt.Equal(other.StartAt) &&
		s.EndAt.Equal(other.EndAt)
}

// AvailabilityWindow is raw oracle output before location and occupancy filtering.
type AvailabilityWindow struct {
	StaffID  string    `json:"staff_id"`
	BranchID string    `json:"branch_id"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
}

type AvailabilityCacheEntry struct {
	Key       string             `json:"key"`
	Slots     []AvailabilitySlot `json:"slots"`
	FetchedAt time.Time          `json:"fetched_at"`
}
