package availability

import (
	"strings"
	"time"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"
)

// Query asks for the bookable slots of one wizard selection.
type Query struct {
	Day       string `json:"day"`
	StaffID   string `json:"staff_id"`
	ServiceID string `json:"service_id"`
	BranchID  string `json:"branch_id"`

	// ForceRefresh bypasses the cache, e.g. after the app returns to the
	// foreground or a reservation was just created.
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// Key identifies a cached snapshot. The branch is part of the key because
// one cache serves every session of the business.
type Key struct {
	Day       string
	StaffID   string
	ServiceID string
	BranchID  string
}

func (k Key) String() string {
	return strings.Join([]string{k.Day, k.StaffID, k.ServiceID, k.BranchID}, "|")
}

func (q Query) Key() Key {
	return Key{Day: q.Day, StaffID: q.StaffID, ServiceID: q.ServiceID, BranchID: q.BranchID}
}

func (q Query) concreteStaff() bool {
	return q.StaffID != "" && q.StaffID != model.AnyStaff
}

func (q Query) validate() error {
	missing := map[string]any{}
	if q.BranchID == "" {
		missing["branch_id"] = "required"
	}
	if q.Day == "" {
		missing["day"] = "required"
	}
	if q.StaffID == "" {
		missing["staff_id"] = "required"
	}
	if q.ServiceID == "" {
		missing["service_id"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.Validation("Selection is incomplete", missing)
	}
	return nil
}

// Result is what the availability layer hands back; it never fails with a
// Go error so callers can always render something.
type Result struct {
	Key       Key                      `json:"-"`
	Slots     []model.AvailabilitySlot `json:"slots"`
	Loading   bool                     `json:"loading"`
	FetchedAt time.Time                `json:"fetched_at,omitempty"`
	FromCache bool                     `json:"from_cache"`

	Err       error              `json:"-"`
	Category  apperrors.Category `json:"category,omitempty"`
	Message   string             `json:"message,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
}

func errorResult(key Key, err error) Result {
	c := apperrors.Classify(err)
	return Result{
		Key:       key,
		Err:       err,
		Category:  c.Category,
		Message:   apperrors.UserMessage(err),
		Retryable: c.Retryable,
	}
}
