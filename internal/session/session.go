// Package session wires one booking wizard together: selection changes
// drive debounced slot queries, and a chosen slot becomes a reservation.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"slotkeeper/internal/availability"
	"slotkeeper/internal/selection"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
)

// Roster is the staff directory the wizard reads from.
type Roster interface {
	selection.Catalog
	Refresh(ctx context.Context) error
	Warning() error
}

type Reserver interface {
	Reserve(ctx context.Context, intent model.ReservationIntent) (*model.Reservation, error)
}

// Change sets wizard fields. Nil fields are left alone; set fields are
// applied in wizard order so dependent fields clear as they would when
// the user picks them one by one.
type Change struct {
	BranchID  *string `json:"branch_id,omitempty"`
	Day       *string `json:"day,omitempty"`
	StaffID   *string `json:"staff_id,omitempty"`
	ServiceID *string `json:"service_id,omitempty"`
}

// Requester is who reserves: a signed-in user, or a guest with contact details.
type Requester struct {
	UserID string              `json:"user_id,omitempty"`
	Guest  *model.GuestContact `json:"guest,omitempty"`
}

// View is a point-in-time copy of the session for rendering.
type View struct {
	ID        string              `json:"id"`
	Selection model.Selection     `json:"selection"`
	Slots     availability.Result `json:"availability"`
	Warning   string              `json:"warning,omitempty"`
}

type Session struct {
	id         string
	businessID string
	selection  *selection.Machine
	roster     Roster
	watcher    *availability.Watcher
	reserver   Reserver
	log        *logger.Logger

	mu       sync.Mutex
	lastUsed time.Time
}

func New(id, businessID string, roster Roster, watcher *availability.Watcher, reserver Reserver, log *logger.Logger) *Session {
	return &Session{
		id:         id,
		businessID: businessID,
		selection:  selection.New(roster),
		roster:     roster,
		watcher:    watcher,
		reserver:   reserver,
		log:        log,
		lastUsed:   time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) SetBranch(branchID string) {
	s.selection.SetBranch(strings.TrimSpace(branchID))
	s.requery(false)
}

func (s *Session) SetDay(day string) {
	s.selection.SetDay(strings.TrimSpace(day))
	s.requery(false)
}

func (s *Session) SetStaff(staffID string) {
	s.selection.SetStaff(strings.TrimSpace(staffID))
	s.requery(false)
}

func (s *Session) SetService(serviceID string) {
	s.selection.SetService(strings.TrimSpace(serviceID))
	s.requery(false)
}

// Apply sets every non-nil field of c and issues a single slot query.
func (s *Session) Apply(c Change) {
	if c.BranchID != nil {
		s.selection.SetBranch(strings.TrimSpace(*c.BranchID))
	}
	if c.Day != nil {
		s.selection.SetDay(strings.TrimSpace(*c.Day))
	}
	if c.StaffID != nil {
		s.selection.SetStaff(strings.TrimSpace(*c.StaffID))
	}
	if c.ServiceID != nil {
		s.selection.SetService(strings.TrimSpace(*c.ServiceID))
	}
	s.requery(false)
}

// ChooseSlot stores slot if it is one of the slots currently published.
func (s *Session) ChooseSlot(slot model.AvailabilitySlot) error {
	for _, offered := range s.watcher.State().Slots {
		if offered.Equal(slot) {
			s.selection.SetSlot(&offered)
			return nil
		}
	}
	return apperrors.Domain(apperrors.CodeScheduleConflict, "The selected time is no longer available")
}

func (s *Session) ClearSlot() {
	s.selection.SetSlot(nil)
}

// Refresh re-queries availability. With force the roster is reloaded and
// the cache bypassed, as after the app returns to the foreground.
func (s *Session) Refresh(ctx context.Context, force bool) {
	if force {
		if err := s.roster.Refresh(ctx); err != nil {
			s.log.Warn("Roster refresh failed, keeping previous roster", "session_id", s.id, "error", err)
		}
	}
	s.requery(force)
}

func (s *Session) Reset() {
	s.selection.Reset()
	s.watcher.Cancel()
}

func (s *Session) CanAdvance(step selection.Step) bool {
	return s.selection.CanAdvance(step)
}

// Reserve books the chosen slot. After a booking, or a hold that could not
// be confirmed, the slot is cleared and availability is reloaded past the
// cache.
func (s *Session) Reserve(ctx context.Context, who Requester) (*model.Reservation, error) {
	snap := s.selection.Snapshot()
	if !s.selection.CanAdvance(selection.StepSlot) || snap.Slot == nil {
		return nil, apperrors.Validation("Selection is incomplete", map[string]any{"slot": "choose a time first"})
	}

	intent := model.ReservationIntent{
		BusinessID: s.businessID,
		ServiceID:  snap.ServiceID,
		StaffID:    snap.Slot.StaffID,
		BranchID:   snap.Slot.EffectiveBranchID,
		StartAt:    snap.Slot.StartAt,
		UserID:     who.UserID,
		Guest:      who.Guest,
	}

	r, err := s.reserver.Reserve(ctx, intent)
	if r != nil {
		s.selection.SetSlot(nil)
		s.requery(true)
	}
	return r, err
}

func (s *Session) View() View {
	v := View{
		ID:        s.id,
		Selection: s.selection.Snapshot(),
		Slots:     s.watcher.State(),
	}
	if w := s.roster.Warning(); w != nil {
		v.Warning = apperrors.UserMessage(w)
	}
	return v
}

// Close stops pending queries.
func (s *Session) Close() {
	s.watcher.Cancel()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) requery(force bool) {
	snap := s.selection.Snapshot()
	if snap.BranchID == "" || snap.Day == "" || snap.StaffID == "" || snap.ServiceID == "" {
		s.watcher.Cancel()
		return
	}
	s.watcher.Request(availability.Query{
		Day:          snap.Day,
		StaffID:      snap.StaffID,
		ServiceID:    snap.ServiceID,
		BranchID:     snap.BranchID,
		ForceRefresh: force,
	})
}
