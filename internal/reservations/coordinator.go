// Package reservations turns a chosen slot into a reservation through the
// two-phase hold and confirm protocol, or the atomic guest booking.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"slotkeeper/internal/notify"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/metrics"
	"slotkeeper/pkg/model"
)

const (
	StepValidate = "validate"
	StepHold     = "hold"
	StepConfirm  = "confirm"
	StepGuest    = "guest_booking"
	StepNotify   = "notify"
)

const (
	PathAuthenticated = "authenticated"
	PathGuest         = "guest"
)

type Ledger interface {
	HoldSlot(ctx context.Context, req model.HoldRequest) (*model.Reservation, error)
	ConfirmReservation(ctx context.Context, reservationID string) (*model.Reservation, error)
	CreateGuestReservation(ctx context.Context, req model.GuestReservationRequest) (*model.Reservation, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, kind notify.Kind, r model.Reservation)
}

// CacheInvalidator drops availability snapshots made stale by a booking.
type CacheInvalidator interface {
	InvalidateStaffDay(day, staffID string)
}

// StepError names the step of the attempt that failed. Err is the failing
// step's error, unchanged.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step name carried by err, or "".
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}

type step struct {
	name    string
	execute func(ctx context.Context, a *attempt) error
}

// attempt is the state of one Reserve call as it moves through the steps.
type attempt struct {
	intent      model.ReservationIntent
	reservation *model.Reservation
}

type Coordinator struct {
	ledger      Ledger
	validator   *IntentValidator
	notifier    Notifier
	invalidator CacheInvalidator
	location    *time.Location
	metrics     *metrics.EngineMetrics
	log         *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewCoordinator(
	ledger Ledger,
	validator *IntentValidator,
	notifier Notifier,
	invalidator CacheInvalidator,
	location *time.Location,
	m *metrics.EngineMetrics,
	log *logger.Logger,
) *Coordinator {
	if location == nil {
		location = time.UTC
	}
	return &Coordinator{
		ledger:      ledger,
		validator:   validator,
		notifier:    notifier,
		invalidator: invalidator,
		location:    location,
		metrics:     m,
		log:         log,
		inFlight:    make(map[string]struct{}),
	}
}

// Reserve runs validate, then hold and confirm for an authenticated user or
// a single guest booking otherwise. A confirm failure after a successful
// hold returns the held reservation together with a RESERVED_NOT_CONFIRMED
// error: the hold still reserves the slot, so it is neither retried nor
// cancelled.
func (c *Coordinator) Reserve(ctx context.Context, intent model.ReservationIntent) (*model.Reservation, error) {
	c.validator.Normalize(&intent)
	if err := c.validator.Validate(&intent); err != nil {
		c.metrics.ObserveReservation(pathOf(intent), "invalid")
		return nil, &StepError{Step: StepValidate, Err: err}
	}

	lockKey := attemptKey(intent)
	if !c.acquire(lockKey) {
		c.log.Warn("Reservation already in progress",
			"staff_id", intent.StaffID,
			"start_at", intent.StartAt,
		)
		c.metrics.ObserveReservation(pathOf(intent), "in_progress")
		return nil, apperrors.ReservationInProgress()
	}
	defer c.release(lockKey)

	a := &attempt{intent: intent}
	var steps []step
	if intent.IsGuest() {
		steps = []step{{StepGuest, c.guestBooking}}
	} else {
		steps = []step{{StepHold, c.hold}, {StepConfirm, c.confirm}}
	}

	for _, s := range steps {
		if err := s.execute(ctx, a); err != nil {
			return c.fail(a, s.name, err)
		}
	}

	c.invalidate(a.intent)
	c.notifier.Dispatch(ctx, notify.KindReservationConfirmed, *a.reservation)
	c.metrics.ObserveReservation(pathOf(intent), "confirmed")
	c.log.Info("Reservation confirmed",
		"reservation_id", a.reservation.ID,
		"path", pathOf(intent),
		"staff_id", intent.StaffID,
		"branch_id", intent.BranchID,
		"start_at", intent.StartAt,
	)
	return a.reservation, nil
}

func (c *Coordinator) fail(a *attempt, stepName string, err error) (*model.Reservation, error) {
	path := pathOf(a.intent)

	if stepName == StepConfirm && a.reservation != nil {
		c.invalidate(a.intent)
		c.metrics.ObserveReservation(path, "held_not_confirmed")
		c.log.Error("Reservation held but not confirmed, manual follow-up needed",
			"reservation_id", a.reservation.ID,
			"staff_id", a.intent.StaffID,
			"start_at", a.intent.StartAt,
			"error", err,
		)
		return a.reservation, &StepError{Step: stepName, Err: apperrors.ReservedNotConfirmed(a.reservation.ID, err)}
	}

	c.metrics.ObserveReservation(path, "failed")
	logFn := c.log.Warn
	if apperrors.Classify(err).Category == apperrors.CategoryTechnical {
		logFn = c.log.Error
	}
	logFn("Reservation failed",
		"step", stepName,
		"path", path,
		"staff_id", a.intent.StaffID,
		"start_at", a.intent.StartAt,
		"error", err,
	)
	return nil, &StepError{Step: stepName, Err: err}
}

func (c *Coordinator) hold(ctx context.Context, a *attempt) error {
	r, err := c.ledger.HoldSlot(ctx, model.HoldRequest{
		BusinessID: a.intent.BusinessID,
		BranchID:   a.intent.BranchID,
		ServiceID:  a.intent.ServiceID,
		StaffID:    a.intent.StaffID,
		StartAt:    a.intent.StartAt,
		UserID:     a.intent.UserID,
	})
	if err != nil {
		return err
	}
	if r == nil || r.ID == "" {
		return apperrors.Technical("ledger returned a hold without an id", nil)
	}
	if r.Status == "" {
		r.Status = model.StatusHold
	}
	a.reservation = r
	return nil
}

func (c *Coordinator) confirm(ctx context.Context, a *attempt) error {
	confirmed, err := c.ledger.ConfirmReservation(ctx, a.reservation.ID)
	if err != nil {
		return err
	}
	if confirmed != nil && confirmed.ID != "" {
		a.reservation = confirmed
	}
	a.reservation.Status = model.StatusConfirmed
	return nil
}

func (c *Coordinator) guestBooking(ctx context.Context, a *attempt) error {
	r, err := c.ledger.CreateGuestReservation(ctx, model.GuestReservationRequest{
		BusinessID: a.intent.BusinessID,
		BranchID:   a.intent.BranchID,
		ServiceID:  a.intent.ServiceID,
		StaffID:    a.intent.StaffID,
		StartAt:    a.intent.StartAt,
		Guest:      *a.intent.Guest,
	})
	if err != nil {
		return err
	}
	if r == nil || r.ID == "" {
		return apperrors.Technical("ledger returned a guest reservation without an id", nil)
	}
	if r.Status == "" {
		r.Status = model.StatusConfirmed
	}
	a.reservation = r
	return nil
}

func (c *Coordinator) invalidate(intent model.ReservationIntent) {
	if c.invalidator == nil {
		return
	}
	c.invalidator.InvalidateStaffDay(model.DateKey(intent.StartAt, c.location), intent.StaffID)
}

func (c *Coordinator) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Coordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

func attemptKey(intent model.ReservationIntent) string {
	return intent.BranchID + "|" + intent.StaffID + "|" + intent.StartAt.UTC().Format(time.RFC3339)
}

func pathOf(intent model.ReservationIntent) string {
	if intent.IsGuest() {
		return PathGuest
	}
	return PathAuthenticated
}
