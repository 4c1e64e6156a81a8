// Package roster keeps the staff roster of one business together with the
// temporary assignments resolved for it.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"slotkeeper/internal/assignments"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
)

var ErrRosterNotLoaded = errors.New("staff roster not loaded")

type StaffSource interface {
	ListStaff(ctx context.Context, businessID, branchID string) ([]model.Staff, error)
}

type Directory struct {
	businessID string
	source     StaffSource
	resolver   *assignments.Resolver
	location   *time.Location
	now        func() time.Time
	log        *logger.Logger

	mu        sync.RWMutex
	roster    model.Roster
	overrides assignments.Overrides
	warning   error
	loadedAt  time.Time
}

func NewDirectory(businessID string, source StaffSource, resolver *assignments.Resolver, location *time.Location, log *logger.Logger) *Directory {
	if location == nil {
		location = time.UTC
	}
	return &Directory{
		businessID: businessID,
		source:     source,
		resolver:   resolver,
		location:   location,
		now:        time.Now,
		log:        log,
	}
}

// SetClock replaces the time source. Tests only.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// Refresh reloads the roster and the temporary assignments. A roster failure
// keeps the previous data and is returned; an assignment failure is kept as
// a warning and the directory falls back to default branches.
func (d *Directory) Refresh(ctx context.Context) error {
	staff, err := d.source.ListStaff(ctx, d.businessID, "")
	if err != nil {
		d.log.Error("Failed to load staff roster", "business_id", d.businessID, "error", err)
		return err
	}
	roster := model.Roster(staff)

	today := d.now().In(d.location)
	overrides, warning := d.resolver.Resolve(ctx, d.businessID, roster, today)

	d.mu.Lock()
	d.roster = roster
	d.overrides = overrides
	d.warning = warning
	d.loadedAt = d.now()
	d.mu.Unlock()

	d.log.Info("Staff roster loaded",
		"business_id", d.businessID,
		"staff", len(roster),
		"temporary_assignments", overrides.Len(),
	)
	return nil
}

// Warning is the soft error from the last assignment resolution, if any.
func (d *Directory) Warning() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.warning
}

func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

// Fresh fails when the roster was never loaded or the last successful
// refresh is older than maxAge. A non-positive maxAge only checks the load.
func (d *Directory) Fresh(maxAge time.Duration) error {
	loadedAt := d.LoadedAt()
	if loadedAt.IsZero() {
		return ErrRosterNotLoaded
	}
	if age := d.now().Sub(loadedAt); maxAge > 0 && age > maxAge {
		return fmt.Errorf("staff roster is stale: last loaded %s ago", age.Round(time.Second))
	}
	return nil
}

func (d *Directory) Staff(staffID string) (model.Staff, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.roster.Find(staffID)
}

func (d *Directory) Performs(staffID, serviceID string) bool {
	s, ok := d.Staff(staffID)
	return ok && s.Performs(serviceID)
}

func (d *Directory) Relocation(staffID, date string) (model.TemporaryAssignment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.overrides.Lookup(staffID, date)
}

func (d *Directory) EffectiveBranch(staffID, date string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.roster.Find(staffID)
	if !ok {
		return ""
	}
	return d.overrides.EffectiveBranch(s, date)
}
