// Package assignments resolves one-day staff relocations to non-default
// branches.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/sanitizer"
)

// ErrOverridesUnavailable is the soft error returned alongside an empty
// override set when the schedule listing cannot be read.
var ErrOverridesUnavailable = errors.New("schedule overrides unavailable")

type OverrideSource interface {
	ListScheduleOverrides(ctx context.Context, req model.OverridesRequest) ([]model.ScheduleOverride, error)
}

type key struct {
	staffID string
	date    string
}

// Overrides is the set of temporary assignments in effect for a date window.
// The zero value is an empty set.
type Overrides struct {
	byKey map[key]model.TemporaryAssignment
}

func NewOverrides(assignments ...model.TemporaryAssignment) Overrides {
	o := Overrides{byKey: make(map[key]model.TemporaryAssignment, len(assignments))}
	for _, a := range assignments {
		o.byKey[key{a.StaffID, a.Date}] = a
	}
	return o
}

func (o Overrides) Lookup(staffID, date string) (model.TemporaryAssignment, bool) {
	a, ok := o.byKey[key{staffID, date}]
	return a, ok
}

// EffectiveBranch is the override branch for (staff, date) if one exists,
// otherwise the staff member's default branch.
func (o Overrides) EffectiveBranch(staff model.Staff, date string) string {
	if a, ok := o.Lookup(staff.ID, date); ok {
		return a.EffectiveBranchID
	}
	return staff.DefaultBranchID
}

func (o Overrides) Len() int {
	return len(o.byKey)
}

func (o Overrides) All() []model.TemporaryAssignment {
	out := make([]model.TemporaryAssignment, 0, len(o.byKey))
	for _, a := range o.byKey {
		out = append(out, a)
	}
	return out
}

type Resolver struct {
	source     OverrideSource
	windowDays int
	log        *logger.Logger
}

func NewResolver(source OverrideSource, windowDays int, log *logger.Logger) *Resolver {
	return &Resolver{
		source:     source,
		windowDays: windowDays,
		log:        log,
	}
}

// Resolve lists schedule rules for today..today+windowDays and keeps those
// placing a staff member outside their default branch. Rules are applied in
// listing order, so a later rule for the same (staff, date) replaces an
// earlier one, and a later rule at the default branch removes the override.
//
// A listing failure degrades to an empty set with ErrOverridesUnavailable
// so callers can keep going as if nobody was relocated.
func (r *Resolver) Resolve(ctx context.Context, businessID string, roster model.Roster, today time.Time) (Overrides, error) {
	if len(roster) == 0 {
		return NewOverrides(), nil
	}

	from := today.Format(model.DateLayout)
	to := today.AddDate(0, 0, r.windowDays).Format(model.DateLayout)

	rules, err := r.source.ListScheduleOverrides(ctx, model.OverridesRequest{
		BusinessID: businessID,
		StaffIDs:   sanitizer.NormalizeIDs(roster.IDs()),
		From:       from,
		To:         to,
	})
	if err != nil {
		r.log.Warn("Schedule overrides unavailable, assuming default branches",
			"business_id", businessID,
			"error", err,
		)
		return NewOverrides(), fmt.Errorf("%w: %w", ErrOverridesUnavailable, err)
	}

	overrides := NewOverrides()
	for _, rule := range rules {
		if rule.Date < from || rule.Date > to {
			continue
		}
		staff, ok := roster.Find(rule.StaffID)
		if !ok {
			continue
		}
		k := key{rule.StaffID, rule.Date}
		if rule.BranchID == "" || rule.BranchID == staff.DefaultBranchID {
			delete(overrides.byKey, k)
			continue
		}
		overrides.byKey[k] = model.TemporaryAssignment{
			StaffID:           rule.StaffID,
			EffectiveBranchID: rule.BranchID,
			Date:              rule.Date,
		}
	}

	r.log.Debug("Temporary assignments resolved",
		"business_id", businessID,
		"rules", len(rules),
		"assignments", overrides.Len(),
	)
	return overrides, nil
}
