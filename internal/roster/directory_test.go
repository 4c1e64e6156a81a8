package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotkeeper/internal/assignments"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
)

type mockStaffSource struct {
	staff []model.Staff
	err   error
}

func (m *mockStaffSource) ListStaff(ctx context.Context, businessID, branchID string) ([]model.Staff, error) {
	return m.staff, m.err
}

type mockOverrideSource struct {
	overrides []model.ScheduleOverride
	err       error
}

func (m *mockOverrideSource) ListScheduleOverrides(ctx context.Context, req model.OverridesRequest) ([]model.ScheduleOverride, error) {
	return m.overrides, m.err
}

func newTestDirectory(staff *mockStaffSource, overrides *mockOverrideSource) *Directory {
	log := logger.Discard()
	d := NewDirectory("biz", staff, assignments.NewResolver(overrides, 60, log), time.UTC, log)
	d.SetClock(func() time.Time { return time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC) })
	return d
}

func TestDirectory_Refresh(t *testing.T) {
	d := newTestDirectory(
		&mockStaffSource{staff: []model.Staff{
			{ID: "s1", DefaultBranchID: "b1", ServiceIDs: []string{"svc1"}},
			{ID: "s2", DefaultBranchID: "b1", ServiceIDs: []string{"svc2"}},
		}},
		&mockOverrideSource{overrides: []model.ScheduleOverride{
			{StaffID: "s1", BranchID: "b2", Date: "2024-06-10"},
		}},
	)

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Warning() != nil {
		t.Errorf("unexpected warning: %v", d.Warning())
	}
	if !d.Performs("s1", "svc1") || d.Performs("s1", "svc2") || d.Performs("ghost", "svc1") {
		t.Error("Performs() does not follow the roster")
	}
	if got := d.EffectiveBranch("s1", "2024-06-10"); got != "b2" {
		t.Errorf("EffectiveBranch() = %s, want b2", got)
	}

	if d.LoadedAt().IsZero() {
		t.Error("LoadedAt() not recorded")
	}
}

func TestDirectory_Fresh(t *testing.T) {
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	d := newTestDirectory(&mockStaffSource{staff: []model.Staff{{ID: "s1", DefaultBranchID: "b1"}}}, &mockOverrideSource{})
	d.SetClock(func() time.Time { return now })

	if err := d.Fresh(time.Hour); !errors.Is(err, ErrRosterNotLoaded) {
		t.Fatalf("Fresh() before load = %v, want ErrRosterNotLoaded", err)
	}
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Fresh(time.Hour); err != nil {
		t.Errorf("Fresh() right after load = %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := d.Fresh(time.Hour); err == nil {
		t.Error("Fresh() accepted a roster two hours old")
	}
	if err := d.Fresh(0); err != nil {
		t.Errorf("Fresh(0) = %v, want nil once loaded", err)
	}
}

func TestDirectory_OverrideFailureIsSoft(t *testing.T) {
	d := newTestDirectory(
		&mockStaffSource{staff: []model.Staff{{ID: "s1", DefaultBranchID: "b1"}}},
		&mockOverrideSource{err: errors.New("connection refused")},
	)

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("override failure must not fail refresh: %v", err)
	}
	if !errors.Is(d.Warning(), assignments.ErrOverridesUnavailable) {
		t.Errorf("expected soft warning, got %v", d.Warning())
	}
	if got := d.EffectiveBranch("s1", "2024-06-10"); got != "b1" {
		t.Errorf("EffectiveBranch() = %s, want default b1", got)
	}
}

func TestDirectory_RosterFailureKeepsPreviousData(t *testing.T) {
	staff := &mockStaffSource{staff: []model.Staff{{ID: "s1", DefaultBranchID: "b1"}}}
	d := newTestDirectory(staff, &mockOverrideSource{})

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	staff.err = errors.New("boom")
	if err := d.Refresh(context.Background()); err == nil {
		t.Fatal("expected roster failure")
	}
	if _, ok := d.Staff("s1"); !ok {
		t.Error("previous roster must survive a failed refresh")
	}
}
