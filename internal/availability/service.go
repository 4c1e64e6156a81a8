// Package availability turns raw oracle windows into the bookable slot list
// of a wizard selection: cached, debounced and filtered by effective branch,
// lead time and existing reservations.
package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/metrics"
	"slotkeeper/pkg/model"
)

type Oracle interface {
	ListAvailability(ctx context.Context, req model.AvailabilityRequest) ([]model.AvailabilityWindow, error)
}

type Occupancy interface {
	ListExistingReservations(ctx context.Context, staffID, branchID, date string) ([]model.ExistingReservation, error)
}

type StaffDirectory interface {
	Staff(staffID string) (model.Staff, bool)
	Relocation(staffID, date string) (model.TemporaryAssignment, bool)
}

type Options struct {
	BusinessID   string
	Location     *time.Location
	LeadTime     time.Duration
	CacheTTL     time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	// Now is the clock seam for TTL and lead-time checks.
	Now func() time.Time
}

type Service struct {
	oracle    Oracle
	occupancy Occupancy
	directory StaffDirectory
	cache     *Cache
	opts      Options
	metrics   *metrics.EngineMetrics
	log       *logger.Logger
}

func NewService(oracle Oracle, occupancy Occupancy, directory StaffDirectory, opts Options, m *metrics.EngineMetrics, log *logger.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Service{
		oracle:    oracle,
		occupancy: occupancy,
		directory: directory,
		cache:     NewCache(opts.CacheTTL, opts.Now),
		opts:      opts,
		metrics:   m,
		log:       log,
	}
}

func (s *Service) Cache() *Cache {
	return s.cache
}

// InvalidateStaffDay drops the snapshots a new reservation could affect.
func (s *Service) InvalidateStaffDay(day, staffID string) {
	if n := s.cache.InvalidateStaffDay(day, staffID); n > 0 {
		s.log.Debug("Availability cache invalidated", "day", day, "staff_id", staffID, "entries", n)
	}
}

// GetSlots resolves q to a sorted slot list. Failures come back inside the
// Result; only complete successful snapshots are cached.
func (s *Service) GetSlots(ctx context.Context, q Query) Result {
	key := q.Key()

	if err := q.validate(); err != nil {
		return errorResult(key, err)
	}
	if _, err := model.ParseDate(q.Day, s.opts.Location); err != nil {
		return errorResult(key, apperrors.Validation("Invalid day", map[string]any{"day": q.Day}))
	}

	if q.concreteStaff() {
		staff, ok := s.directory.Staff(q.StaffID)
		if !ok {
			return errorResult(key, apperrors.NotFound("Staff member"))
		}
		if !staff.Performs(q.ServiceID) {
			return errorResult(key, apperrors.ServiceNotPerformed(q.StaffID, q.ServiceID))
		}
	}

	if !q.ForceRefresh {
		if entry, ok := s.cache.Get(key); ok {
			s.metrics.ObserveCacheLookup(true)
			s.log.Debug("Availability cache hit", "key", entry.Key)
			return Result{Key: key, Slots: s.afterLeadTime(entry.Slots), FetchedAt: entry.FetchedAt, FromCache: true}
		}
	}
	s.metrics.ObserveCacheLookup(false)

	req := model.AvailabilityRequest{
		BusinessID: s.opts.BusinessID,
		BranchID:   q.BranchID,
		ServiceID:  q.ServiceID,
		Date:       q.Day,
	}
	if q.concreteStaff() {
		req.StaffIDs = []string{q.StaffID}
		if a, ok := s.directory.Relocation(q.StaffID, q.Day); ok {
			req.BranchID = a.EffectiveBranchID
		}
	}

	windows, err := s.listWindows(ctx, req)
	if err != nil {
		s.log.Warn("Availability query failed",
			"day", q.Day,
			"staff_id", q.StaffID,
			"service_id", q.ServiceID,
			"branch_id", q.BranchID,
			"error", err,
		)
		return errorResult(key, err)
	}

	slots := s.filterWindows(q, windows)
	slots, complete := s.excludeOccupied(ctx, q.Day, slots)
	sortSlots(slots)

	if !complete {
		return Result{Key: key, Slots: slots, FetchedAt: s.opts.Now()}
	}
	entry := s.cache.Put(key, slots)
	return Result{Key: key, Slots: slots, FetchedAt: entry.FetchedAt}
}

// listWindows calls the oracle, retrying only network-class failures.
func (s *Service) listWindows(ctx context.Context, req model.AvailabilityRequest) ([]model.AvailabilityWindow, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		start := time.Now()
		windows, err := s.oracle.ListAvailability(ctx, req)
		if err == nil {
			s.metrics.ObserveOracleCall("ok", time.Since(start).Seconds())
			return windows, nil
		}
		c := apperrors.Classify(err)
		s.metrics.ObserveOracleCall(string(c.Category), time.Since(start).Seconds())

		lastErr = err
		if !c.Retryable || attempt == s.opts.MaxAttempts {
			break
		}
		s.log.Debug("Retrying availability query", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, apperrors.Network("availability query cancelled", ctx.Err())
		case <-time.After(s.opts.RetryBackoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

// filterWindows keeps windows that start strictly after now+lead time at
// the branch the staff member works at that day. A concrete staff member is
// followed to a relocation branch; with "any", staff relocated away from the
// selected branch are dropped.
func (s *Service) filterWindows(q Query, windows []model.AvailabilityWindow) []model.AvailabilitySlot {
	cutoff := s.opts.Now().Add(s.opts.LeadTime)

	slots := make([]model.AvailabilitySlot, 0, len(windows))
	for _, w := range windows {
		if q.concreteStaff() && w.StaffID != q.StaffID {
			continue
		}
		effective := q.BranchID
		if a, ok := s.directory.Relocation(w.StaffID, q.Day); ok {
			if !q.concreteStaff() && a.EffectiveBranchID != q.BranchID {
				continue
			}
			effective = a.EffectiveBranchID
		}
		if w.BranchID != effective {
			continue
		}
		if !w.StartAt.After(cutoff) {
			continue
		}
		if !w.EndAt.After(w.StartAt) {
			continue
		}
		slots = append(slots, model.AvailabilitySlot{
			StaffID:           w.StaffID,
			EffectiveBranchID: effective,
			StartAt:           w.StartAt,
			EndAt:             w.EndAt,
		})
	}
	return slots
}

// afterLeadTime copies the cached slots that still start strictly after
// now+lead time.
func (s *Service) afterLeadTime(cached []model.AvailabilitySlot) []model.AvailabilitySlot {
	cutoff := s.opts.Now().Add(s.opts.LeadTime)
	slots := make([]model.AvailabilitySlot, 0, len(cached))
	for _, slot := range cached {
		if slot.StartAt.After(cutoff) {
			slots = append(slots, slot)
		}
	}
	return slots
}

type occupancyKey struct {
	staffID  string
	branchID string
}

// excludeOccupied re-checks the ledger for every staff member in slots and
// drops slots overlapping a live reservation. The oracle filters conflicts
// too; this second pass catches bookings it has not seen yet. If a lookup
// fails the affected slots are kept and complete is false.
func (s *Service) excludeOccupied(ctx context.Context, day string, slots []model.AvailabilitySlot) ([]model.AvailabilitySlot, bool) {
	if len(slots) == 0 || s.occupancy == nil {
		return slots, true
	}

	keys := map[occupancyKey]struct{}{}
	for _, slot := range slots {
		keys[occupancyKey{slot.StaffID, slot.EffectiveBranchID}] = struct{}{}
	}

	var (
		mu       sync.Mutex
		existing = make(map[occupancyKey][]model.ExistingReservation, len(keys))
		failed   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for k := range keys {
		g.Go(func() error {
			rows, err := s.occupancy.ListExistingReservations(gctx, k.staffID, k.branchID, day)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("Occupancy check failed, keeping oracle slots",
					"staff_id", k.staffID,
					"branch_id", k.branchID,
					"day", day,
					"error", err,
				)
				failed = true
				return nil
			}
			existing[k] = rows
			return nil
		})
	}
	_ = g.Wait()

	kept := slots[:0]
	for _, slot := range slots {
		if overlapsAny(slot, existing[occupancyKey{slot.StaffID, slot.EffectiveBranchID}]) {
			continue
		}
		kept = append(kept, slot)
	}
	return kept, !failed
}

func overlapsAny(slot model.AvailabilitySlot, rows []model.ExistingReservation) bool {
	for _, r := range rows {
		if r.Blocks() && slot.Overlaps(r.StartAt, r.EndAt) {
			return true
		}
	}
	return false
}

func sortSlots(slots []model.AvailabilitySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].StartAt.Equal(slots[j].StartAt) {
			return slots[i].StartAt.Before(slots[j].StartAt)
		}
		return slots[i].StaffID < slots[j].StaffID
	})
}
