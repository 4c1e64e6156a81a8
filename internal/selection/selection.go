// Package selection holds the booking wizard state and the ordering rules
// between its steps. It performs no I/O.
package selection

import (
	"sync"

	"slotkeeper/pkg/model"
)

type Step int

const (
	StepBranch Step = iota
	StepDay
	StepStaff
	StepService
	StepSlot
)

func (s Step) String() string {
	switch s {
	case StepBranch:
		return "branch"
	case StepDay:
		return "day"
	case StepStaff:
		return "staff"
	case StepService:
		return "service"
	case StepSlot:
		return "slot"
	default:
		return "unknown"
	}
}

// Catalog answers which services a staff member performs.
type Catalog interface {
	Performs(staffID, serviceID string) bool
}

// Machine is the mutable wizard state of one session. Every mutation goes
// through a setter, and each setter clears the fields that depend on the one
// it changes before storing the new value.
type Machine struct {
	mu      sync.RWMutex
	state   model.Selection
	catalog Catalog
}

func New(catalog Catalog) *Machine {
	return &Machine{catalog: catalog}
}

// Snapshot returns a copy of the current selection.
func (m *Machine) Snapshot() model.Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.state
	if s.Slot != nil {
		slot := *s.Slot
		s.Slot = &slot
	}
	return s
}

func (m *Machine) SetBranch(branchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.BranchID == branchID {
		return
	}
	m.clearFrom(StepStaff)
	m.state.BranchID = branchID
}

func (m *Machine) SetDay(day string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Day == day {
		return
	}
	m.clearFrom(StepStaff)
	m.state.Day = day
}

// SetStaff accepts a concrete staff id or model.AnyStaff.
func (m *Machine) SetStaff(staffID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.StaffID == staffID {
		return
	}
	m.clearFrom(StepService)
	m.state.StaffID = staffID
}

func (m *Machine) SetService(serviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.ServiceID == serviceID {
		return
	}
	m.clearFrom(StepSlot)
	m.state.ServiceID = serviceID
}

// SetSlot stores a copy of slot; nil clears the choice.
func (m *Machine) SetSlot(slot *model.AvailabilitySlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot == nil {
		m.state.Slot = nil
		return
	}
	s := *slot
	m.state.Slot = &s
}

func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = model.Selection{}
}

// clearFrom empties step and every step after it. Caller holds mu.
func (m *Machine) clearFrom(step Step) {
	switch step {
	case StepBranch:
		m.state.BranchID = ""
		fallthrough
	case StepDay:
		m.state.Day = ""
		fallthrough
	case StepStaff:
		m.state.StaffID = ""
		fallthrough
	case StepService:
		m.state.ServiceID = ""
		fallthrough
	case StepSlot:
		m.state.Slot = nil
	}
}

// CanAdvance reports whether every field up to and including step is set
// and, from the service step on, whether a concrete staff member performs
// the chosen service.
func (m *Machine) CanAdvance(step Step) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if step < StepBranch || step > StepSlot {
		return false
	}
	s := m.state
	for current := StepBranch; current <= step; current++ {
		switch current {
		case StepBranch:
			if s.BranchID == "" {
				return false
			}
		case StepDay:
			if s.Day == "" {
				return false
			}
		case StepStaff:
			if s.StaffID == "" {
				return false
			}
		case StepService:
			if s.ServiceID == "" {
				return false
			}
			if s.StaffID != model.AnyStaff && m.catalog != nil && !m.catalog.Performs(s.StaffID, s.ServiceID) {
				return false
			}
		case StepSlot:
			if s.Slot == nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}
