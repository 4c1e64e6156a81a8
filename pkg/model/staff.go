package model

// AnyStaff selects every staff member who can serve at the branch.
const AnyStaff = "any"

type Staff struct {
	ID              string   `json:"id" bson:"_id"`
	Name            string   `json:"name" bson:"name"`
	DefaultBranchID string   `json:"default_branch_id" bson:"default_branch_id"`
	ServiceIDs      []string `json:"service_ids" bson:"service_ids"`
}

func (s Staff) Performs(serviceID string) bool {
	for _, id := range s.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// ScheduleOverride is a raw dated schedule rule from the directory.
type ScheduleOverride struct {
	StaffID  string `json:"staff_id"`
	BranchID string `json:"branch_id"`
	Date     string `json:"date"`
}

// TemporaryAssignment places a staff member at a non-default branch for one date.
type TemporaryAssignment struct {
	StaffID           string `json:"staff_id"`
	EffectiveBranchID string `json:"effective_branch_id"`
	Date              string `json:"date"`
}

// Roster is the staff list of one business.
type Roster []Staff

func (r Roster) Find(staffID string) (Staff, bool) {
	for _, s := range r {
		if s.ID == staffID {
			return s, true
		}
	}
	return Staff{}, false
}

func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, s := range r {
		ids = append(ids, s.ID)
	}
	return ids
}
