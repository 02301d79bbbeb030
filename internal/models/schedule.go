package models

// ScheduleStatus is the presentation-layer state of a schedule entry. It is
// recomputed on every composition and never persisted.
type ScheduleStatus string

const (
	StatusAvailableNow ScheduleStatus = "available_now"
	StatusMissed       ScheduleStatus = "missed"
	StatusUpcoming     ScheduleStatus = "upcoming"
	StatusSnoozed      ScheduleStatus = "snoozed"
	StatusInfo         ScheduleStatus = "info"
	StatusCompleted    ScheduleStatus = "completed"
)

// SortBucket returns the fixed ordering priority of a status: actionable
// entries first, stale items next, resolved items last.
func (s ScheduleStatus) SortBucket() int {
	switch s {
	case StatusAvailableNow:
		return 0
	case StatusMissed:
		return 1
	case StatusUpcoming:
		return 2
	case StatusSnoozed:
		return 3
	case StatusInfo:
		return 4
	case StatusCompleted:
		return 5
	default:
		return 6
	}
}

type EntryKind string

const (
	EntryRoutine     EntryKind = "routine"
	EntryAppointment EntryKind = "appointment"
)

// ScheduleEntry is a unified timeline item: either a daily instance or an
// appointment. Ephemeral; holds no state between compositions.
type ScheduleEntry struct {
	Kind          EntryKind      `json:"kind"`
	InstanceID    string         `json:"instance_id,omitempty"`
	ItemID        string         `json:"item_id,omitempty"`
	WindowID      string         `json:"window_id,omitempty"`
	AppointmentID string         `json:"appointment_id,omitempty"`
	Title         string         `json:"title"`
	Detail        string         `json:"detail,omitempty"`
	ItemType      ItemType       `json:"item_type,omitempty"`
	Priority      int            `json:"priority,omitempty"`
	Status        ScheduleStatus `json:"status"`
	StartMin      int            `json:"start_min"`
	EndMin        int            `json:"end_min"`
}

type ConflictKind string

const (
	ConflictOverlap  ConflictKind = "overlap"
	ConflictAdjacent ConflictKind = "adjacent"
)

// Conflict records a temporal collision between an appointment and a routine
// time window on the same date.
type Conflict struct {
	Kind          ConflictKind `json:"kind"`
	AppointmentID string       `json:"appointment_id"`
	ItemID        string       `json:"item_id"`
	WindowID      string       `json:"window_id"`
	Suggestion    string       `json:"suggestion"`
}

// ScheduleStats summarizes a composed schedule.
type ScheduleStats struct {
	Total          int  `json:"total"`
	Actionable     int  `json:"actionable"` // available_now + missed
	RoutinesDone   bool `json:"routines_done"`
	ConflictsFound int  `json:"conflicts_found"`
}

// ScheduleResult is the product of one EnsureSchedule call.
type ScheduleResult struct {
	PatientID string                             `json:"patient_id"`
	Date      string                             `json:"date"`
	Entries   []ScheduleEntry                    `json:"entries"`
	Grouped   map[ScheduleStatus][]ScheduleEntry `json:"grouped"`
	Conflicts []Conflict                         `json:"conflicts"`
	Stats     ScheduleStats                      `json:"stats"`
}
