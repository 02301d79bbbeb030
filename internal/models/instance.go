package models

import "time"

type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceCompleted InstanceStatus = "completed"
	InstanceSkipped   InstanceStatus = "skipped"
	InstanceMissed    InstanceStatus = "missed"
)

// Valid reports whether s is one of the known instance statuses.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstancePending, InstanceCompleted, InstanceSkipped, InstanceMissed:
		return true
	}
	return false
}

// Terminal reports whether the status can never change again. Missed is not
// terminal: a late completion still moves the instance to completed.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceSkipped
}

// ItemSnapshot is the denormalized copy of a plan item's display fields taken
// when an instance is generated. It is copy-on-create and never refreshed,
// so an instance always shows what the plan said at generation time.
type ItemSnapshot struct {
	Name     string   `json:"name"`
	Type     ItemType `json:"type"`
	Priority int      `json:"priority"`
	Detail   string   `json:"detail,omitempty"`
}

// DailyInstance is one concrete, dated occurrence of a plan item's time
// window. For a given (patient, date), the (ItemID, WindowID) pair uniquely
// identifies at most one instance.
type DailyInstance struct {
	ID           string         `json:"id"`
	PatientID    string         `json:"patient_id"`
	Date         string         `json:"date"` // YYYY-MM-DD
	ItemID       string         `json:"item_id"`
	WindowID     string         `json:"window_id"`
	ScheduledMin int            `json:"scheduled_min"` // minutes from midnight
	Status       InstanceStatus `json:"status"`
	LogEntryID   string         `json:"log_entry_id,omitempty"` // completion log reference
	Snapshot     ItemSnapshot   `json:"snapshot"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Key returns the idempotency key within a (patient, date) scope.
func (d DailyInstance) Key() string {
	return d.ItemID + "|" + d.WindowID
}

// Logged reports whether a completion event has been recorded.
func (d DailyInstance) Logged() bool {
	return d.LogEntryID != ""
}

// Override is a per-(item, window) snooze. It is consulted by the status
// engine and naturally expires once the clock passes UntilMin.
type Override struct {
	PatientID string `json:"patient_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	ItemID    string `json:"item_id"`
	WindowID  string `json:"window_id"`
	UntilMin  int    `json:"until_min"` // minute offset at which the snooze expires
}

// ActiveAt reports whether the snooze still applies at the given minute on the
// given date.
func (o Override) ActiveAt(date string, minute int) bool {
	return o.Date == date && minute < o.UntilMin
}
