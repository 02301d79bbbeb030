package models

import (
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type ItemType string

const (
	ItemTypeMedication ItemType = "medication"
	ItemTypeVitals     ItemType = "vitals"
	ItemTypeNutrition  ItemType = "nutrition"
	ItemTypeWellness   ItemType = "wellness"
	ItemTypeActivity   ItemType = "activity"
	ItemTypeCustom     ItemType = "custom"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeMedication, ItemTypeVitals, ItemTypeNutrition,
		ItemTypeWellness, ItemTypeActivity, ItemTypeCustom:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

type WindowLabel string

const (
	WindowMorning   WindowLabel = "morning"
	WindowAfternoon WindowLabel = "afternoon"
	WindowEvening   WindowLabel = "evening"
	WindowNight     WindowLabel = "night"
	WindowCustom    WindowLabel = "custom"
)

// DefaultStartMin returns the fallback start minute for windows whose times
// are unset or unparseable.
func (l WindowLabel) DefaultStartMin() int {
	switch l {
	case WindowMorning:
		return 8 * 60
	case WindowAfternoon:
		return 12 * 60
	case WindowEvening:
		return 18 * 60
	case WindowNight:
		return 21 * 60
	default:
		return 9 * 60
	}
}

// DefaultEndMin returns the fallback end minute for a label; one hour after
// the default start.
func (l WindowLabel) DefaultEndMin() int {
	return l.DefaultStartMin() + 60
}

// TimeWindow is either an exact clock time (At set) or a start/end range.
// Immutable once attached to a PlanItem.
type TimeWindow struct {
	ID    string      `json:"id"`
	Label WindowLabel `json:"label"`
	At    string      `json:"at,omitempty"`    // HH:MM, exact windows
	Start string      `json:"start,omitempty"` // HH:MM, range windows
	End   string      `json:"end,omitempty"`   // HH:MM, range windows
}

// IsExact reports whether the window is a single clock time rather than a range.
func (w TimeWindow) IsExact() bool {
	return w.At != ""
}

// StartMin resolves the window's opening minute, falling back to the label
// default when the stored time is missing or malformed.
func (w TimeWindow) StartMin() int {
	raw := w.Start
	if w.IsExact() {
		raw = w.At
	}
	if raw == "" {
		return w.Label.DefaultStartMin()
	}
	min, err := timeutil.ParseClock(raw)
	if err != nil {
		return w.Label.DefaultStartMin()
	}
	return min
}

// EndMin resolves the window's closing minute. Exact windows close at their
// scheduled time; range windows use End or the label default.
func (w TimeWindow) EndMin() int {
	if w.IsExact() {
		return w.StartMin()
	}
	if w.End == "" {
		return w.Label.DefaultEndMin()
	}
	min, err := timeutil.ParseClock(w.End)
	if err != nil {
		return w.Label.DefaultEndMin()
	}
	return min
}

// Contains reports whether minute falls inside the window (inclusive).
func (w TimeWindow) Contains(minute int) bool {
	return minute >= w.StartMin() && minute <= w.EndMin()
}

// Schedule describes when a plan item recurs.
type Schedule struct {
	Frequency Frequency      `json:"frequency"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`   // weekly only; empty = every day
	SkipDates []string       `json:"skip_dates,omitempty"` // YYYY-MM-DD
	Windows   []TimeWindow   `json:"windows"`
}

// CarePlan groups a patient's plan items.
type CarePlan struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanItem is a recurring regimen definition owned by the catalog.
type PlanItem struct {
	ID         string    `json:"id"`
	PlanID     string    `json:"plan_id"`
	ExternalID string    `json:"external_id,omitempty"` // id of the regimen config entry this came from
	Type       ItemType  `json:"type"`
	Name       string    `json:"name"`
	Detail     string    `json:"detail,omitempty"` // dosage, target range, etc.
	Priority   int       `json:"priority"`         // 1-5, lower is higher priority
	Active     bool      `json:"active"`
	Schedule   Schedule  `json:"schedule"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ShouldGenerateOn reports whether the item produces instances on the given
// date: skip-dates win, daily items always generate, weekly items generate on
// the configured weekdays (an empty weekday set means every day).
func (p PlanItem) ShouldGenerateOn(date time.Time) bool {
	dateStr := timeutil.FormatDate(date)
	for _, skip := range p.Schedule.SkipDates {
		if skip == dateStr {
			return false
		}
	}

	switch p.Schedule.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		if len(p.Schedule.Weekdays) == 0 {
			return true
		}
		for _, wd := range p.Schedule.Weekdays {
			if wd == date.Weekday() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Window looks up a time window by id.
func (p PlanItem) Window(id string) (TimeWindow, bool) {
	for _, w := range p.Schedule.Windows {
		if w.ID == id {
			return w, true
		}
	}
	return TimeWindow{}, false
}

// Snapshot captures the item's display fields for denormalization onto a
// DailyInstance at generation time.
func (p PlanItem) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		Name:     p.Name,
		Type:     p.Type,
		Priority: p.Priority,
		Detail:   p.Detail,
	}
}
