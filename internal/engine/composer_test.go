package engine

import (
	"testing"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

func seedAppointment(s *memStore, id string, startMin, endMin int, title string) models.Appointment {
	a := models.Appointment{
		ID:        id,
		PatientID: "p1",
		Date:      testDate,
		StartMin:  startMin,
		EndMin:    endMin,
		Title:     title,
		CreatedAt: time.Now(),
	}
	s.appointments[a.ID] = a
	return a
}

func TestCompose_SortOrder(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	// At 12:00: Breakfast window long past (missed), Lunch in window
	// (available_now), Dinner ahead (upcoming).
	seedItem(store, "item-b", plan.ID, "Breakfast meds", models.ItemTypeMedication,
		rangeWindow("wb", "07:00", "07:30", models.WindowMorning))
	seedItem(store, "item-l", plan.ID, "Lunch meds", models.ItemTypeMedication,
		rangeWindow("wl", "11:30", "12:30", models.WindowAfternoon))
	seedItem(store, "item-d", plan.ID, "Dinner meds", models.ItemTypeMedication,
		rangeWindow("wd", "18:00", "18:30", models.WindowEvening))

	result := scheduleWith(t, store, 12*60)

	if len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(result.Entries))
	}
	wantOrder := []models.ScheduleStatus{
		models.StatusAvailableNow,
		models.StatusMissed,
		models.StatusUpcoming,
	}
	for i, want := range wantOrder {
		if result.Entries[i].Status != want {
			t.Errorf("entry %d: expected %s, got %s (%s)",
				i, want, result.Entries[i].Status, result.Entries[i].Title)
		}
	}
	if result.Entries[0].Title != "Lunch meds" {
		t.Errorf("actionable entry should lead, got %q", result.Entries[0].Title)
	}
}

func TestCompose_SecondarySortByStart(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-2", plan.ID, "Later", models.ItemTypeCustom,
		rangeWindow("w2", "14:00", "16:00", models.WindowAfternoon))
	seedItem(store, "item-1", plan.ID, "Earlier", models.ItemTypeCustom,
		rangeWindow("w1", "13:00", "16:00", models.WindowAfternoon))

	result := scheduleWith(t, store, 15*60)
	if result.Entries[0].Title != "Earlier" || result.Entries[1].Title != "Later" {
		t.Errorf("same-bucket entries should sort by start minute, got [%s %s]",
			result.Entries[0].Title, result.Entries[1].Title)
	}
}

func TestCompose_ConflictDetection(t *testing.T) {
	// Routine window [09:30, 10:30].
	cases := []struct {
		name      string
		startMin  int
		wantKind  models.ConflictKind
		wantCount int
	}{
		{"start inside window", 600, models.ConflictOverlap, 1},
		{"start shortly before window", 550, models.ConflictAdjacent, 1},
		{"start well before window", 400, "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			plan := seedPlan(store, "p1")
			seedItem(store, "item-1", plan.ID, "Morning meds", models.ItemTypeMedication,
				rangeWindow("w1", "09:30", "10:30", models.WindowMorning))
			seedAppointment(store, "appt-1", tc.startMin, tc.startMin+30, "Cardiology")

			result := scheduleWith(t, store, 8*60)
			if len(result.Conflicts) != tc.wantCount {
				t.Fatalf("expected %d conflicts, got %d", tc.wantCount, len(result.Conflicts))
			}
			if tc.wantCount > 0 {
				conflict := result.Conflicts[0]
				if conflict.Kind != tc.wantKind {
					t.Errorf("expected %s conflict, got %s", tc.wantKind, conflict.Kind)
				}
				if conflict.AppointmentID != "appt-1" || conflict.ItemID != "item-1" {
					t.Errorf("conflict references wrong records: %+v", conflict)
				}
				if conflict.Suggestion == "" {
					t.Error("conflict should carry a suggestion")
				}
			}
		})
	}
}

func TestCompose_CancelledAppointmentNoConflict(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Morning meds", models.ItemTypeMedication,
		rangeWindow("w1", "09:30", "10:30", models.WindowMorning))
	appt := seedAppointment(store, "appt-1", 600, 630, "Cardiology")
	appt.Cancelled = true
	store.appointments[appt.ID] = appt

	result := scheduleWith(t, store, 8*60)
	if len(result.Conflicts) != 0 {
		t.Errorf("cancelled appointments must not produce conflicts, got %d", len(result.Conflicts))
	}
	if got := entryStatus(t, result, "Cardiology"); got != models.StatusInfo {
		t.Errorf("cancelled appointment should render as info, got %s", got)
	}
}

func TestCompose_GroupedAndStats(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Lunch meds", models.ItemTypeMedication,
		rangeWindow("w1", "11:30", "12:30", models.WindowAfternoon))
	seedItem(store, "item-2", plan.ID, "Breakfast meds", models.ItemTypeMedication,
		rangeWindow("w2", "07:00", "07:30", models.WindowMorning))
	seedAppointment(store, "appt-1", 17*60, 18*60, "Physio")

	result := scheduleWith(t, store, 12*60)

	if result.Stats.Total != 3 {
		t.Errorf("expected 3 total entries, got %d", result.Stats.Total)
	}
	// Lunch is available_now, breakfast is missed.
	if result.Stats.Actionable != 2 {
		t.Errorf("expected 2 actionable entries, got %d", result.Stats.Actionable)
	}
	if result.Stats.RoutinesDone {
		t.Error("routines are not done")
	}
	if len(result.Grouped[models.StatusAvailableNow]) != 1 {
		t.Errorf("expected 1 available_now entry, got %d", len(result.Grouped[models.StatusAvailableNow]))
	}
	if len(result.Grouped[models.StatusUpcoming]) != 1 {
		t.Errorf("expected 1 upcoming entry (the appointment), got %d", len(result.Grouped[models.StatusUpcoming]))
	}
}

func TestCompose_RoutinesDone(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Lunch meds", models.ItemTypeMedication,
		rangeWindow("w1", "11:30", "12:30", models.WindowAfternoon))

	eng := New(store, WithClock(fixedClock(testDate, 12*60)))
	instances, err := eng.EnsureInstances("p1", testDate)
	if err != nil {
		t.Fatalf("EnsureInstances: %v", err)
	}
	if err := eng.Complete("p1", testDate, instances[0].ID, "log-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	result := scheduleWith(t, store, 12*60)
	if !result.Stats.RoutinesDone {
		t.Error("all routine entries completed, RoutinesDone should be true")
	}
}
