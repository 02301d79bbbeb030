package engine

import (
	"testing"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

const testDate = "2026-08-19"

// scheduleWith runs the pipeline with the clock pinned to minute on testDate.
func scheduleWith(t *testing.T, store *memStore, minute int) *models.ScheduleResult {
	t.Helper()
	eng := New(store, WithClock(fixedClock(testDate, minute)))
	result, err := eng.EnsureSchedule("p1", testDate)
	if err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	return result
}

func entryStatus(t *testing.T, result *models.ScheduleResult, title string) models.ScheduleStatus {
	t.Helper()
	for _, entry := range result.Entries {
		if entry.Title == title {
			return entry.Status
		}
	}
	t.Fatalf("no entry titled %q", title)
	return ""
}

func storedStatus(t *testing.T, store *memStore, date string) models.InstanceStatus {
	t.Helper()
	instances, _ := store.ListInstances("p1", date)
	if len(instances) != 1 {
		t.Fatalf("expected exactly 1 instance, got %d", len(instances))
	}
	return instances[0].Status
}

func walkStore() *memStore {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	// Window [16:00, 17:00]; grace from settings is 120 min, threshold 19:00.
	seedItem(store, "item-1", plan.ID, "Walk", models.ItemTypeActivity,
		rangeWindow("w1", "16:00", "17:00", models.WindowAfternoon))
	return store
}

func TestStatus_PendingJustBeforeMissedThreshold(t *testing.T) {
	store := walkStore()
	result := scheduleWith(t, store, 18*60+59)

	if got := storedStatus(t, store, testDate); got != models.InstancePending {
		t.Errorf("stored status at 18:59 should be pending, got %s", got)
	}
	if got := entryStatus(t, result, "Walk"); got != models.StatusAvailableNow {
		t.Errorf("presentation at 18:59 should be available_now, got %s", got)
	}
}

func TestStatus_MissedJustAfterThreshold(t *testing.T) {
	store := walkStore()
	result := scheduleWith(t, store, 19*60+1)

	if got := storedStatus(t, store, testDate); got != models.InstanceMissed {
		t.Errorf("stored status at 19:01 should be missed, got %s", got)
	}
	if got := entryStatus(t, result, "Walk"); got != models.StatusMissed {
		t.Errorf("presentation at 19:01 should be missed, got %s", got)
	}
}

func TestStatus_UpcomingBeforeWindow(t *testing.T) {
	store := walkStore()
	result := scheduleWith(t, store, 10*60)

	if got := entryStatus(t, result, "Walk"); got != models.StatusUpcoming {
		t.Errorf("presentation at 10:00 should be upcoming, got %s", got)
	}
}

func TestStatus_SnoozeIsPresentationOnly(t *testing.T) {
	store := walkStore()

	// Generate first, then snooze the (item, window) pair until 16:45.
	eng := New(store, WithClock(fixedClock(testDate, 16*60+10)))
	if _, err := eng.EnsureSchedule("p1", testDate); err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	if err := eng.Snooze("p1", testDate, "item-1", "w1", 35); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	result := scheduleWith(t, store, 16*60+20)
	if got := entryStatus(t, result, "Walk"); got != models.StatusSnoozed {
		t.Errorf("expected snoozed while override active, got %s", got)
	}
	if got := storedStatus(t, store, testDate); got != models.InstancePending {
		t.Errorf("snooze must not persist a status, stored is %s", got)
	}

	// Snooze expires at 16:45; by 16:50 the entry is actionable again.
	result = scheduleWith(t, store, 16*60+50)
	if got := entryStatus(t, result, "Walk"); got != models.StatusAvailableNow {
		t.Errorf("expected available_now after snooze expiry, got %s", got)
	}
}

func TestStatus_MonotonicTerminal(t *testing.T) {
	store := walkStore()
	eng := New(store, WithClock(fixedClock(testDate, 16*60)))
	instances, err := eng.EnsureInstances("p1", testDate)
	if err != nil {
		t.Fatalf("EnsureInstances: %v", err)
	}
	if err := eng.Complete("p1", testDate, instances[0].ID, "log-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Run the pipeline long past the missed threshold; completed must stick.
	result := scheduleWith(t, store, 23*60)
	if got := storedStatus(t, store, testDate); got != models.InstanceCompleted {
		t.Errorf("completed status must never regress, got %s", got)
	}
	if got := entryStatus(t, result, "Walk"); got != models.StatusCompleted {
		t.Errorf("presentation should be completed, got %s", got)
	}

	// A skip on a completed instance is a no-op.
	if err := eng.Skip("p1", testDate, instances[0].ID); err != nil {
		t.Fatalf("Skip on terminal instance should not error: %v", err)
	}
	if got := storedStatus(t, store, testDate); got != models.InstanceCompleted {
		t.Errorf("skip after completion must not change status, got %s", got)
	}
}

func TestStatus_MissedStillCompletable(t *testing.T) {
	store := walkStore()
	result := scheduleWith(t, store, 20*60)
	if got := entryStatus(t, result, "Walk"); got != models.StatusMissed {
		t.Fatalf("expected missed at 20:00, got %s", got)
	}

	instances, _ := store.ListInstances("p1", testDate)
	eng := New(store, WithClock(fixedClock(testDate, 20*60+5)))
	if err := eng.Complete("p1", testDate, instances[0].ID, "log-late"); err != nil {
		t.Fatalf("late completion: %v", err)
	}
	if got := storedStatus(t, store, testDate); got != models.InstanceCompleted {
		t.Errorf("missed instance should accept a late completion, got %s", got)
	}
}

func TestStatus_FutureDateIsUpcoming(t *testing.T) {
	store := walkStore()
	// Clock is the day before the target date.
	eng := New(store, WithClock(fixedClock("2026-08-18", 20*60)))
	result, err := eng.EnsureSchedule("p1", testDate)
	if err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	if got := entryStatus(t, result, "Walk"); got != models.StatusUpcoming {
		t.Errorf("future date entries should be upcoming, got %s", got)
	}
	if got := storedStatus(t, store, testDate); got != models.InstancePending {
		t.Errorf("future date entries must stay pending, got %s", got)
	}
}

func TestStatus_PastDateIsMissed(t *testing.T) {
	store := walkStore()
	eng := New(store, WithClock(fixedClock("2026-08-20", 8*60)))
	result, err := eng.EnsureSchedule("p1", testDate)
	if err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	if got := entryStatus(t, result, "Walk"); got != models.StatusMissed {
		t.Errorf("past date pending entries should be missed, got %s", got)
	}
}
