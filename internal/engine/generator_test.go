package engine

import (
	"testing"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

func TestEnsureInstances_NoPlan(t *testing.T) {
	store := newMemStore()
	eng := New(store)

	instances, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("expected no instances without a plan, got %d", len(instances))
	}
}

func TestEnsureInstances_CreatesOnePerWindow(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		exactWindow("w1", "08:00"), exactWindow("w2", "20:00"))
	eng := New(store)

	instances, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}
	if instances[0].ScheduledMin != 480 || instances[1].ScheduledMin != 1200 {
		t.Errorf("expected scheduled minutes [480 1200], got [%d %d]",
			instances[0].ScheduledMin, instances[1].ScheduledMin)
	}
	for _, inst := range instances {
		if inst.Status != models.InstancePending {
			t.Errorf("new instance should be pending, got %s", inst.Status)
		}
		if inst.Snapshot.Name != "Aspirin" {
			t.Errorf("snapshot name not copied, got %q", inst.Snapshot.Name)
		}
	}
}

func TestEnsureInstances_Idempotent(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		exactWindow("w1", "08:00"), exactWindow("w2", "20:00"))
	eng := New(store)

	first, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("instance count changed: %d then %d", len(first), len(second))
	}
	firstIDs := make(map[string]models.InstanceStatus)
	for _, inst := range first {
		firstIDs[inst.ID] = inst.Status
	}
	for _, inst := range second {
		status, ok := firstIDs[inst.ID]
		if !ok {
			t.Errorf("second call produced new instance %s", inst.ID)
		}
		if status != inst.Status {
			t.Errorf("instance %s status changed from %s to %s", inst.ID, status, inst.Status)
		}
	}
}

func TestEnsureInstances_UniquenessInvariant(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		exactWindow("w1", "08:00"), exactWindow("w2", "20:00"))
	seedItem(store, "item-2", plan.ID, "Walk", models.ItemTypeActivity,
		rangeWindow("w3", "10:00", "11:00", models.WindowMorning))
	eng := New(store)

	// Multiple passes must never produce duplicate (item, window) keys.
	for i := 0; i < 3; i++ {
		if _, err := eng.EnsureInstances("p1", "2026-08-19"); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	instances, _ := store.ListInstances("p1", "2026-08-19")
	seen := make(map[string]bool)
	for _, inst := range instances {
		if seen[inst.Key()] {
			t.Errorf("duplicate instance for key %s", inst.Key())
		}
		seen[inst.Key()] = true
	}
	if len(instances) != 3 {
		t.Errorf("expected 3 instances, got %d", len(instances))
	}
}

func TestEnsureInstances_WeekdayFilter(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	item := seedItem(store, "item-1", plan.ID, "Physio", models.ItemTypeActivity,
		exactWindow("w1", "09:00"))
	item.Schedule.Frequency = models.FrequencyWeekly
	item.Schedule.Weekdays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	store.items[item.ID] = item
	eng := New(store)

	// 2026-08-18 is a Tuesday, 2026-08-19 a Wednesday.
	tue, err := eng.EnsureInstances("p1", "2026-08-18")
	if err != nil {
		t.Fatalf("tuesday: %v", err)
	}
	if len(tue) != 0 {
		t.Errorf("expected 0 instances on Tuesday, got %d", len(tue))
	}

	wed, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("wednesday: %v", err)
	}
	if len(wed) != 1 {
		t.Errorf("expected 1 instance on Wednesday, got %d", len(wed))
	}
}

func TestEnsureInstances_SkipDates(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	item := seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		exactWindow("w1", "08:00"))
	item.Schedule.SkipDates = []string{"2026-08-19"}
	store.items[item.ID] = item
	eng := New(store)

	instances, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("expected skip date to suppress generation, got %d instances", len(instances))
	}
}

func TestEnsureInstances_MalformedTimeFallsBack(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		models.TimeWindow{ID: "w1", Label: models.WindowEvening, At: "not-a-time"})
	eng := New(store)

	instances, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("malformed time must not fail the batch: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(instances))
	}
	if instances[0].ScheduledMin != models.WindowEvening.DefaultStartMin() {
		t.Errorf("expected evening default %d, got %d",
			models.WindowEvening.DefaultStartMin(), instances[0].ScheduledMin)
	}
}

func TestEnsureInstances_InactiveItemsIgnored(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	item := seedItem(store, "item-1", plan.ID, "Old med", models.ItemTypeMedication,
		exactWindow("w1", "08:00"))
	item.Active = false
	store.items[item.ID] = item
	eng := New(store)

	instances, err := eng.EnsureInstances("p1", "2026-08-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("inactive items must not generate, got %d instances", len(instances))
	}
}

func TestEnsureInstances_StoreFailurePropagates(t *testing.T) {
	store := newMemStore()
	plan := seedPlan(store, "p1")
	seedItem(store, "item-1", plan.ID, "Aspirin", models.ItemTypeMedication,
		exactWindow("w1", "08:00"))
	store.failInstanceWrites = true
	eng := New(store)

	if _, err := eng.EnsureInstances("p1", "2026-08-19"); err == nil {
		t.Fatal("expected persistence failure to propagate")
	}
}
