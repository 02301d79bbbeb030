package validation

import (
	"strings"
	"testing"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

func validItem(id, name string) models.PlanItem {
	return models.PlanItem{
		ID:       id,
		PlanID:   "plan-1",
		Type:     models.ItemTypeMedication,
		Name:     name,
		Priority: 2,
		Active:   true,
		Schedule: models.Schedule{
			Frequency: models.FrequencyDaily,
			Windows: []models.TimeWindow{
				{ID: "w1", Label: models.WindowMorning, At: "08:00"},
			},
		},
	}
}

func findConflict(result *Result, t ConflictType) *Conflict {
	for i := range result.Conflicts {
		if result.Conflicts[i].Type == t {
			return &result.Conflicts[i]
		}
	}
	return nil
}

func TestValidateItems_CleanCatalog(t *testing.T) {
	result := New().ValidateItems([]models.PlanItem{
		validItem("item-1", "Aspirin"),
		validItem("item-2", "Metformin"),
	})
	if result.HasConflicts() {
		t.Errorf("clean catalog reported conflicts: %+v", result.Conflicts)
	}
}

func TestValidateItems_DuplicateName(t *testing.T) {
	items := []models.PlanItem{
		validItem("item-1", "Aspirin"),
		validItem("item-2", "  aspirin "),
	}
	result := New().ValidateItems(items)

	c := findConflict(result, ConflictDuplicateName)
	if c == nil {
		t.Fatal("expected a duplicate_name conflict")
	}
	if c.ItemID != "item-2" {
		t.Errorf("conflict should name the later item, got %s", c.ItemID)
	}
}

func TestValidateItems_MalformedTime(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Schedule.Windows = []models.TimeWindow{
		{ID: "w1", Label: models.WindowMorning, At: "25:00"},
	}
	result := New().ValidateItems([]models.PlanItem{item})

	if findConflict(result, ConflictInvalidTime) == nil {
		t.Errorf("expected an invalid_time conflict, got %+v", result.Conflicts)
	}
}

func TestValidateItems_MalformedSkipDate(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Schedule.SkipDates = []string{"08/19/2026"}
	result := New().ValidateItems([]models.PlanItem{item})

	if findConflict(result, ConflictInvalidDate) == nil {
		t.Errorf("expected an invalid_date conflict, got %+v", result.Conflicts)
	}
}

func TestValidateItems_InvalidTypeAndPriority(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Type = "potion"
	item.Priority = 9
	result := New().ValidateItems([]models.PlanItem{item})

	if findConflict(result, ConflictInvalidType) == nil {
		t.Error("expected an invalid_type conflict")
	}
	if findConflict(result, ConflictInvalidPriority) == nil {
		t.Error("expected an invalid_priority conflict")
	}
}

func TestValidateItems_NoWindows(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Schedule.Windows = nil
	result := New().ValidateItems([]models.PlanItem{item})

	if findConflict(result, ConflictNoWindows) == nil {
		t.Errorf("expected a no_windows conflict, got %+v", result.Conflicts)
	}
}

func TestValidateItems_OverlappingWindows(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Schedule.Windows = []models.TimeWindow{
		{ID: "w1", Label: models.WindowMorning, Start: "08:00", End: "09:00"},
		{ID: "w2", Label: models.WindowMorning, Start: "08:30", End: "10:00"},
	}
	result := New().ValidateItems([]models.PlanItem{item})

	if findConflict(result, ConflictOverlappingWindows) == nil {
		t.Errorf("expected an overlapping_windows conflict, got %+v", result.Conflicts)
	}

	// Disjoint windows are fine.
	item.Schedule.Windows[1].Start = "10:00"
	item.Schedule.Windows[1].End = "11:00"
	result = New().ValidateItems([]models.PlanItem{item})
	if result.HasConflicts() {
		t.Errorf("disjoint windows reported conflicts: %+v", result.Conflicts)
	}
}

func TestValidateItems_SkipsInactive(t *testing.T) {
	item := validItem("item-1", "Aspirin")
	item.Active = false
	item.Schedule.Windows = nil
	result := New().ValidateItems([]models.PlanItem{item})

	if result.HasConflicts() {
		t.Errorf("inactive items should be skipped, got %+v", result.Conflicts)
	}
}

func TestFormatReport(t *testing.T) {
	clean := &Result{}
	if got := FormatReport(clean); got != "No problems found." {
		t.Errorf("clean report = %q", got)
	}

	result := New().ValidateItems([]models.PlanItem{
		validItem("item-1", "Aspirin"),
		validItem("item-2", "Aspirin"),
	})
	report := FormatReport(result)
	if !strings.Contains(report, "duplicate_name") {
		t.Errorf("report should name the conflict type:\n%s", report)
	}
}
