package validation

import (
	"fmt"
	"strings"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// ConflictType classifies a catalog validation finding.
type ConflictType string

const (
	ConflictDuplicateName      ConflictType = "duplicate_name"
	ConflictInvalidTime        ConflictType = "invalid_time"
	ConflictInvalidType        ConflictType = "invalid_type"
	ConflictInvalidPriority    ConflictType = "invalid_priority"
	ConflictInvalidDate        ConflictType = "invalid_date"
	ConflictNoWindows          ConflictType = "no_windows"
	ConflictOverlappingWindows ConflictType = "overlapping_windows"
)

// Conflict is one finding against a plan item.
type Conflict struct {
	Type    ConflictType
	ItemID  string
	Message string
}

// Result collects all findings for a catalog pass.
type Result struct {
	Conflicts []Conflict
}

func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

func (r *Result) add(t ConflictType, itemID, format string, args ...interface{}) {
	r.Conflicts = append(r.Conflicts, Conflict{
		Type:    t,
		ItemID:  itemID,
		Message: fmt.Sprintf(format, args...),
	})
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateItems checks a plan catalog for definition problems: duplicate
// names, malformed times or dates, out-of-range priorities, unknown types,
// and windows that overlap within one item. Inactive items are skipped.
func (v *Validator) ValidateItems(items []models.PlanItem) *Result {
	result := &Result{}

	seen := make(map[string]string) // lowercased name -> first item id
	for _, item := range items {
		if !item.Active {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(item.Name))
		if firstID, ok := seen[name]; ok {
			result.add(ConflictDuplicateName, item.ID,
				"item %q duplicates the name of item %s", item.Name, firstID)
		} else {
			seen[name] = item.ID
		}

		if !item.Type.Valid() {
			result.add(ConflictInvalidType, item.ID,
				"item %q has unknown type %q", item.Name, item.Type)
		}
		if item.Priority < 1 || item.Priority > 5 {
			result.add(ConflictInvalidPriority, item.ID,
				"item %q has priority %d, expected 1-5", item.Name, item.Priority)
		}

		for _, skip := range item.Schedule.SkipDates {
			if _, err := timeutil.ParseDate(skip); err != nil {
				result.add(ConflictInvalidDate, item.ID,
					"item %q has malformed skip date %q", item.Name, skip)
			}
		}

		v.validateWindows(result, item)
	}

	return result
}

func (v *Validator) validateWindows(result *Result, item models.PlanItem) {
	windows := item.Schedule.Windows
	if len(windows) == 0 {
		result.add(ConflictNoWindows, item.ID,
			"item %q has no time windows and will never generate", item.Name)
		return
	}

	for _, w := range windows {
		for _, clock := range []string{w.At, w.Start, w.End} {
			if clock == "" {
				continue
			}
			if _, err := timeutil.ParseClock(clock); err != nil {
				result.add(ConflictInvalidTime, item.ID,
					"item %q window %s has malformed time %q", item.Name, w.ID, clock)
			}
		}
	}

	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if a.StartMin() <= b.EndMin() && b.StartMin() <= a.EndMin() {
				result.add(ConflictOverlappingWindows, item.ID,
					"item %q windows %s and %s overlap", item.Name, a.ID, b.ID)
			}
		}
	}
}

// FormatReport renders the result for terminal output.
func FormatReport(result *Result) string {
	if !result.HasConflicts() {
		return "No problems found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d problem(s):\n", len(result.Conflicts))
	for _, c := range result.Conflicts {
		fmt.Fprintf(&b, "  [%s] %s\n", c.Type, c.Message)
	}
	return b.String()
}
