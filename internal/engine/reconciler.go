package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// Canonical always-on wellness pair. Created once when no wellness item
// exists; legacy names are renamed in place rather than duplicated.
var wellnessDefaults = []struct {
	name      string
	legacy    []string
	windowAt  string
	windowTag models.WindowLabel
}{
	{
		name:      "Morning wellness check",
		legacy:    []string{"Morning check-in", "AM check"},
		windowAt:  "08:30",
		windowTag: models.WindowMorning,
	},
	{
		name:      "Evening reflection",
		legacy:    []string{"Evening check-in", "PM check"},
		windowAt:  "20:30",
		windowTag: models.WindowEvening,
	},
}

// syncCatalogWithConfig brings the plan catalog in line with the external
// regimen config. Enabled entries with no catalog counterpart are created;
// catalog items whose entry disappeared are deactivated, never deleted, so
// historical instances keep resolving. Idempotent.
func (e *Engine) syncCatalogWithConfig(patientID string) (bool, error) {
	if e.config == nil {
		return false, nil
	}

	snapshot, err := e.config.Snapshot()
	if err != nil {
		return false, fmt.Errorf("reading regimen config: %w", err)
	}

	plan, err := e.store.GetActivePlan(patientID)
	if err != nil {
		return false, fmt.Errorf("loading plan: %w", err)
	}
	changed := false
	if plan == nil {
		plan = &models.CarePlan{
			ID:        uuid.NewString(),
			PatientID: patientID,
			Name:      "Care plan",
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if err := e.store.SavePlan(*plan); err != nil {
			return false, fmt.Errorf("creating plan: %w", err)
		}
		changed = true
	}

	items, err := e.store.ListItems(plan.ID, false)
	if err != nil {
		return changed, fmt.Errorf("loading items: %w", err)
	}

	matched := make(map[string]bool) // item ids claimed by an enabled entry

	for _, entry := range snapshot.Entries {
		item, ok := findMatch(items, entry)
		if !ok {
			newItem := itemFromEntry(plan.ID, entry)
			if err := e.store.UpsertItem(newItem); err != nil {
				return changed, fmt.Errorf("creating item %q: %w", entry.Name, err)
			}
			items = append(items, newItem)
			matched[newItem.ID] = true
			changed = true
			logger.Info("catalog item created from config", "name", entry.Name)
			continue
		}

		matched[item.ID] = true
		dirty := false
		if !item.Active {
			item.Active = true
			dirty = true
		}
		// Stamp the external id on fuzzy matches so the next pass matches
		// exactly.
		if item.ExternalID == "" && entry.ID != "" {
			item.ExternalID = entry.ID
			dirty = true
		}
		if dirty {
			item.UpdatedAt = time.Now().UTC()
			if err := e.store.UpsertItem(item); err != nil {
				return changed, fmt.Errorf("updating item %q: %w", item.Name, err)
			}
			replaceItem(items, item)
			changed = true
		}
	}

	// Config-owned items with no enabled counterpart get deactivated. Only
	// items stamped with an external id are config-owned; hand-created items
	// and the wellness pair carry none and are never touched here.
	for _, item := range items {
		if item.ExternalID == "" || !item.Active || matched[item.ID] {
			continue
		}
		item.Active = false
		item.UpdatedAt = time.Now().UTC()
		if err := e.store.UpsertItem(item); err != nil {
			return changed, fmt.Errorf("deactivating item %q: %w", item.Name, err)
		}
		replaceItem(items, item)
		changed = true
		logger.Info("catalog item deactivated, no longer in config", "name", item.Name)
	}

	wellnessChanged, err := e.ensureWellnessPair(plan.ID, items, snapshot)
	if err != nil {
		return changed, err
	}

	return changed || wellnessChanged, nil
}

// findMatch locates the catalog item for a config entry: exact external id
// first, then case-insensitive name containment in either direction.
func findMatch(items []models.PlanItem, entry ExternalEntry) (models.PlanItem, bool) {
	if entry.ID != "" {
		for _, item := range items {
			if item.ExternalID == entry.ID {
				return item, true
			}
		}
	}
	entryName := strings.ToLower(strings.TrimSpace(entry.Name))
	if entryName == "" {
		return models.PlanItem{}, false
	}
	for _, item := range items {
		if item.Type != entry.Type {
			continue
		}
		itemName := strings.ToLower(strings.TrimSpace(item.Name))
		if strings.Contains(itemName, entryName) || strings.Contains(entryName, itemName) {
			return item, true
		}
	}
	return models.PlanItem{}, false
}

func replaceItem(items []models.PlanItem, updated models.PlanItem) {
	for i := range items {
		if items[i].ID == updated.ID {
			items[i] = updated
			return
		}
	}
}

// itemFromEntry builds a catalog item from a config entry, one exact window
// per configured time.
func itemFromEntry(planID string, entry ExternalEntry) models.PlanItem {
	now := time.Now().UTC()
	freq := models.FrequencyDaily
	if len(entry.Weekdays) > 0 {
		freq = models.FrequencyWeekly
	}

	times := entry.Times
	if len(times) == 0 {
		times = []string{"08:00"}
	}
	windows := make([]models.TimeWindow, 0, len(times))
	for _, at := range times {
		windows = append(windows, models.TimeWindow{
			ID:    uuid.NewString(),
			Label: labelForClock(at),
			At:    at,
		})
	}

	itemType := entry.Type
	if !itemType.Valid() {
		itemType = models.ItemTypeCustom
	}

	return models.PlanItem{
		ID:         uuid.NewString(),
		PlanID:     planID,
		ExternalID: entry.ID,
		Type:       itemType,
		Name:       entry.Name,
		Detail:     entry.Detail,
		Priority:   2,
		Active:     true,
		Schedule: models.Schedule{
			Frequency: freq,
			Weekdays:  entry.Weekdays,
			Windows:   windows,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// labelForClock buckets a clock time into a coarse window label.
func labelForClock(at string) models.WindowLabel {
	min, err := timeutil.ParseClock(at)
	if err != nil {
		return models.WindowCustom
	}
	switch {
	case min < 11*60:
		return models.WindowMorning
	case min < 17*60:
		return models.WindowAfternoon
	case min < 21*60:
		return models.WindowEvening
	default:
		return models.WindowNight
	}
}

// ensureWellnessPair creates the canonical wellness items once. If any
// wellness item already exists, nothing is created; legacy names are renamed
// in place instead of duplicated. A disabled wellness trackable suppresses
// creation entirely.
func (e *Engine) ensureWellnessPair(planID string, items []models.PlanItem, snapshot ConfigSnapshot) (bool, error) {
	if snapshot.Trackables != nil {
		if enabled, ok := snapshot.Trackables[models.ItemTypeWellness]; ok && !enabled {
			return false, nil
		}
	}

	changed := false
	haveWellness := false
	for _, item := range items {
		if item.Type != models.ItemTypeWellness {
			continue
		}
		haveWellness = true
		for _, def := range wellnessDefaults {
			for _, legacy := range def.legacy {
				if item.Name == legacy {
					item.Name = def.name
					item.UpdatedAt = time.Now().UTC()
					if err := e.store.UpsertItem(item); err != nil {
						return changed, fmt.Errorf("renaming wellness item: %w", err)
					}
					replaceItem(items, item)
					changed = true
				}
			}
		}
	}
	if haveWellness {
		return changed, nil
	}

	for _, def := range wellnessDefaults {
		now := time.Now().UTC()
		item := models.PlanItem{
			ID:       uuid.NewString(),
			PlanID:   planID,
			Type:     models.ItemTypeWellness,
			Name:     def.name,
			Priority: 3,
			Active:   true,
			Schedule: models.Schedule{
				Frequency: models.FrequencyDaily,
				Windows: []models.TimeWindow{{
					ID:    uuid.NewString(),
					Label: def.windowTag,
					At:    def.windowAt,
				}},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.store.UpsertItem(item); err != nil {
			return changed, fmt.Errorf("creating wellness item: %w", err)
		}
		changed = true
		logger.Info("created default wellness item", "name", def.name)
	}

	return changed, nil
}
