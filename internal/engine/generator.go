package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// ensureInstancesLocked expands active plan items into instances for the date.
// Caller holds the (patientID, date) lock. Existing instances are never
// rewritten; only missing (item, window) keys are created, so repeated calls
// converge on the same set and logged completions survive.
func (e *Engine) ensureInstancesLocked(patientID, date string) ([]models.DailyInstance, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, err
	}

	plan, err := e.store.GetActivePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	if plan == nil {
		return nil, nil
	}

	items, err := e.store.ListItems(plan.ID, true)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	existing, err := e.store.ListInstances(patientID, date)
	if err != nil {
		return nil, fmt.Errorf("loading instances: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, inst := range existing {
		have[inst.Key()] = true
	}

	var created []models.DailyInstance
	for _, item := range items {
		if !item.ShouldGenerateOn(day) {
			continue
		}
		for _, window := range item.Schedule.Windows {
			inst := models.DailyInstance{
				ItemID:   item.ID,
				WindowID: window.ID,
			}
			if have[inst.Key()] {
				continue
			}
			inst.ID = uuid.NewString()
			inst.PatientID = patientID
			inst.Date = date
			inst.ScheduledMin = window.StartMin()
			inst.Status = models.InstancePending
			inst.Snapshot = item.Snapshot()
			inst.CreatedAt = time.Now().UTC()
			created = append(created, inst)
			have[inst.Key()] = true
		}
	}

	if len(created) > 0 {
		if err := e.store.UpsertInstances(patientID, date, created); err != nil {
			return nil, fmt.Errorf("persisting instances: %w", err)
		}
		logger.Debug("generated instances", "date", date, "count", len(created))
	}

	all := append(existing, created...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ScheduledMin < all[j].ScheduledMin
	})
	return all, nil
}
