package engine

import (
	"fmt"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// dayPosition relates the target date to the current wall clock, yielding the
// effective "minute of day" used for status derivation: past days are fully
// elapsed, future days have not started.
func (e *Engine) dayPosition(date string) int {
	now := e.now()
	today := timeutil.FormatDate(now)
	switch {
	case date < today:
		// Far past any window-end-plus-grace threshold.
		return 48 * 60
	case date > today:
		return -1
	default:
		return timeutil.MinuteOfDay(now)
	}
}

// deriveStatuses computes the presentation status of every instance and
// persists the missed transition when a pending, unlogged instance is past
// its window end plus the grace period. Snoozed is never persisted.
func (e *Engine) deriveStatuses(patientID, date string, instances []models.DailyInstance, overrides []models.Override, items map[string]models.PlanItem) (map[string]models.ScheduleStatus, error) {
	nowMin := e.dayPosition(date)
	grace := e.graceMinutes()

	snoozed := make(map[string]bool)
	for _, o := range overrides {
		if o.ActiveAt(date, nowMin) {
			snoozed[o.ItemID+"|"+o.WindowID] = true
		}
	}

	statuses := make(map[string]models.ScheduleStatus, len(instances))
	for _, inst := range instances {
		status, persistMissed := deriveOne(inst, items, snoozed, nowMin, grace)
		if persistMissed {
			if err := e.store.UpdateInstanceStatus(patientID, date, inst.ID, models.InstanceMissed, ""); err != nil {
				return nil, fmt.Errorf("marking instance missed: %w", err)
			}
			logger.Debug("instance missed", "instance", inst.ID, "scheduled", timeutil.FormatClock(inst.ScheduledMin))
		}
		statuses[inst.ID] = status
	}
	return statuses, nil
}

// deriveOne maps a single instance to its presentation status. The second
// return reports whether the pending→missed transition must be persisted.
func deriveOne(inst models.DailyInstance, items map[string]models.PlanItem, snoozed map[string]bool, nowMin, grace int) (models.ScheduleStatus, bool) {
	switch inst.Status {
	case models.InstanceCompleted, models.InstanceSkipped:
		return models.StatusCompleted, false
	case models.InstanceMissed:
		return models.StatusMissed, false
	case models.InstancePending:
		// fallthrough to time derivation below
	default:
		return models.StatusInfo, false
	}

	if inst.Logged() {
		// A completion event exists but the status write has not landed yet;
		// present it as done rather than nagging.
		return models.StatusCompleted, false
	}

	if snoozed[inst.Key()] {
		return models.StatusSnoozed, false
	}

	start, end := instanceBounds(inst, items)
	if nowMin > end+grace {
		return models.StatusMissed, true
	}
	if nowMin < start {
		return models.StatusUpcoming, false
	}
	return models.StatusAvailableNow, false
}

// instanceBounds resolves the instance's window to [start, end] minutes.
// Instances whose item or window is gone fall back to the scheduled minute
// recorded at generation time.
func instanceBounds(inst models.DailyInstance, items map[string]models.PlanItem) (int, int) {
	item, ok := items[inst.ItemID]
	if !ok {
		return inst.ScheduledMin, inst.ScheduledMin
	}
	window, ok := item.Window(inst.WindowID)
	if !ok {
		return inst.ScheduledMin, inst.ScheduledMin
	}
	return window.StartMin(), window.EndMin()
}
