package engine

import (
	"fmt"
	"sort"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/constants"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// composeSchedule merges derived instances and appointments into one sorted,
// conflict-annotated timeline. Pure presentation: nothing here is persisted.
func (e *Engine) composeSchedule(patientID, date string, instances []models.DailyInstance, statuses map[string]models.ScheduleStatus, items map[string]models.PlanItem, appts []models.Appointment) *models.ScheduleResult {
	nowMin := e.dayPosition(date)

	entries := make([]models.ScheduleEntry, 0, len(instances)+len(appts))
	for _, inst := range instances {
		start, end := instanceBounds(inst, items)
		entries = append(entries, models.ScheduleEntry{
			Kind:       models.EntryRoutine,
			InstanceID: inst.ID,
			ItemID:     inst.ItemID,
			WindowID:   inst.WindowID,
			Title:      inst.Snapshot.Name,
			Detail:     inst.Snapshot.Detail,
			ItemType:   inst.Snapshot.Type,
			Priority:   inst.Snapshot.Priority,
			Status:     statuses[inst.ID],
			StartMin:   start,
			EndMin:     end,
		})
	}
	for _, a := range appts {
		entries = append(entries, models.ScheduleEntry{
			Kind:          models.EntryAppointment,
			AppointmentID: a.ID,
			Title:         a.Title,
			Detail:        a.Location,
			Status:        appointmentStatus(a, nowMin),
			StartMin:      a.StartMin,
			EndMin:        a.EndMin,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		bi, bj := entries[i].Status.SortBucket(), entries[j].Status.SortBucket()
		if bi != bj {
			return bi < bj
		}
		return entries[i].StartMin < entries[j].StartMin
	})

	conflicts := detectConflicts(appts, items)

	grouped := make(map[models.ScheduleStatus][]models.ScheduleEntry)
	stats := models.ScheduleStats{Total: len(entries), ConflictsFound: len(conflicts)}
	routinesDone := true
	for _, entry := range entries {
		grouped[entry.Status] = append(grouped[entry.Status], entry)
		if entry.Status == models.StatusAvailableNow || entry.Status == models.StatusMissed {
			stats.Actionable++
		}
		if entry.Kind == models.EntryRoutine && entry.Status != models.StatusCompleted {
			routinesDone = false
		}
	}
	stats.RoutinesDone = routinesDone

	return &models.ScheduleResult{
		PatientID: patientID,
		Date:      date,
		Entries:   entries,
		Grouped:   grouped,
		Conflicts: conflicts,
		Stats:     stats,
	}
}

// appointmentStatus derives an appointment's presentation status. Appointments
// have no grace period; a past, uncompleted one is simply missed. Cancelled
// ones stay visible as informational entries.
func appointmentStatus(a models.Appointment, nowMin int) models.ScheduleStatus {
	switch {
	case a.Cancelled:
		return models.StatusInfo
	case a.Completed:
		return models.StatusCompleted
	case nowMin < a.StartMin:
		return models.StatusUpcoming
	case nowMin <= a.EndMin:
		return models.StatusAvailableNow
	default:
		return models.StatusMissed
	}
}

// detectConflicts flags appointments that collide with active routine
// windows: overlap when the appointment starts inside a window, adjacent when
// it starts within the adjacency margin before the window opens.
func detectConflicts(appts []models.Appointment, items map[string]models.PlanItem) []models.Conflict {
	var conflicts []models.Conflict
	for _, a := range appts {
		if a.Cancelled {
			continue
		}
		for _, item := range items {
			if !item.Active {
				continue
			}
			for _, window := range item.Schedule.Windows {
				start, end := window.StartMin(), window.EndMin()
				switch {
				case a.StartMin >= start && a.StartMin <= end:
					conflicts = append(conflicts, models.Conflict{
						Kind:          models.ConflictOverlap,
						AppointmentID: a.ID,
						ItemID:        item.ID,
						WindowID:      window.ID,
						Suggestion: fmt.Sprintf("%q overlaps the %s window for %q; plan to handle it before leaving or after returning",
							a.Title, timeutil.FormatClock(start), item.Name),
					})
				case a.StartMin >= start-constants.AdjacencyWindowMin && a.StartMin < start:
					conflicts = append(conflicts, models.Conflict{
						Kind:          models.ConflictAdjacent,
						AppointmentID: a.ID,
						ItemID:        item.ID,
						WindowID:      window.ID,
						Suggestion: fmt.Sprintf("%q starts shortly before the %s window for %q; routine tasks may need to shift",
							a.Title, timeutil.FormatClock(start), item.Name),
					})
				}
			}
		}
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].AppointmentID != conflicts[j].AppointmentID {
			return conflicts[i].AppointmentID < conflicts[j].AppointmentID
		}
		return conflicts[i].ItemID < conflicts[j].ItemID
	})
	return conflicts
}
