package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/backup"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/constants"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/engine"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
)

type Context struct {
	Store  storage.Provider
	Engine *engine.Engine
	Debug  bool
}

// PatientID resolves the configured patient, falling back to the default.
func (c *Context) PatientID() string {
	settings, err := c.Store.GetSettings()
	if err != nil || settings.PatientID == "" {
		return constants.DefaultPatientID
	}
	return settings.PatientID
}

// ActivePlan returns the patient's active plan or an error suitable for
// direct display.
func (c *Context) ActivePlan() (*models.CarePlan, error) {
	plan, err := c.Store.GetActivePlan(c.PatientID())
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("no active care plan; run 'embermate sync' or 'embermate item add' first")
	}
	return plan, nil
}

// FindInstance resolves an instance by id prefix for a date. Ambiguous or
// unknown prefixes are errors.
func (c *Context) FindInstance(patientID, date, prefix string) (models.DailyInstance, error) {
	instances, err := c.Store.ListInstances(patientID, date)
	if err != nil {
		return models.DailyInstance{}, err
	}
	var matches []models.DailyInstance
	for _, inst := range instances {
		if strings.HasPrefix(inst.ID, prefix) {
			matches = append(matches, inst)
		}
	}
	switch len(matches) {
	case 0:
		return models.DailyInstance{}, fmt.Errorf("no instance matching %q on %s", prefix, date)
	case 1:
		return matches[0], nil
	default:
		return models.DailyInstance{}, fmt.Errorf("%q matches %d instances, use a longer prefix", prefix, len(matches))
	}
}

// PerformAutomaticBackup snapshots the data file without interrupting the
// user's workflow on failure.
func (c *Context) PerformAutomaticBackup() {
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		logger.Warn("automatic backup failed", "err", err)
	}
}

var dayMap = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseWeekdays parses a comma-separated list of weekday names or numbers
// (0=Sunday, 6=Saturday).
func parseWeekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		num, err := strconv.Atoi(part)
		if err == nil && num >= 0 && num <= 6 {
			weekdays = append(weekdays, time.Weekday(num))
		} else {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
	}
	return weekdays, nil
}

// formatSchedule renders a Schedule for list output.
func formatSchedule(s models.Schedule) string {
	switch s.Frequency {
	case models.FrequencyDaily:
		return "daily"
	case models.FrequencyWeekly:
		if len(s.Weekdays) == 0 {
			return "weekly (every day)"
		}
		var days []string
		for _, wd := range s.Weekdays {
			days = append(days, wd.String()[:3])
		}
		return "weekly on " + strings.Join(days, ",")
	default:
		return string(s.Frequency)
	}
}

// statusLabel maps a schedule status to its display tag.
func statusLabel(s models.ScheduleStatus) string {
	switch s {
	case models.StatusAvailableNow:
		return "[now]"
	case models.StatusMissed:
		return "[missed]"
	case models.StatusUpcoming:
		return "[upcoming]"
	case models.StatusSnoozed:
		return "[snoozed]"
	case models.StatusInfo:
		return "[info]"
	case models.StatusCompleted:
		return "[done]"
	default:
		return "[?]"
	}
}
