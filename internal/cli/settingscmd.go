package cli

import (
	"fmt"
	"strconv"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(ctx *Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}

	fmt.Println("Settings:")
	fmt.Printf("  patient-id:            %s\n", settings.PatientID)
	fmt.Printf("  patient-name:          %s\n", settings.PatientName)
	fmt.Printf("  day-start:             %s\n", settings.DayStart)
	fmt.Printf("  day-end:               %s\n", settings.DayEnd)
	fmt.Printf("  grace-period-min:      %d\n", settings.GracePeriodMin)
	fmt.Printf("  notifications-enabled: %t\n", settings.NotificationsEnabled)
	fmt.Printf("  timezone:              %s\n", settings.Timezone)
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key (patient-id|patient-name|day-start|day-end|grace-period-min|notifications-enabled|timezone)."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(ctx *Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}

	switch c.Key {
	case "patient-id":
		settings.PatientID = c.Value
	case "patient-name":
		settings.PatientName = c.Value
	case "day-start":
		if _, err := timeutil.ParseClock(c.Value); err != nil {
			return err
		}
		settings.DayStart = c.Value
	case "day-end":
		if _, err := timeutil.ParseClock(c.Value); err != nil {
			return err
		}
		settings.DayEnd = c.Value
	case "grace-period-min":
		n, err := strconv.Atoi(c.Value)
		if err != nil || n < 0 {
			return fmt.Errorf("grace-period-min must be a non-negative integer")
		}
		settings.GracePeriodMin = n
	case "notifications-enabled":
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return fmt.Errorf("notifications-enabled must be true or false")
		}
		settings.NotificationsEnabled = b
	case "timezone":
		settings.Timezone = c.Value
	default:
		return fmt.Errorf("unknown setting: %s", c.Key)
	}

	if err := ctx.Store.SaveSettings(settings); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", c.Key, c.Value)
	return nil
}
