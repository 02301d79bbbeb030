package cli

import (
	"fmt"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type DayCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD, 'today', or 'tomorrow')." default:"today"`
}

func (c *DayCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}

	result, err := ctx.Engine.EnsureSchedule(ctx.PatientID(), date)
	if err != nil {
		return err
	}

	fmt.Printf("Schedule for %s:\n\n", date)

	if len(result.Entries) == 0 {
		fmt.Println("  Nothing scheduled")
		return nil
	}

	for _, entry := range result.Entries {
		timeStr := timeutil.FormatClock(entry.StartMin)
		if entry.EndMin > entry.StartMin {
			timeStr += "–" + timeutil.FormatClock(entry.EndMin)
		}

		marker := " "
		if entry.Kind == models.EntryAppointment {
			marker = "@"
		}

		ref := entry.InstanceID
		if ref == "" {
			ref = entry.AppointmentID
		}
		if len(ref) > 8 {
			ref = ref[:8]
		}

		fmt.Printf("%s %-13s %-30s %-10s %s\n", marker, timeStr, entry.Title, statusLabel(entry.Status), ref)
		if entry.Detail != "" {
			fmt.Printf("                %s\n", entry.Detail)
		}
	}

	if len(result.Conflicts) > 0 {
		fmt.Println("\nConflicts:")
		for _, conflict := range result.Conflicts {
			fmt.Printf("  [%s] %s\n", conflict.Kind, conflict.Suggestion)
		}
	}

	fmt.Printf("\n%d entries, %d actionable", result.Stats.Total, result.Stats.Actionable)
	if result.Stats.RoutinesDone {
		fmt.Print(", all routines done")
	}
	fmt.Println()

	return nil
}
