package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type ApptAddCmd struct {
	Title    string `arg:"" help:"Appointment title."`
	Date     string `short:"d" help:"Date (YYYY-MM-DD, 'today', or 'tomorrow')." default:"today"`
	Start    string `short:"s" help:"Start time (HH:MM)." required:""`
	End      string `short:"e" help:"End time (HH:MM)."`
	Location string `short:"l" help:"Location."`
}

func (c *ApptAddCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}

	startMin, err := timeutil.ParseClock(c.Start)
	if err != nil {
		return err
	}
	endMin := startMin + 60
	if c.End != "" {
		endMin, err = timeutil.ParseClock(c.End)
		if err != nil {
			return err
		}
		if endMin < startMin {
			return fmt.Errorf("end time must not be before start time")
		}
	}

	appt := models.Appointment{
		ID:        uuid.NewString(),
		PatientID: ctx.PatientID(),
		Date:      date,
		StartMin:  startMin,
		EndMin:    endMin,
		Title:     c.Title,
		Location:  c.Location,
		CreatedAt: time.Now().UTC(),
	}
	if err := ctx.Store.UpsertAppointment(appt); err != nil {
		return err
	}

	fmt.Printf("Added appointment: %s on %s at %s\n", c.Title, date, c.Start)
	return nil
}

type ApptListCmd struct {
	Date string `arg:"" help:"Date (YYYY-MM-DD, 'today', or 'tomorrow')." default:"today"`
}

func (c *ApptListCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}

	appts, err := ctx.Store.ListAppointments(ctx.PatientID(), date)
	if err != nil {
		return err
	}
	if len(appts) == 0 {
		fmt.Printf("No appointments on %s\n", date)
		return nil
	}

	fmt.Printf("Appointments on %s:\n", date)
	for _, a := range appts {
		flags := ""
		if a.Completed {
			flags = " [done]"
		}
		if a.Cancelled {
			flags = " [cancelled]"
		}
		fmt.Printf("  %s–%s  %-30s %s%s\n",
			timeutil.FormatClock(a.StartMin), timeutil.FormatClock(a.EndMin), a.Title, a.ID[:8], flags)
		if a.Location != "" {
			fmt.Printf("               %s\n", a.Location)
		}
	}
	return nil
}

type ApptDoneCmd struct {
	Appt string `arg:"" help:"Appointment id (prefix is enough)."`
	Date string `short:"d" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *ApptDoneCmd) Run(ctx *Context) error {
	appt, err := findApptByPrefix(ctx, c.Date, c.Appt)
	if err != nil {
		return err
	}
	appt.Completed = true
	if err := ctx.Store.UpsertAppointment(appt); err != nil {
		return err
	}
	fmt.Printf("Marked done: %s\n", appt.Title)
	return nil
}

type ApptCancelCmd struct {
	Appt string `arg:"" help:"Appointment id (prefix is enough)."`
	Date string `short:"d" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *ApptCancelCmd) Run(ctx *Context) error {
	appt, err := findApptByPrefix(ctx, c.Date, c.Appt)
	if err != nil {
		return err
	}
	appt.Cancelled = true
	if err := ctx.Store.UpsertAppointment(appt); err != nil {
		return err
	}
	fmt.Printf("Cancelled: %s\n", appt.Title)
	return nil
}

func findApptByPrefix(ctx *Context, dateArg, prefix string) (models.Appointment, error) {
	date, err := timeutil.ResolveDate(dateArg, time.Now())
	if err != nil {
		return models.Appointment{}, err
	}
	appts, err := ctx.Store.ListAppointments(ctx.PatientID(), date)
	if err != nil {
		return models.Appointment{}, err
	}
	var matches []models.Appointment
	for _, a := range appts {
		if strings.HasPrefix(a.ID, prefix) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return models.Appointment{}, fmt.Errorf("no appointment matching %q on %s", prefix, date)
	case 1:
		return matches[0], nil
	default:
		return models.Appointment{}, fmt.Errorf("%q matches %d appointments, use a longer prefix", prefix, len(matches))
	}
}
