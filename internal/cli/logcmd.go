package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type CompleteCmd struct {
	Instance string `arg:"" help:"Instance id (prefix is enough)."`
	Date     string `short:"d" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *CompleteCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}
	patientID := ctx.PatientID()

	inst, err := ctx.FindInstance(patientID, date, c.Instance)
	if err != nil {
		return err
	}
	if inst.Status.Terminal() {
		fmt.Printf("%s is already %s\n", inst.Snapshot.Name, inst.Status)
		return nil
	}

	if err := ctx.Engine.Complete(patientID, date, inst.ID, uuid.NewString()); err != nil {
		return err
	}
	fmt.Printf("Completed: %s\n", inst.Snapshot.Name)
	return nil
}

type SkipCmd struct {
	Instance string `arg:"" help:"Instance id (prefix is enough)."`
	Date     string `short:"d" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *SkipCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}
	patientID := ctx.PatientID()

	inst, err := ctx.FindInstance(patientID, date, c.Instance)
	if err != nil {
		return err
	}
	if inst.Status.Terminal() {
		fmt.Printf("%s is already %s\n", inst.Snapshot.Name, inst.Status)
		return nil
	}

	if err := ctx.Engine.Skip(patientID, date, inst.ID); err != nil {
		return err
	}
	fmt.Printf("Skipped: %s\n", inst.Snapshot.Name)
	return nil
}

type SnoozeCmd struct {
	Instance string `arg:"" help:"Instance id (prefix is enough)."`
	Minutes  int    `short:"m" help:"Minutes to snooze for." default:"30"`
	Date     string `short:"d" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *SnoozeCmd) Run(ctx *Context) error {
	date, err := timeutil.ResolveDate(c.Date, time.Now())
	if err != nil {
		return err
	}
	patientID := ctx.PatientID()

	inst, err := ctx.FindInstance(patientID, date, c.Instance)
	if err != nil {
		return err
	}

	if err := ctx.Engine.Snooze(patientID, date, inst.ItemID, inst.WindowID, c.Minutes); err != nil {
		return err
	}
	fmt.Printf("Snoozed %s for %d minutes\n", inst.Snapshot.Name, c.Minutes)
	return nil
}
