package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type ItemAddCmd struct {
	Name      string `arg:"" help:"Item name."`
	Type      string `short:"t" help:"Item type (medication|vitals|nutrition|wellness|activity|custom)." default:"custom"`
	Detail    string `help:"Dosage, target range, or other detail."`
	Times     string `short:"T" help:"Comma-separated exact times (HH:MM)." default:"08:00"`
	Frequency string `short:"f" help:"Frequency (daily|weekly)." default:"daily"`
	Weekdays  string `short:"w" help:"Comma-separated weekdays for weekly frequency."`
	Priority  int    `short:"p" help:"Priority (1-5, lower is higher priority)." default:"3"`
}

func (c *ItemAddCmd) Validate() error {
	if c.Priority < 1 || c.Priority > 5 {
		return fmt.Errorf("priority must be between 1 and 5")
	}
	return nil
}

func (c *ItemAddCmd) Run(ctx *Context) error {
	itemType := models.ItemType(c.Type)
	if !itemType.Valid() {
		return fmt.Errorf("invalid item type: %s", c.Type)
	}

	var freq models.Frequency
	switch c.Frequency {
	case "daily":
		freq = models.FrequencyDaily
	case "weekly":
		freq = models.FrequencyWeekly
	default:
		return fmt.Errorf("invalid frequency: %s", c.Frequency)
	}

	var weekdays []time.Weekday
	if freq == models.FrequencyWeekly && c.Weekdays != "" {
		var err error
		weekdays, err = parseWeekdays(c.Weekdays)
		if err != nil {
			return err
		}
	}

	var windows []models.TimeWindow
	for _, raw := range strings.Split(c.Times, ",") {
		at := strings.TrimSpace(raw)
		if at == "" {
			continue
		}
		if _, err := timeutil.ParseClock(at); err != nil {
			return err
		}
		windows = append(windows, models.TimeWindow{
			ID:    uuid.NewString(),
			Label: models.WindowCustom,
			At:    at,
		})
	}
	if len(windows) == 0 {
		return fmt.Errorf("at least one time is required")
	}

	patientID := ctx.PatientID()
	plan, err := ctx.Store.GetActivePlan(patientID)
	if err != nil {
		return err
	}
	if plan == nil {
		plan = &models.CarePlan{
			ID:        uuid.NewString(),
			PatientID: patientID,
			Name:      "Care plan",
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if err := ctx.Store.SavePlan(*plan); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	item := models.PlanItem{
		ID:       uuid.NewString(),
		PlanID:   plan.ID,
		Type:     itemType,
		Name:     c.Name,
		Detail:   c.Detail,
		Priority: c.Priority,
		Active:   true,
		Schedule: models.Schedule{
			Frequency: freq,
			Weekdays:  weekdays,
			Windows:   windows,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := ctx.Store.UpsertItem(item); err != nil {
		return err
	}
	fmt.Printf("Added item: %s (ID: %s)\n", c.Name, item.ID)
	return nil
}

type ItemListCmd struct {
	All bool `help:"Include inactive items."`
}

func (c *ItemListCmd) Run(ctx *Context) error {
	plan, err := ctx.ActivePlan()
	if err != nil {
		return err
	}

	items, err := ctx.Store.ListItems(plan.ID, !c.All)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No items found")
		return nil
	}

	fmt.Println("Plan items:")
	for _, item := range items {
		status := "active"
		if !item.Active {
			status = "inactive"
		}
		fmt.Printf("  [%s] %s - %s (%s, priority %d)\n",
			status, item.Name, item.Type, formatSchedule(item.Schedule), item.Priority)

		var times []string
		for _, w := range item.Schedule.Windows {
			if w.IsExact() {
				times = append(times, w.At)
			} else {
				times = append(times, fmt.Sprintf("%s-%s",
					timeutil.FormatClock(w.StartMin()), timeutil.FormatClock(w.EndMin())))
			}
		}
		fmt.Printf("      ID: %s  Times: %s\n", item.ID[:8], strings.Join(times, ", "))
		if item.Detail != "" {
			fmt.Printf("      Detail: %s\n", item.Detail)
		}
	}

	return nil
}

type ItemDeactivateCmd struct {
	Item string `arg:"" help:"Item id (prefix is enough)."`
}

func (c *ItemDeactivateCmd) Run(ctx *Context) error {
	item, err := c.findItem(ctx)
	if err != nil {
		return err
	}
	if !item.Active {
		fmt.Printf("%s is already inactive\n", item.Name)
		return nil
	}
	item.Active = false
	item.UpdatedAt = time.Now().UTC()
	if err := ctx.Store.UpsertItem(item); err != nil {
		return err
	}
	fmt.Printf("Deactivated: %s\n", item.Name)
	return nil
}

func (c *ItemDeactivateCmd) findItem(ctx *Context) (models.PlanItem, error) {
	return findItemByPrefix(ctx, c.Item)
}

type ItemDeleteCmd struct {
	Item  string `arg:"" help:"Item id (prefix is enough)."`
	Force bool   `help:"Delete without creating a backup first."`
}

func (c *ItemDeleteCmd) Run(ctx *Context) error {
	item, err := findItemByPrefix(ctx, c.Item)
	if err != nil {
		return err
	}
	if !c.Force {
		ctx.PerformAutomaticBackup()
	}
	if err := ctx.Store.DeleteItem(item.PlanID, item.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s (instances for %s will be reaped on the next refresh)\n",
		item.Name, timeutil.FormatDate(time.Now()))
	return nil
}

func findItemByPrefix(ctx *Context, prefix string) (models.PlanItem, error) {
	plan, err := ctx.ActivePlan()
	if err != nil {
		return models.PlanItem{}, err
	}
	items, err := ctx.Store.ListItems(plan.ID, false)
	if err != nil {
		return models.PlanItem{}, err
	}
	var matches []models.PlanItem
	for _, item := range items {
		if strings.HasPrefix(item.ID, prefix) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return models.PlanItem{}, fmt.Errorf("no item matching %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return models.PlanItem{}, fmt.Errorf("%q matches %d items, use a longer prefix", prefix, len(matches))
	}
}
