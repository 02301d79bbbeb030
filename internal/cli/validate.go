package cli

import (
	"fmt"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/validation"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *Context) error {
	plan, err := ctx.ActivePlan()
	if err != nil {
		return err
	}

	items, err := ctx.Store.ListItems(plan.ID, false)
	if err != nil {
		return err
	}

	result := validation.New().ValidateItems(items)
	if result.HasConflicts() {
		fmt.Print(validation.FormatReport(result))
		return fmt.Errorf("validation found %d problem(s)", len(result.Conflicts))
	}
	fmt.Println(validation.FormatReport(result))
	return nil
}
