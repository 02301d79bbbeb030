package cli

import "fmt"

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *Context) error {
	changed, err := ctx.Engine.Reconcile(ctx.PatientID())
	if err != nil {
		return err
	}
	if changed {
		fmt.Println("Catalog updated from regimen config")
	} else {
		fmt.Println("Catalog already in sync")
	}
	return nil
}
