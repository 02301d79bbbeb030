package cli

import (
	"fmt"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/keyring"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/notifier"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/regimenconfig"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
)

type DoctorCmd struct {
	RegimenConfig string `help:"Regimen config file to check." type:"path"`
}

func (c *DoctorCmd) Run(ctx *Context) error {
	failures := 0
	check := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Printf("  ✗ %s: %v\n", name, err)
			return
		}
		fmt.Printf("  ✓ %s\n", name)
	}

	fmt.Println("Running health checks:")

	check("storage reachable", func() error {
		_, err := ctx.Store.GetSettings()
		return err
	}())

	if sqlStore, ok := ctx.Store.(*storage.SQLStore); ok {
		version, err := sqlStore.SchemaVersion()
		if err != nil {
			check("schema version", err)
		} else if version != storage.LatestSchemaVersion {
			check("schema version", fmt.Errorf("at %d, want %d", version, storage.LatestSchemaVersion))
		} else {
			check(fmt.Sprintf("schema version (%d)", version), nil)
		}
	}

	check("active plan resolvable", func() error {
		_, err := ctx.Store.GetActivePlan(ctx.PatientID())
		return err
	}())

	if keyring.IsAvailable() {
		check("OS keyring", nil)
	} else {
		fmt.Println("  - OS keyring unavailable (only needed for postgres)")
	}

	if c.RegimenConfig != "" {
		_, err := regimenconfig.NewSource(c.RegimenConfig).Snapshot()
		check("regimen config parses", err)
	}

	if err := notifier.New().Notify("embermate doctor check"); err != nil {
		fmt.Printf("  - tray notifier unreachable: %v\n", err)
	} else {
		check("tray notifier", nil)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Println("All checks passed")
	return nil
}
