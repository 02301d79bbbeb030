package cli

import (
	"errors"
	"fmt"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/keyring"
)

type DBSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in the OS keyring."`
}

func (c *DBSetConnectionCmd) Run(ctx *Context) error {
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	fmt.Println("Stored connection string in OS keyring")
	return nil
}

type DBShowConnectionCmd struct{}

func (c *DBShowConnectionCmd) Run(ctx *Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Println("No connection string stored")
			return nil
		}
		return err
	}
	fmt.Println(connStr)
	return nil
}

type DBDeleteConnectionCmd struct{}

func (c *DBDeleteConnectionCmd) Run(ctx *Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Println("No connection string stored")
			return nil
		}
		return err
	}
	fmt.Println("Deleted connection string from OS keyring")
	return nil
}
