package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	ctx.PerformAutomaticBackup()

	model := tui.NewModel(ctx.Store, ctx.Engine, ctx.PatientID())
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
