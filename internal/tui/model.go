package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/engine"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

type SessionState int

const (
	StateToday SessionState = iota
	StateItems
	StateAddItem
)

const tabCount = 2

// ItemFormModel backs the huh add-item form.
type ItemFormModel struct {
	Name     string
	Type     models.ItemType
	Detail   string
	Times    string
	Priority string
}

type Model struct {
	store     storage.Provider
	engine    *engine.Engine
	patientID string
	date      string

	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model

	schedule *models.ScheduleResult
	items    []models.PlanItem
	cursor   int

	form     *huh.Form
	itemForm *ItemFormModel

	statusMsg string
	errMsg    string
	quitting  bool
	width     int
	height    int
}

func NewModel(store storage.Provider, eng *engine.Engine, patientID string) Model {
	m := Model{
		store:     store,
		engine:    eng,
		patientID: patientID,
		date:      timeutil.FormatDate(time.Now()),
		state:     StateToday,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	m.refresh()
	return m
}

// refresh re-runs the pipeline and reloads the catalog.
func (m *Model) refresh() {
	m.errMsg = ""

	result, err := m.engine.EnsureSchedule(m.patientID, m.date)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.schedule = result

	plan, err := m.store.GetActivePlan(m.patientID)
	if err != nil || plan == nil {
		m.items = nil
	} else if items, err := m.store.ListItems(plan.ID, false); err == nil {
		m.items = items
	}

	m.clampCursor()
}

func (m *Model) clampCursor() {
	max := 0
	switch m.state {
	case StateToday:
		if m.schedule != nil {
			max = len(m.schedule.Entries) - 1
		}
	case StateItems:
		max = len(m.items) - 1
	}
	if max < 0 {
		max = 0
	}
	if m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selectedEntry returns the highlighted schedule entry, if any.
func (m *Model) selectedEntry() (models.ScheduleEntry, bool) {
	if m.schedule == nil || m.cursor >= len(m.schedule.Entries) {
		return models.ScheduleEntry{}, false
	}
	return m.schedule.Entries[m.cursor], true
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateToday:
		keys = append(keys, m.keys.Complete, m.keys.Skip, m.keys.Snooze, m.keys.Refresh)
	case StateItems:
		keys = append(keys, m.keys.Add)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Refresh}

	var actions []key.Binding
	switch m.state {
	case StateToday:
		actions = []key.Binding{m.keys.Complete, m.keys.Skip, m.keys.Snooze}
	case StateItems:
		actions = []key.Binding{m.keys.Add}
	}

	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}
