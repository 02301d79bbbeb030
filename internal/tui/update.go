package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateAddItem {
		return m.updateAddItem(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		m.statusMsg = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			m.cursor = 0
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			m.cursor = 0
		case key.Matches(msg, m.keys.Up):
			m.cursor--
			m.clampCursor()
		case key.Matches(msg, m.keys.Down):
			m.cursor++
			m.clampCursor()
		case key.Matches(msg, m.keys.Refresh):
			m.refresh()
		case key.Matches(msg, m.keys.Complete):
			if m.state == StateToday {
				m.completeSelected()
			}
		case key.Matches(msg, m.keys.Skip):
			if m.state == StateToday {
				m.skipSelected()
			}
		case key.Matches(msg, m.keys.Snooze):
			if m.state == StateToday {
				m.snoozeSelected()
			}
		case key.Matches(msg, m.keys.Add):
			if m.state == StateItems {
				return m.startAddItem(), nil
			}
		}
	}

	return m, nil
}

func (m *Model) completeSelected() {
	entry, ok := m.selectedEntry()
	if !ok || entry.Kind != models.EntryRoutine {
		return
	}
	if err := m.engine.Complete(m.patientID, m.date, entry.InstanceID, uuid.NewString()); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.statusMsg = fmt.Sprintf("Completed %s", entry.Title)
	m.refresh()
}

func (m *Model) skipSelected() {
	entry, ok := m.selectedEntry()
	if !ok || entry.Kind != models.EntryRoutine {
		return
	}
	if err := m.engine.Skip(m.patientID, m.date, entry.InstanceID); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.statusMsg = fmt.Sprintf("Skipped %s", entry.Title)
	m.refresh()
}

func (m *Model) snoozeSelected() {
	entry, ok := m.selectedEntry()
	if !ok || entry.Kind != models.EntryRoutine {
		return
	}
	if err := m.engine.Snooze(m.patientID, m.date, entry.ItemID, entry.WindowID, 30); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.statusMsg = fmt.Sprintf("Snoozed %s for 30 minutes", entry.Title)
	m.refresh()
}

func (m Model) startAddItem() Model {
	m.itemForm = &ItemFormModel{
		Type:     models.ItemTypeCustom,
		Times:    "08:00",
		Priority: "3",
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.itemForm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewSelect[models.ItemType]().
				Title("Type").
				Options(
					huh.NewOption("Medication", models.ItemTypeMedication),
					huh.NewOption("Vitals", models.ItemTypeVitals),
					huh.NewOption("Nutrition", models.ItemTypeNutrition),
					huh.NewOption("Wellness", models.ItemTypeWellness),
					huh.NewOption("Activity", models.ItemTypeActivity),
					huh.NewOption("Custom", models.ItemTypeCustom),
				).
				Value(&m.itemForm.Type),
			huh.NewInput().
				Title("Detail (dosage, target, ...)").
				Value(&m.itemForm.Detail),
			huh.NewInput().
				Title("Times (HH:MM, comma-separated)").
				Value(&m.itemForm.Times).
				Validate(func(s string) error {
					for _, raw := range strings.Split(s, ",") {
						if _, err := timeutil.ParseClock(strings.TrimSpace(raw)); err != nil {
							return err
						}
					}
					return nil
				}),
			huh.NewInput().
				Title("Priority (1-5)").
				Value(&m.itemForm.Priority).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 5 {
						return fmt.Errorf("priority must be 1-5")
					}
					return nil
				}),
		),
	)
	m.previousState = m.state
	m.state = StateAddItem
	return m
}

func (m Model) updateAddItem(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.state = m.previousState
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.state = m.previousState
		if err := m.saveNewItem(); err != nil {
			m.errMsg = err.Error()
		} else {
			m.statusMsg = fmt.Sprintf("Added %s", m.itemForm.Name)
			m.refresh()
		}
		m.form = nil
		return m, nil
	}

	return m, cmd
}

func (m *Model) saveNewItem() error {
	plan, err := m.store.GetActivePlan(m.patientID)
	if err != nil {
		return err
	}
	if plan == nil {
		plan = &models.CarePlan{
			ID:        uuid.NewString(),
			PatientID: m.patientID,
			Name:      "Care plan",
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if err := m.store.SavePlan(*plan); err != nil {
			return err
		}
	}

	var windows []models.TimeWindow
	for _, raw := range strings.Split(m.itemForm.Times, ",") {
		at := strings.TrimSpace(raw)
		if at == "" {
			continue
		}
		windows = append(windows, models.TimeWindow{
			ID:    uuid.NewString(),
			Label: models.WindowCustom,
			At:    at,
		})
	}

	priority, _ := strconv.Atoi(m.itemForm.Priority)
	now := time.Now().UTC()
	item := models.PlanItem{
		ID:       uuid.NewString(),
		PlanID:   plan.ID,
		Type:     m.itemForm.Type,
		Name:     strings.TrimSpace(m.itemForm.Name),
		Detail:   strings.TrimSpace(m.itemForm.Detail),
		Priority: priority,
		Active:   true,
		Schedule: models.Schedule{
			Frequency: models.FrequencyDaily,
			Windows:   windows,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m.store.UpsertItem(item)
}
