package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateToday:
		content = docStyle.Render(m.viewToday())
	case StateItems:
		content = docStyle.Render(m.viewItems())
	case StateAddItem:
		content = docStyle.Render(m.form.View())
	}

	var footer []string
	if m.errMsg != "" {
		footer = append(footer, errorStyle.Render(m.errMsg))
	} else if m.statusMsg != "" {
		footer = append(footer, mutedStyle.Render(m.statusMsg))
	}
	footer = append(footer, m.help.View(m))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		strings.Join(footer, "\n"),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Today", "Items"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// sectionOrder fixes how status groups are rendered top to bottom.
var sectionOrder = []models.ScheduleStatus{
	models.StatusAvailableNow,
	models.StatusMissed,
	models.StatusUpcoming,
	models.StatusSnoozed,
	models.StatusInfo,
	models.StatusCompleted,
}

var sectionTitles = map[models.ScheduleStatus]string{
	models.StatusAvailableNow: "Available now",
	models.StatusMissed:       "Missed",
	models.StatusUpcoming:     "Upcoming",
	models.StatusSnoozed:      "Snoozed",
	models.StatusInfo:         "Info",
	models.StatusCompleted:    "Done",
}

func (m Model) viewToday() string {
	if m.schedule == nil {
		return "No schedule loaded (press r to refresh)"
	}
	if len(m.schedule.Entries) == 0 {
		return fmt.Sprintf("Nothing scheduled for %s", m.date)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", m.date)

	index := 0
	for _, status := range sectionOrder {
		entries := m.schedule.Grouped[status]
		if len(entries) == 0 {
			continue
		}
		b.WriteString(sectionStyle.Render(sectionTitles[status]))
		b.WriteString("\n")
		for _, entry := range entries {
			line := m.renderEntry(entry)
			if index == m.cursor {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
			index++
		}
		b.WriteString("\n")
	}

	if len(m.schedule.Conflicts) > 0 {
		b.WriteString(conflictStyle.Render(fmt.Sprintf("⚠ %d conflict(s)", len(m.schedule.Conflicts))))
		b.WriteString("\n")
		for _, conflict := range m.schedule.Conflicts {
			b.WriteString(conflictStyle.Render("  " + conflict.Suggestion))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderEntry(entry models.ScheduleEntry) string {
	timeStr := timeutil.FormatClock(entry.StartMin)
	if entry.EndMin > entry.StartMin {
		timeStr += "–" + timeutil.FormatClock(entry.EndMin)
	}
	marker := ""
	if entry.Kind == models.EntryAppointment {
		marker = " @"
	}
	line := fmt.Sprintf("%-13s %s%s", timeStr, entry.Title, marker)
	if entry.Detail != "" {
		line += mutedStyle.Render("  " + entry.Detail)
	}
	return line
}

func (m Model) viewItems() string {
	if len(m.items) == 0 {
		return "No plan items yet (press a to add one)"
	}

	var b strings.Builder
	for i, item := range m.items {
		status := " "
		if !item.Active {
			status = mutedStyle.Render("inactive")
		}
		var times []string
		for _, w := range item.Schedule.Windows {
			if w.IsExact() {
				times = append(times, w.At)
			} else {
				times = append(times, fmt.Sprintf("%s-%s",
					timeutil.FormatClock(w.StartMin()), timeutil.FormatClock(w.EndMin())))
			}
		}
		line := fmt.Sprintf("%-28s %-10s %s %s", item.Name, item.Type, strings.Join(times, ","), status)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
