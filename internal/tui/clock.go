package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halvard/timeclock/internal/store"
	"github.com/halvard/timeclock/internal/timer"
)

var breakLengths = []int{15, 30, 45, 60}

type clockModel struct {
	store     *store.Store
	lifecycle *timer.Lifecycle
	userID    string
	width     int
	height    int

	locations  []store.Location
	info       timer.TickInfo
	lastResult *timer.StopResult

	// Location picker state (index 0 is "no location")
	picking      bool
	pickerCursor int

	// Break length picker state
	breakPicking bool
	breakCursor  int
}

func newClockModel(s *store.Store, lc *timer.Lifecycle, userID string) clockModel {
	return clockModel{
		store:     s,
		lifecycle: lc,
		userID:    userID,
		info:      lc.Tick(time.Now()),
	}
}

func (c clockModel) Init() tea.Cmd {
	return c.refresh()
}

func (c *clockModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type clockDataMsg struct {
	locations []store.Location
}

func (c clockModel) refresh() tea.Cmd {
	return func() tea.Msg {
		locations, _ := c.store.ListLocations(c.userID)
		return clockDataMsg{locations: locations}
	}
}

func (c clockModel) update(msg tea.Msg) (clockModel, tea.Cmd) {
	switch msg := msg.(type) {
	case clockDataMsg:
		c.locations = msg.locations
		return c, nil

	case tickMsg:
		c.info = c.lifecycle.Tick(time.Time(msg))
		return c, nil

	case sessionStartedMsg:
		c.lastResult = nil
		return c, nil

	case sessionStoppedMsg:
		c.lastResult = msg.result
		return c, nil

	case tea.KeyMsg:
		if c.picking {
			return c.updateLocationPicker(msg)
		}
		if c.breakPicking {
			return c.updateBreakPicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if c.lifecycle.Running() {
				return c, nil
			}
			if len(c.locations) == 0 {
				return c.clockIn(nil)
			}
			c.picking = true
			c.pickerCursor = 0
			return c, nil

		case key.Matches(msg, keys.Stop):
			return c.clockOut()

		case key.Matches(msg, keys.Break):
			if !c.lifecycle.Running() {
				return c, nil
			}
			if c.info.BreakActive {
				return c.endBreak()
			}
			c.breakPicking = true
			c.breakCursor = 0
			return c, nil
		}
	}
	return c, nil
}

func (c clockModel) updateLocationPicker(msg tea.KeyMsg) (clockModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if c.pickerCursor > 0 {
			c.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if c.pickerCursor < len(c.locations) {
			c.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		c.picking = false
		if c.pickerCursor == 0 {
			return c.clockIn(nil)
		}
		loc := c.locations[c.pickerCursor-1]
		return c.clockIn(&loc)
	case key.Matches(msg, keys.Back):
		c.picking = false
	}
	return c, nil
}

func (c clockModel) updateBreakPicker(msg tea.KeyMsg) (clockModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if c.breakCursor > 0 {
			c.breakCursor--
		}
	case key.Matches(msg, keys.Down):
		if c.breakCursor < len(breakLengths)-1 {
			c.breakCursor++
		}
	case key.Matches(msg, keys.Enter):
		c.breakPicking = false
		return c.startBreak(breakLengths[c.breakCursor])
	case key.Matches(msg, keys.Back):
		c.breakPicking = false
	}
	return c, nil
}

func (c clockModel) clockIn(loc *store.Location) (clockModel, tea.Cmd) {
	if _, err := c.lifecycle.Start(loc); err != nil {
		return c, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	c.info = c.lifecycle.Tick(time.Now())
	offline := c.info.RemotePending
	return c, func() tea.Msg { return sessionStartedMsg{offline: offline} }
}

func (c clockModel) clockOut() (clockModel, tea.Cmd) {
	result, err := c.lifecycle.Stop()
	if err != nil {
		return c, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	c.info = c.lifecycle.Tick(time.Now())
	return c, func() tea.Msg { return sessionStoppedMsg{result: result} }
}

func (c clockModel) startBreak(minutes int) (clockModel, tea.Cmd) {
	if err := c.lifecycle.StartBreak(minutes); err != nil {
		return c, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	c.info = c.lifecycle.Tick(time.Now())
	return c, func() tea.Msg { return breakStartedMsg{minutes: minutes} }
}

func (c clockModel) endBreak() (clockModel, tea.Cmd) {
	added, err := c.lifecycle.EndBreak()
	if err != nil {
		return c, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	c.info = c.lifecycle.Tick(time.Now())
	return c, func() tea.Msg { return breakEndedMsg{added: added} }
}

func (c clockModel) view() string {
	if c.width < 20 {
		return "Terminal too small"
	}

	contentWidth := c.width - 4

	timerPanel := c.renderTimerPanel(contentWidth)

	var bottomPanel string
	switch {
	case c.picking:
		bottomPanel = c.renderLocationPicker(contentWidth)
	case c.breakPicking:
		bottomPanel = c.renderBreakPicker(contentWidth)
	case c.lastResult != nil:
		bottomPanel = c.renderResultPanel(contentWidth)
	default:
		bottomPanel = c.renderHintPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, bottomPanel)
}

func (c clockModel) renderTimerPanel(w int) string {
	if c.info.Running {
		timeStr := formatDuration(c.info.Elapsed)

		var timeDisplay, indicator string
		if c.info.BreakActive {
			timeDisplay = timerBreakStyle.Width(w - 6).Render(timeStr)
			remaining := int(c.info.BreakRemaining.Minutes())
			indicator = warningStyle.Render(fmt.Sprintf("⏸  ON BREAK (%d min left)", remaining))
		} else {
			timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
			indicator = successStyle.Render("●  CLOCKED IN")
		}
		if c.info.RemotePending {
			indicator += "  " + warningStyle.Render("[offline]")
		}

		bd := c.info.Breakdown
		earningsLine := moneyStyle.Render(formatMoney(bd.TotalEarnings))
		if bd.OvertimeHours > 0 {
			earningsLine += mutedStyle.Render(fmt.Sprintf("  (%s regular + %s overtime)",
				formatMoney(bd.RegularEarnings), formatMoney(bd.OvertimeEarnings)))
		}
		detailLine := mutedStyle.Render(fmt.Sprintf("%s worked", formatHours(bd.NetHours)))

		sess := c.lifecycle.Session()
		locLine := ""
		if sess.Address != "" {
			locLine = highlightStyle.Render(sess.Address)
		}
		if sess.BreakMinutes > 0 {
			detailLine += mutedStyle.Render(fmt.Sprintf("  %d min breaks", sess.BreakMinutes))
		}

		parts := []string{timeDisplay, indicator, earningsLine, detailLine}
		if locLine != "" {
			parts = append(parts, locLine)
		}
		content := lipgloss.JoinVertical(lipgloss.Center, parts...)
		return activePanelStyle.Width(w).Render(content)
	}

	timeDisplay := timerStyle.Width(w - 6).Render("00:00:00")
	indicator := mutedStyle.Render("■  CLOCKED OUT")
	hint := mutedStyle.Render("Press s to clock in")

	content := lipgloss.JoinVertical(lipgloss.Center,
		timeDisplay,
		indicator,
		hint,
	)
	return panelStyle.Width(w).Render(content)
}

func (c clockModel) renderResultPanel(w int) string {
	r := c.lastResult
	bd := r.Breakdown

	title := titleStyle.Render("Last Session")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, fmt.Sprintf("  %-16s %s", "Worked", formatHours(bd.NetHours)))
	if r.Session.BreakMinutes > 0 {
		rows = append(rows, fmt.Sprintf("  %-16s %d min", "Breaks", r.Session.BreakMinutes))
	}
	rows = append(rows, fmt.Sprintf("  %-16s %s", "Regular", formatMoney(bd.RegularEarnings)))
	if bd.OvertimeHours > 0 {
		rows = append(rows, fmt.Sprintf("  %-16s %s (%s)", "Overtime",
			formatMoney(bd.OvertimeEarnings), formatHours(bd.OvertimeHours)))
	}
	rows = append(rows, fmt.Sprintf("  %-16s %s", "Total", moneyStyle.Render(formatMoney(bd.TotalEarnings))))
	if !r.SavedRemotely {
		rows = append(rows, "")
		rows = append(rows, warningStyle.Render("  Saved offline, will sync on next fetch"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (c clockModel) renderHintPanel(w int) string {
	var rows []string
	if c.info.Running {
		rows = append(rows, titleStyle.Render("Controls"))
		rows = append(rows, mutedStyle.Render("  x: clock out  b: break"))
	} else {
		rows = append(rows, titleStyle.Render("Ready"))
		rows = append(rows, mutedStyle.Render("  s: clock in  2: history  3: settings"))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (c clockModel) renderLocationPicker(w int) string {
	title := titleStyle.Render("Where are you working?")

	var rows []string
	rows = append(rows, title)

	labels := make([]string, 0, len(c.locations)+1)
	labels = append(labels, "No location")
	for _, loc := range c.locations {
		label := loc.Name
		if loc.HourlyRate != nil {
			label += fmt.Sprintf("  ($%.2f/h)", *loc.HourlyRate)
		}
		labels = append(labels, label)
	}

	for i, label := range labels {
		cursor := "  "
		style := normalItemStyle
		if i == c.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+label))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: clock in  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (c clockModel) renderBreakPicker(w int) string {
	title := titleStyle.Render("Break length")

	var rows []string
	rows = append(rows, title)
	for i, mins := range breakLengths {
		cursor := "  "
		style := normalItemStyle
		if i == c.breakCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%d minutes", cursor, mins)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: start break  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
