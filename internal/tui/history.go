package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halvard/timeclock/internal/history"
	"github.com/halvard/timeclock/internal/store"
)

type historyModel struct {
	service *history.Service
	userID  string
	width   int
	height  int

	offset   int // 7-day blocks back from today (0 = current)
	sessions []store.WorkSession
	source   string
	days     []history.DayRollup
	places   []history.LocationRollup

	chart barchart.Model
}

func newHistoryModel(svc *history.Service, userID string) historyModel {
	return historyModel{
		service: svc,
		userID:  userID,
		chart:   barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	sessions []store.WorkSession
	source   string
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		sessions, source := h.service.Fetch(h.userID, from, to)
		return historyDataMsg{sessions: sessions, source: source}
	}
}

func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*h.offset)
	start := end.AddDate(0, 0, -7)
	return start, end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.sessions = msg.sessions
		h.source = msg.source
		h.days = history.ByDay(msg.sessions)
		h.places = history.ByLocation(msg.sessions)
		h.buildChart()
		return h, nil

	case sessionStoppedMsg:
		return h, h.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	from, to := h.dateRange()

	byDate := make(map[string]history.DayRollup, len(h.days))
	for _, d := range h.days {
		byDate[d.Date] = d
	}

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		label := d.Format("Mon 02")

		value := barchart.BarValue{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}
		if r, ok := byDate[dateStr]; ok {
			value = barchart.BarValue{
				Name:  dateStr,
				Value: r.Earnings.InexactFloat64(),
				Style: lipgloss.NewStyle().Foreground(colorMoney),
			}
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{value},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s — %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	headerParts := []string{titleStyle.Render("History"), "  ", dateLabel}
	if h.source == "offline" {
		headerParts = append(headerParts, "  ", warningStyle.Render("[offline data]"))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, headerParts...)

	chartView := h.chart.View()
	dayTable := h.renderDayTable(w)
	locationTable := h.renderLocationTable(w)

	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", dayTable, "", locationTable, "", nav,
		),
	)
}

func (h historyModel) renderDayTable(w int) string {
	if len(h.days) == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %9s %8s %12s", "Date", "Sessions", "Hours", "Earned")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 44))))

	for _, d := range h.days {
		rows = append(rows, fmt.Sprintf("  %-12s %9d %8s %12s",
			d.Date, d.Sessions, formatHours(d.Hours), formatMoney(d.Earnings),
		))
	}

	return strings.Join(rows, "\n")
}

func (h historyModel) renderLocationTable(w int) string {
	if len(h.places) == 0 {
		return ""
	}

	var rows []string
	rows = append(rows, titleStyle.Render("By location"))
	for _, p := range h.places {
		rows = append(rows, fmt.Sprintf("  %-24s %9d %8s %12s",
			p.Label, p.Sessions, formatHours(p.Hours), formatMoney(p.Earnings),
		))
	}

	return strings.Join(rows, "\n")
}
