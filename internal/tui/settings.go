package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/halvard/timeclock/internal/store"
	"github.com/halvard/timeclock/internal/timer"
)

type settingsForm int

const (
	formNone settingsForm = iota
	formRates
	formLocation
)

type settingsModel struct {
	store  *store.Store
	userID string
	width  int
	height int

	rates     *store.RateSettings
	locations []store.Location
	cursor    int

	formActive bool
	activeForm settingsForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	hourlyRate   *string
	overtimeRate *string
	threshold    *string
	locName      *string
	locAddress   *string
	locRate      *string
}

func newSettingsModel(s *store.Store, userID string) settingsModel {
	hr, or, th := "", "", ""
	ln, la, lr := "", "", ""
	return settingsModel{
		store:        s,
		userID:       userID,
		hourlyRate:   &hr,
		overtimeRate: &or,
		threshold:    &th,
		locName:      &ln,
		locAddress:   &la,
		locRate:      &lr,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	rates     *store.RateSettings
	locations []store.Location
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		rates, _ := s.store.GetRateSettings(s.userID)
		locations, _ := s.store.ListLocations(s.userID)
		return settingsDataMsg{rates: rates, locations: locations}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.rates = msg.rates
		s.locations = msg.locations
		if s.cursor >= len(s.locations) {
			s.cursor = 0
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showRatesForm()
		case key.Matches(msg, keys.New):
			return s.showLocationForm()
		case key.Matches(msg, keys.Delete):
			return s.deleteLocation()
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.locations)-1 {
				s.cursor++
			}
		}
	}
	return s, nil
}

func (s settingsModel) currentRates() timer.Rates {
	if s.rates == nil {
		return timer.DefaultRates()
	}
	return timer.Rates{
		Hourly:         s.rates.HourlyRate,
		Overtime:       s.rates.OvertimeRate,
		ThresholdHours: s.rates.OvertimeThresholdHours,
	}
}

func (s settingsModel) showRatesForm() (settingsModel, tea.Cmd) {
	r := s.currentRates()
	*s.hourlyRate = strconv.FormatFloat(r.Hourly, 'f', 2, 64)
	*s.overtimeRate = strconv.FormatFloat(r.Overtime, 'f', 2, 64)
	*s.threshold = strconv.FormatFloat(r.ThresholdHours, 'f', 1, 64)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Hourly rate ($)").Value(s.hourlyRate).Validate(validateRate),
			huh.NewInput().Title("Overtime rate ($)").Value(s.overtimeRate).Validate(validateRate),
			huh.NewInput().Title("Overtime after (hours)").Value(s.threshold).Validate(validateRate),
		).Title("Pay Rates"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	s.activeForm = formRates
	return s, s.form.Init()
}

func (s settingsModel) showLocationForm() (settingsModel, tea.Cmd) {
	*s.locName = ""
	*s.locAddress = ""
	*s.locRate = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(s.locName).Validate(func(v string) error {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("name is required")
				}
				return nil
			}),
			huh.NewInput().Title("Address").Value(s.locAddress),
			huh.NewInput().Title("Hourly rate ($, blank for default)").Value(s.locRate).Validate(validateOptionalRate),
		).Title("New Location"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	s.activeForm = formLocation
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		switch s.activeForm {
		case formRates:
			s.saveRates()
		case formLocation:
			s.saveLocation()
		}
		s.form = nil
		return s, s.refresh()
	}

	return s, cmd
}

func (s settingsModel) saveRates() {
	hourly, err1 := strconv.ParseFloat(*s.hourlyRate, 64)
	overtime, err2 := strconv.ParseFloat(*s.overtimeRate, 64)
	threshold, err3 := strconv.ParseFloat(*s.threshold, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}
	s.store.SaveRateSettings(store.RateSettings{
		UserID:                 s.userID,
		HourlyRate:             hourly,
		OvertimeRate:           overtime,
		OvertimeThresholdHours: threshold,
		UpdatedAt:              time.Now().UTC(),
	})
}

func (s settingsModel) saveLocation() {
	loc := store.Location{
		UserID:  s.userID,
		Name:    strings.TrimSpace(*s.locName),
		Address: strings.TrimSpace(*s.locAddress),
	}
	if v := strings.TrimSpace(*s.locRate); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			loc.HourlyRate = &rate
		}
	}
	s.store.CreateLocation(&loc)
}

func (s settingsModel) deleteLocation() (settingsModel, tea.Cmd) {
	if len(s.locations) == 0 {
		return s, nil
	}
	loc := s.locations[s.cursor]
	if err := s.store.DeleteLocation(loc.ID); err != nil {
		return s, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	return s, tea.Batch(
		s.refresh(),
		func() tea.Msg { return statusMsg{text: "Location deleted: " + loc.Name} },
	)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	ratesPanel := s.renderRatesPanel(w)
	locationsPanel := s.renderLocationsPanel(w)

	return lipgloss.JoinVertical(lipgloss.Left, ratesPanel, locationsPanel)
}

func (s settingsModel) renderRatesPanel(w int) string {
	title := titleStyle.Render("Pay Rates")
	r := s.currentRates()

	source := "defaults"
	if s.rates != nil {
		source = "saved"
	}

	var rows []string
	rows = append(rows, title+"  "+mutedStyle.Render("("+source+")"))
	rows = append(rows, "")
	rows = append(rows, fmt.Sprintf("  %-24s %s", "Hourly rate", highlightStyle.Render(fmt.Sprintf("$%.2f/h", r.Hourly))))
	rows = append(rows, fmt.Sprintf("  %-24s %s", "Overtime rate", highlightStyle.Render(fmt.Sprintf("$%.2f/h", r.Overtime))))
	rows = append(rows, fmt.Sprintf("  %-24s %s", "Overtime after", highlightStyle.Render(fmt.Sprintf("%.1f hours", r.ThresholdHours))))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: edit rates"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s settingsModel) renderLocationsPanel(w int) string {
	title := titleStyle.Render("Locations")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	if len(s.locations) == 0 {
		rows = append(rows, mutedStyle.Render("  No saved locations"))
	}
	for i, loc := range s.locations {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		label := loc.Name
		if loc.Address != "" {
			label += mutedStyle.Render("  " + loc.Address)
		}
		if loc.HourlyRate != nil {
			label += highlightStyle.Render(fmt.Sprintf("  $%.2f/h", *loc.HourlyRate))
		}
		rows = append(rows, style.Render(cursor)+label)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: add location  d: delete"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func validateRate(v string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if f < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateOptionalRate(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return validateRate(v)
}
