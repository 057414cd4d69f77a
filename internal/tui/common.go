package tui

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halvard/timeclock/internal/timer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewClock viewState = iota
	viewHistory
	viewSettings
)

var viewNames = []string{"Clock", "History", "Settings"}

// --- Messages ---

type sessionStartedMsg struct {
	offline bool
}

type sessionStoppedMsg struct {
	result *timer.StopResult
}

type breakStartedMsg struct {
	minutes int
}

type breakEndedMsg struct {
	added int
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
