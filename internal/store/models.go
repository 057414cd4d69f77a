package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earnings is the computed pay breakdown of a completed session.
// It is set together with EndTime, exactly once.
type Earnings struct {
	Regular  decimal.Decimal
	Overtime decimal.Decimal
	Total    decimal.Decimal
}

// WorkSession is one tracked work period from clock-in to clock-out.
// Rates are resolved at start and frozen for the life of the session.
type WorkSession struct {
	ID          string
	UserID      string
	LocationID  *string
	Address     string
	ManualEntry bool
	StartTime   time.Time
	EndTime     *time.Time

	HourlyRate             float64
	OvertimeRate           float64
	OvertimeThresholdHours float64

	BreakMinutes int
	Earnings     *Earnings
	CreatedAt    time.Time
}

// Running reports whether the session has not been clocked out yet.
func (s *WorkSession) Running() bool {
	return s.EndTime == nil
}

// OvertimePeriod records the overtime portion of a completed session.
// Rows are insert-only.
type OvertimePeriod struct {
	ID              string
	SessionID       string
	StartTime       time.Time
	EndTime         time.Time
	Rate            float64
	DurationMinutes int
	Earnings        decimal.Decimal
}

// RateSettings are the per-user default pay rates, used when a session's
// location does not carry its own rate.
type RateSettings struct {
	UserID                 string
	HourlyRate             float64
	OvertimeRate           float64
	OvertimeThresholdHours float64
	UpdatedAt              time.Time
}

// Location is a saved work place. HourlyRate and OvertimeRate are optional;
// when set they take precedence over the user's RateSettings.
type Location struct {
	ID           string
	UserID       string
	Name         string
	Address      string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters float64
	HourlyRate   *float64
	OvertimeRate *float64
	CreatedAt    time.Time
}

// SessionFilter is used to filter sessions in queries.
type SessionFilter struct {
	UserID        string
	From          *time.Time
	To            *time.Time
	CompletedOnly bool
	Limit         int
}
