package timer

import (
	"github.com/halvard/timeclock/internal/store"
)

// Default rates used when neither the location nor the user's settings
// define any.
const (
	DefaultHourlyRate     = 25.0
	DefaultOvertimeRate   = 37.5
	DefaultThresholdHours = 8.0
)

// Rates is the effective pay schedule frozen into a session at start.
type Rates struct {
	Hourly         float64
	Overtime       float64
	ThresholdHours float64
}

// DefaultRates returns the fixed fallback schedule.
func DefaultRates() Rates {
	return Rates{
		Hourly:         DefaultHourlyRate,
		Overtime:       DefaultOvertimeRate,
		ThresholdHours: DefaultThresholdHours,
	}
}

// SettingsReader is the slice of the session store the rate provider needs.
type SettingsReader interface {
	GetRateSettings(userID string) (*store.RateSettings, error)
}

// RateProvider resolves the effective rates for a user and optional
// location. A location rate wins over user settings; user settings win over
// the fixed defaults. When the store is unreachable the provider hands back
// the last rates it successfully resolved so a failing backend never blocks
// the clock.
type RateProvider struct {
	settings SettingsReader
	last     Rates
}

func NewRateProvider(settings SettingsReader) *RateProvider {
	return &RateProvider{settings: settings, last: DefaultRates()}
}

// Resolve returns the effective rates. The returned error reports a store
// failure; the rates are usable either way.
func (p *RateProvider) Resolve(userID string, loc *store.Location) (Rates, error) {
	if loc != nil && loc.HourlyRate != nil {
		r := Rates{
			Hourly:         *loc.HourlyRate,
			Overtime:       *loc.HourlyRate * 1.5,
			ThresholdHours: DefaultThresholdHours,
		}
		if loc.OvertimeRate != nil {
			r.Overtime = *loc.OvertimeRate
		}
		if rs, err := p.settings.GetRateSettings(userID); err == nil && rs != nil {
			r.ThresholdHours = rs.OvertimeThresholdHours
		}
		p.last = r
		return r, nil
	}

	rs, err := p.settings.GetRateSettings(userID)
	if err != nil {
		return p.last, err
	}
	if rs == nil {
		p.last = DefaultRates()
		return p.last, nil
	}
	p.last = Rates{
		Hourly:         rs.HourlyRate,
		Overtime:       rs.OvertimeRate,
		ThresholdHours: rs.OvertimeThresholdHours,
	}
	return p.last, nil
}
