package timer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/halvard/timeclock/internal/store"
)

// Breakdown is the result of the earnings calculation for one session.
type Breakdown struct {
	GrossHours    float64
	NetHours      float64
	RegularHours  float64
	OvertimeHours float64

	RegularEarnings  decimal.Decimal
	OvertimeEarnings decimal.Decimal
	TotalEarnings    decimal.Decimal
}

// Earnings converts the breakdown to the store representation.
func (b Breakdown) Earnings() store.Earnings {
	return store.Earnings{
		Regular:  b.RegularEarnings,
		Overtime: b.OvertimeEarnings,
		Total:    b.TotalEarnings,
	}
}

// Compute derives the pay breakdown for a work period. Break minutes are
// subtracted from gross time; net time beyond the overtime threshold is paid
// at the overtime rate. Net hours are clamped at zero when breaks exceed the
// elapsed time. Deterministic and side-effect free.
func Compute(start, end time.Time, breakMinutes int, rates Rates) Breakdown {
	gross := end.Sub(start).Hours()
	net := gross - float64(breakMinutes)/60
	if net < 0 {
		net = 0
	}

	regular := net
	overtime := 0.0
	if net > rates.ThresholdHours {
		regular = rates.ThresholdHours
		overtime = net - rates.ThresholdHours
	}

	regularPay := decimal.NewFromFloat(regular).Mul(decimal.NewFromFloat(rates.Hourly)).Round(2)
	overtimePay := decimal.NewFromFloat(overtime).Mul(decimal.NewFromFloat(rates.Overtime)).Round(2)

	return Breakdown{
		GrossHours:       gross,
		NetHours:         net,
		RegularHours:     regular,
		OvertimeHours:    overtime,
		RegularEarnings:  regularPay,
		OvertimeEarnings: overtimePay,
		TotalEarnings:    regularPay.Add(overtimePay),
	}
}
