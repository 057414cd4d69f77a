package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOvertimePeriod records the overtime portion of a completed session.
func (s *Store) CreateOvertimePeriod(p *OvertimePeriod) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO overtime_periods (id, session_id, start_time, end_time, rate, duration_minutes, earnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID,
		p.StartTime.UTC().Format(time.RFC3339), p.EndTime.UTC().Format(time.RFC3339),
		p.Rate, p.DurationMinutes, p.Earnings.String(),
	)
	if err != nil {
		return fmt.Errorf("create overtime period: %w", err)
	}
	return nil
}

// ListOvertimePeriods returns the overtime periods of a session.
func (s *Store) ListOvertimePeriods(sessionID string) ([]OvertimePeriod, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, start_time, end_time, rate, duration_minutes, earnings
		 FROM overtime_periods WHERE session_id = ? ORDER BY start_time`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list overtime periods: %w", err)
	}
	defer rows.Close()

	var periods []OvertimePeriod
	for rows.Next() {
		var p OvertimePeriod
		var start, end, earnings string
		if err := rows.Scan(&p.ID, &p.SessionID, &start, &end, &p.Rate, &p.DurationMinutes, &earnings); err != nil {
			return nil, err
		}
		p.StartTime, _ = time.Parse(time.RFC3339, start)
		p.EndTime, _ = time.Parse(time.RFC3339, end)
		p.Earnings, _ = decimal.NewFromString(earnings)
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
