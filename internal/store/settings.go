package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetRateSettings returns the user's saved pay rates, or nil when the user
// has never saved any.
func (s *Store) GetRateSettings(userID string) (*RateSettings, error) {
	rs := &RateSettings{}
	var updatedAt string
	err := s.db.QueryRow(
		`SELECT user_id, hourly_rate, overtime_rate, overtime_threshold_hours, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&rs.UserID, &rs.HourlyRate, &rs.OvertimeRate, &rs.OvertimeThresholdHours, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate settings: %w", err)
	}
	rs.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rs, nil
}

// SaveRateSettings upserts the user's pay rates.
func (s *Store) SaveRateSettings(rs RateSettings) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO user_settings (user_id, hourly_rate, overtime_rate, overtime_threshold_hours, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   hourly_rate = excluded.hourly_rate,
		   overtime_rate = excluded.overtime_rate,
		   overtime_threshold_hours = excluded.overtime_threshold_hours,
		   updated_at = excluded.updated_at`,
		rs.UserID, rs.HourlyRate, rs.OvertimeRate, rs.OvertimeThresholdHours, now,
	)
	if err != nil {
		return fmt.Errorf("save rate settings: %w", err)
	}
	return nil
}
