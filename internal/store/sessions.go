package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSession inserts a new running session. When s.ID is empty the store
// assigns a fresh UUID; offline-born sessions keep the id they arrived with.
func (s *Store) CreateSession(ws *WorkSession) error {
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, location_id, address, manual_entry, start_time,
		                       hourly_rate, overtime_rate, overtime_threshold_hours, break_minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.UserID, ws.LocationID, ws.Address, boolToInt(ws.ManualEntry),
		ws.StartTime.UTC().Format(time.RFC3339),
		ws.HourlyRate, ws.OvertimeRate, ws.OvertimeThresholdHours, ws.BreakMinutes, now,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FinishSession records the end time, break total and earnings of a session.
// End time and earnings are written together so the two are never observed
// apart.
func (s *Store) FinishSession(id string, end time.Time, breakMinutes int, e Earnings) error {
	res, err := s.db.Exec(
		`UPDATE sessions
		 SET end_time = ?, break_minutes = ?, regular_earnings = ?, overtime_earnings = ?, total_earnings = ?
		 WHERE id = ? AND end_time IS NULL`,
		end.UTC().Format(time.RFC3339), breakMinutes,
		e.Regular.String(), e.Overtime.String(), e.Total.String(), id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("finish session: no running session with id %s", id)
	}
	return nil
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(id string) (*WorkSession, error) {
	row := s.db.QueryRow(sessionSelect+` WHERE id = ?`, id)
	ws, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return ws, nil
}

// GetRunningSession returns the user's open session, or nil when there is none.
func (s *Store) GetRunningSession(userID string) (*WorkSession, error) {
	row := s.db.QueryRow(
		sessionSelect+` WHERE user_id = ? AND end_time IS NULL ORDER BY start_time DESC LIMIT 1`,
		userID,
	)
	ws, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running session: %w", err)
	}
	return ws, nil
}

// ListSessions returns sessions matching the filter, most recent first.
func (s *Store) ListSessions(f SessionFilter) ([]WorkSession, error) {
	query := sessionSelect + ` WHERE 1=1`
	var args []any

	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND start_time < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	if f.CompletedOnly {
		query += ` AND end_time IS NOT NULL`
	}
	query += ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *ws)
	}
	return sessions, rows.Err()
}

const sessionSelect = `SELECT id, user_id, location_id, address, manual_entry, start_time, end_time,
	hourly_rate, overtime_rate, overtime_threshold_hours, break_minutes,
	regular_earnings, overtime_earnings, total_earnings, created_at
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*WorkSession, error) {
	ws := &WorkSession{}
	var locationID, endTime, regular, overtime, total sql.NullString
	var startTime, createdAt string
	var manual int

	err := row.Scan(
		&ws.ID, &ws.UserID, &locationID, &ws.Address, &manual, &startTime, &endTime,
		&ws.HourlyRate, &ws.OvertimeRate, &ws.OvertimeThresholdHours, &ws.BreakMinutes,
		&regular, &overtime, &total, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	ws.ManualEntry = manual != 0
	if locationID.Valid {
		ws.LocationID = &locationID.String
	}
	ws.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		ws.EndTime = &t
	}
	if regular.Valid && overtime.Valid && total.Valid {
		e := Earnings{}
		e.Regular, _ = decimal.NewFromString(regular.String)
		e.Overtime, _ = decimal.NewFromString(overtime.String)
		e.Total, _ = decimal.NewFromString(total.String)
		ws.Earnings = &e
	}
	ws.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return ws, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
