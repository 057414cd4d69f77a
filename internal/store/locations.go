package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateLocation saves a work location for the user.
func (s *Store) CreateLocation(l *Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO locations (id, user_id, name, address, latitude, longitude, radius_meters,
		                        hourly_rate, overtime_rate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, l.Address, l.Latitude, l.Longitude, l.RadiusMeters,
		l.HourlyRate, l.OvertimeRate, now,
	)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// GetLocation returns the location with the given id.
func (s *Store) GetLocation(id string) (*Location, error) {
	row := s.db.QueryRow(locationSelect+` WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err != nil {
		return nil, fmt.Errorf("get location %s: %w", id, err)
	}
	return l, nil
}

// ListLocations returns the user's saved locations sorted by name.
func (s *Store) ListLocations(userID string) ([]Location, error) {
	rows, err := s.db.Query(locationSelect+` WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

// DeleteLocation removes a saved location. Sessions that referenced it keep
// their frozen rates.
func (s *Store) DeleteLocation(id string) error {
	_, err := s.db.Exec(`DELETE FROM locations WHERE id = ?`, id)
	return err
}

const locationSelect = `SELECT id, user_id, name, address, latitude, longitude, radius_meters,
	hourly_rate, overtime_rate, created_at
	FROM locations`

func scanLocation(row rowScanner) (*Location, error) {
	l := &Location{}
	var lat, lon, hourly, overtime sql.NullFloat64
	var createdAt string

	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Address, &lat, &lon, &l.RadiusMeters,
		&hourly, &overtime, &createdAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		l.Latitude = &lat.Float64
	}
	if lon.Valid {
		l.Longitude = &lon.Float64
	}
	if hourly.Valid {
		l.HourlyRate = &hourly.Float64
	}
	if overtime.Valid {
		l.OvertimeRate = &overtime.Float64
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return l, nil
}
