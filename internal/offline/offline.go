// Package offline is the on-device fallback used when the session database
// is unreachable: it mirrors the running session across restarts and retains
// completed sessions until the backend can be reached again.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halvard/timeclock/internal/store"
)

// KV is string-keyed local persistence. Get returns ErrNotFound for a
// missing key.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ErrNotFound is returned by KV.Get for keys that were never set.
var ErrNotFound = errors.New("key not found")

// FileKV keeps the key-value map in a single JSON file, rewritten on every
// Set. Values are small (one mirror, one session list), so no durability
// machinery beyond the atomic-enough single write is warranted.
type FileKV struct {
	path string
	mu   sync.Mutex
}

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

// DefaultKVPath returns ~/.config/timeclock/offline.json
func DefaultKVPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timeclock", "offline.json"), nil
}

func (f *FileKV) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		m = map[string]string{}
	}
	m[key] = value
	return f.save(m)
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return nil
	}
	delete(m, key)
	return f.save(m)
}

func (f *FileKV) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt kv file: %w", err)
	}
	return m, nil
}

func (f *FileKV) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

// MemoryKV is an in-memory KV for tests.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: map[string]string{}}
}

func (k *MemoryKV) Get(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (k *MemoryKV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *MemoryKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

const (
	keyRunningMirror   = "running_session"
	keyOfflineSessions = "offline_sessions"
)

// RunningMirror is the locally persisted image of the in-flight session.
// It carries everything needed to resume tracking after a restart, including
// whether the remote row still has to be created.
type RunningMirror struct {
	SessionID              string    `json:"session_id"`
	UserID                 string    `json:"user_id"`
	LocationID             *string   `json:"location_id,omitempty"`
	Address                string    `json:"address,omitempty"`
	ManualEntry            bool      `json:"manual_entry,omitempty"`
	StartTime              time.Time `json:"start_time"`
	HourlyRate             float64   `json:"hourly_rate"`
	OvertimeRate           float64   `json:"overtime_rate"`
	OvertimeThresholdHours float64   `json:"overtime_threshold_hours"`
	BreakMinutes           int       `json:"break_minutes"`
	RemotePending          bool      `json:"remote_pending"`
	Attempts               int       `json:"attempts"`
}

// sessionRecord is the JSON shape of an offline-retained completed session.
type sessionRecord struct {
	ID                     string     `json:"id"`
	UserID                 string     `json:"user_id"`
	LocationID             *string    `json:"location_id,omitempty"`
	Address                string     `json:"address,omitempty"`
	ManualEntry            bool       `json:"manual_entry,omitempty"`
	StartTime              time.Time  `json:"start_time"`
	EndTime                *time.Time `json:"end_time,omitempty"`
	HourlyRate             float64    `json:"hourly_rate"`
	OvertimeRate           float64    `json:"overtime_rate"`
	OvertimeThresholdHours float64    `json:"overtime_threshold_hours"`
	BreakMinutes           int        `json:"break_minutes"`
	RegularEarnings        *string    `json:"regular_earnings,omitempty"`
	OvertimeEarnings       *string    `json:"overtime_earnings,omitempty"`
	TotalEarnings          *string    `json:"total_earnings,omitempty"`
}

// Store is the typed fallback store over a KV.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// SaveMirror persists the running-session mirror.
func (s *Store) SaveMirror(m RunningMirror) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.kv.Set(keyRunningMirror, string(data))
}

// LoadMirror returns the running-session mirror, or nil when there is none.
// A corrupt mirror is treated as absent.
func (s *Store) LoadMirror() (*RunningMirror, error) {
	raw, err := s.kv.Get(keyRunningMirror)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m RunningMirror
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, nil
	}
	return &m, nil
}

// ClearMirror removes the running-session mirror.
func (s *Store) ClearMirror() error {
	return s.kv.Delete(keyRunningMirror)
}

// AppendSession retains a completed session locally. Appending the same
// session id twice replaces the earlier copy, so redelivery is harmless.
func (s *Store) AppendSession(ws store.WorkSession) error {
	records := s.loadRecords()

	rec := toRecord(ws)
	replaced := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Set(keyOfflineSessions, string(data))
}

// ListSessions returns all offline-retained sessions. It never fails:
// missing or corrupt data yields an empty list.
func (s *Store) ListSessions() []store.WorkSession {
	records := s.loadRecords()
	sessions := make([]store.WorkSession, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, fromRecord(r))
	}
	return sessions
}

func (s *Store) loadRecords() []sessionRecord {
	raw, err := s.kv.Get(keyOfflineSessions)
	if err != nil {
		return nil
	}
	var records []sessionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil
	}
	return records
}

func toRecord(ws store.WorkSession) sessionRecord {
	rec := sessionRecord{
		ID:                     ws.ID,
		UserID:                 ws.UserID,
		LocationID:             ws.LocationID,
		Address:                ws.Address,
		ManualEntry:            ws.ManualEntry,
		StartTime:              ws.StartTime,
		EndTime:                ws.EndTime,
		HourlyRate:             ws.HourlyRate,
		OvertimeRate:           ws.OvertimeRate,
		OvertimeThresholdHours: ws.OvertimeThresholdHours,
		BreakMinutes:           ws.BreakMinutes,
	}
	if ws.Earnings != nil {
		reg := ws.Earnings.Regular.String()
		ot := ws.Earnings.Overtime.String()
		total := ws.Earnings.Total.String()
		rec.RegularEarnings = &reg
		rec.OvertimeEarnings = &ot
		rec.TotalEarnings = &total
	}
	return rec
}

func fromRecord(r sessionRecord) store.WorkSession {
	ws := store.WorkSession{
		ID:                     r.ID,
		UserID:                 r.UserID,
		LocationID:             r.LocationID,
		Address:                r.Address,
		ManualEntry:            r.ManualEntry,
		StartTime:              r.StartTime,
		EndTime:                r.EndTime,
		HourlyRate:             r.HourlyRate,
		OvertimeRate:           r.OvertimeRate,
		OvertimeThresholdHours: r.OvertimeThresholdHours,
		BreakMinutes:           r.BreakMinutes,
	}
	if r.RegularEarnings != nil && r.OvertimeEarnings != nil && r.TotalEarnings != nil {
		e := store.Earnings{}
		e.Regular, _ = decimal.NewFromString(*r.RegularEarnings)
		e.Overtime, _ = decimal.NewFromString(*r.OvertimeEarnings)
		e.Total, _ = decimal.NewFromString(*r.TotalEarnings)
		ws.Earnings = &e
	}
	return ws
}
