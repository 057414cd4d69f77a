package offline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halvard/timeclock/internal/store"
)

func completedSession(id string, start time.Time) store.WorkSession {
	end := start.Add(8 * time.Hour)
	return store.WorkSession{
		ID:                     id,
		UserID:                 "alice",
		StartTime:              start,
		EndTime:                &end,
		HourlyRate:             20,
		OvertimeRate:           30,
		OvertimeThresholdHours: 8,
		Earnings: &store.Earnings{
			Regular:  decimal.RequireFromString("160"),
			Overtime: decimal.Zero,
			Total:    decimal.RequireFromString("160"),
		},
	}
}

// ============================================================
// FileKV
// ============================================================

func TestFileKVRoundTrip(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "sub", "offline.json"))

	if _, err := kv.Get("missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := kv.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	v, err := kv.Get("a")
	if err != nil || v != "1" {
		t.Fatalf("got %q, %v", v, err)
	}
	if err := kv.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get("a"); err != ErrNotFound {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.json")
	kv := NewFileKV(path)
	kv.Set("a", "1")

	kv2 := NewFileKV(path)
	v, err := kv2.Get("a")
	if err != nil || v != "1" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestFileKVDeleteMissingFile(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "offline.json"))
	if err := kv.Delete("nothing"); err != nil {
		t.Fatalf("delete on missing file: %v", err)
	}
}

// ============================================================
// Running mirror
// ============================================================

func TestMirrorRoundTrip(t *testing.T) {
	s := NewStore(NewMemoryKV())

	m, err := s.LoadMirror()
	if err != nil || m != nil {
		t.Fatalf("empty store: mirror = %+v err = %v", m, err)
	}

	saved := RunningMirror{
		SessionID:              "remote-1",
		UserID:                 "alice",
		StartTime:              time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		HourlyRate:             25,
		OvertimeRate:           37.5,
		OvertimeThresholdHours: 8,
		BreakMinutes:           15,
		RemotePending:          true,
		Attempts:               2,
	}
	if err := s.SaveMirror(saved); err != nil {
		t.Fatal(err)
	}

	m, err = s.LoadMirror()
	if err != nil {
		t.Fatal(err)
	}
	if m.SessionID != "remote-1" || m.BreakMinutes != 15 || !m.RemotePending || m.Attempts != 2 {
		t.Fatalf("mirror = %+v", m)
	}
	if !m.StartTime.Equal(saved.StartTime) {
		t.Fatalf("start = %v, want %v", m.StartTime, saved.StartTime)
	}

	if err := s.ClearMirror(); err != nil {
		t.Fatal(err)
	}
	m, _ = s.LoadMirror()
	if m != nil {
		t.Fatal("mirror should be gone after clear")
	}
}

func TestMirrorCorruptTreatedAsAbsent(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set("running_session", "{not json")

	s := NewStore(kv)
	m, err := s.LoadMirror()
	if err != nil || m != nil {
		t.Fatalf("corrupt mirror: %+v, %v", m, err)
	}
}

// ============================================================
// Offline session list
// ============================================================

func TestAppendAndListSessions(t *testing.T) {
	s := NewStore(NewMemoryKV())
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := s.AppendSession(completedSession("local-1", start)); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendSession(completedSession("local-2", start.AddDate(0, 0, 1))); err != nil {
		t.Fatal(err)
	}

	sessions := s.ListSessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	got := sessions[0]
	if got.ID != "local-1" || got.UserID != "alice" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.StartTime.Equal(start) {
		t.Fatalf("start = %v, want %v", got.StartTime, start)
	}
	if got.EndTime == nil || !got.EndTime.Equal(start.Add(8*time.Hour)) {
		t.Fatalf("end = %v", got.EndTime)
	}
	if got.Earnings == nil || !got.Earnings.Total.Equal(decimal.RequireFromString("160")) {
		t.Fatalf("earnings = %+v", got.Earnings)
	}
}

func TestAppendIdempotentByID(t *testing.T) {
	s := NewStore(NewMemoryKV())
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	ws := completedSession("local-1", start)
	s.AppendSession(ws)

	ws.BreakMinutes = 30
	s.AppendSession(ws)

	sessions := s.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].BreakMinutes != 30 {
		t.Fatal("re-append should replace the earlier copy")
	}
}

func TestListSessionsNeverFails(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set("offline_sessions", "][")

	s := NewStore(kv)
	if sessions := s.ListSessions(); len(sessions) != 0 {
		t.Fatalf("corrupt list should read as empty, got %d", len(sessions))
	}
}

func TestFileBackedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.json")
	s := NewStore(NewFileKV(path))
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.AppendSession(completedSession("local-1", start))

	// Fresh instance over the same file.
	s2 := NewStore(NewFileKV(path))
	sessions := s2.ListSessions()
	if len(sessions) != 1 || sessions[0].ID != "local-1" {
		t.Fatalf("sessions = %+v", sessions)
	}
}
