package history

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/halvard/timeclock/internal/offline"
	"github.com/halvard/timeclock/internal/store"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func session(id, userID string, start time.Time, hours float64, address, total string) store.WorkSession {
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	return store.WorkSession{
		ID:                     id,
		UserID:                 userID,
		Address:                address,
		StartTime:              start,
		EndTime:                &end,
		HourlyRate:             20,
		OvertimeRate:           30,
		OvertimeThresholdHours: 8,
		Earnings: &store.Earnings{
			Regular:  decimal.RequireFromString(total),
			Overtime: decimal.Zero,
			Total:    decimal.RequireFromString(total),
		},
	}
}

type stubRemote struct {
	sessions []store.WorkSession
	err      error
}

func (s *stubRemote) ListSessions(f store.SessionFilter) ([]store.WorkSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []store.WorkSession
	for _, ws := range s.sessions {
		if f.UserID != "" && ws.UserID != f.UserID {
			continue
		}
		if f.From != nil && ws.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && !ws.StartTime.Before(*f.To) {
			continue
		}
		out = append(out, ws)
	}
	return out, nil
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func week() (time.Time, time.Time) {
	return base.AddDate(0, 0, -1), base.AddDate(0, 0, 6)
}

// ============================================================
// Fallback chain
// ============================================================

func TestFetchPrefersRemote(t *testing.T) {
	remote := &stubRemote{sessions: []store.WorkSession{
		session("r1", "alice", base, 8, "", "160"),
	}}
	local := offline.NewStore(offline.NewMemoryKV())
	local.AppendSession(session("l1", "alice", base, 4, "", "80"))

	svc := NewService(remote, local, testLogger())
	from, to := week()
	sessions, source := svc.Fetch("alice", from, to)
	if source != "remote" {
		t.Fatalf("source = %q, want remote", source)
	}
	if len(sessions) != 1 || sessions[0].ID != "r1" {
		t.Fatalf("sessions = %+v", sessions)
	}
}

func TestFetchFallsBackOnError(t *testing.T) {
	remote := &stubRemote{err: errors.New("network down")}
	local := offline.NewStore(offline.NewMemoryKV())
	local.AppendSession(session("l1", "alice", base, 4, "", "80"))

	svc := NewService(remote, local, testLogger())
	from, to := week()
	sessions, source := svc.Fetch("alice", from, to)
	if source != "offline" {
		t.Fatalf("source = %q, want offline", source)
	}
	if len(sessions) != 1 || sessions[0].ID != "l1" {
		t.Fatalf("sessions = %+v", sessions)
	}
}

func TestFetchFallsBackOnEmpty(t *testing.T) {
	remote := &stubRemote{}
	local := offline.NewStore(offline.NewMemoryKV())
	local.AppendSession(session("l1", "alice", base, 4, "", "80"))

	svc := NewService(remote, local, testLogger())
	from, to := week()
	_, source := svc.Fetch("alice", from, to)
	if source != "offline" {
		t.Fatalf("source = %q, want offline", source)
	}
}

func TestFetchOfflineRespectsRange(t *testing.T) {
	remote := &stubRemote{err: errors.New("network down")}
	local := offline.NewStore(offline.NewMemoryKV())
	local.AppendSession(session("in", "alice", base, 4, "", "80"))
	local.AppendSession(session("out", "alice", base.AddDate(0, -1, 0), 4, "", "80"))
	local.AppendSession(session("other", "bob", base, 4, "", "80"))

	svc := NewService(remote, local, testLogger())
	from, to := week()
	sessions, _ := svc.Fetch("alice", from, to)
	if len(sessions) != 1 || sessions[0].ID != "in" {
		t.Fatalf("offline fallback must filter by range and user: %+v", sessions)
	}
}

func TestFetchNothingAnywhere(t *testing.T) {
	svc := NewService(&stubRemote{}, offline.NewStore(offline.NewMemoryKV()), testLogger())
	from, to := week()
	sessions, source := svc.Fetch("alice", from, to)
	if sessions != nil || source != "" {
		t.Fatalf("got %v from %q, want nothing", sessions, source)
	}
}

func TestFetchOrdersMostRecentFirst(t *testing.T) {
	remote := &stubRemote{sessions: []store.WorkSession{
		session("old", "alice", base, 8, "", "160"),
		session("new", "alice", base.AddDate(0, 0, 2), 8, "", "160"),
	}}
	svc := NewService(remote, offline.NewStore(offline.NewMemoryKV()), testLogger())
	from, to := week()
	sessions, _ := svc.Fetch("alice", from, to)
	if len(sessions) != 2 || sessions[0].ID != "new" {
		t.Fatalf("sessions = %+v", sessions)
	}
}

// ============================================================
// Rollups
// ============================================================

func TestByDay(t *testing.T) {
	sessions := []store.WorkSession{
		session("a", "alice", base, 8, "", "160"),
		session("b", "alice", base.Add(10*time.Hour), 2, "", "40"),
		session("c", "alice", base.AddDate(0, 0, 1), 4, "", "80"),
	}
	// A 30 min break on the first session.
	sessions[0].BreakMinutes = 30

	rollups := ByDay(sessions)
	if len(rollups) != 2 {
		t.Fatalf("expected 2 days, got %d", len(rollups))
	}
	day1 := rollups[0]
	if day1.Sessions != 2 {
		t.Fatalf("day1 sessions = %d, want 2", day1.Sessions)
	}
	if day1.Hours != 9.5 {
		t.Fatalf("day1 hours = %v, want 9.5 (8-0.5 + 2)", day1.Hours)
	}
	if !day1.Earnings.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("day1 earnings = %s, want 200", day1.Earnings)
	}
	if rollups[0].Date >= rollups[1].Date {
		t.Fatal("days should be sorted ascending")
	}
}

func TestByDaySkipsRunning(t *testing.T) {
	open := session("open", "alice", base, 8, "", "160")
	open.EndTime = nil
	open.Earnings = nil

	rollups := ByDay([]store.WorkSession{open})
	if len(rollups) != 0 {
		t.Fatal("running sessions must not appear in rollups")
	}
}

func TestByLocation(t *testing.T) {
	sessions := []store.WorkSession{
		session("a", "alice", base, 8, "12 Dock Rd", "160"),
		session("b", "alice", base.AddDate(0, 0, 1), 8, "12 Dock Rd", "160"),
		session("c", "alice", base.AddDate(0, 0, 2), 2, "", "40"),
	}

	rollups := ByLocation(sessions)
	if len(rollups) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(rollups))
	}
	// Largest earnings first.
	if rollups[0].Label != "12 Dock Rd" || rollups[0].Sessions != 2 {
		t.Fatalf("rollups[0] = %+v", rollups[0])
	}
	if !rollups[0].Earnings.Equal(decimal.RequireFromString("320")) {
		t.Fatalf("earnings = %s, want 320", rollups[0].Earnings)
	}
	if rollups[1].Label != "No location" {
		t.Fatalf("rollups[1] = %+v", rollups[1])
	}
}

func TestCustomSourceChain(t *testing.T) {
	calls := []string{}
	svc := NewServiceWithSources(testLogger(),
		Source{Name: "first", Fetch: func(userID string, from, to time.Time) ([]store.WorkSession, error) {
			calls = append(calls, "first")
			return nil, errors.New("down")
		}},
		Source{Name: "second", Fetch: func(userID string, from, to time.Time) ([]store.WorkSession, error) {
			calls = append(calls, "second")
			return []store.WorkSession{session("s", "alice", base, 1, "", "20")}, nil
		}},
	)
	from, to := week()
	_, source := svc.Fetch("alice", from, to)
	if source != "second" || len(calls) != 2 {
		t.Fatalf("source = %q calls = %v", source, calls)
	}
}
