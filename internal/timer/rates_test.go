package timer

import (
	"errors"
	"testing"

	"github.com/halvard/timeclock/internal/store"
)

type fakeSettings struct {
	settings *store.RateSettings
	err      error
}

func (f *fakeSettings) GetRateSettings(userID string) (*store.RateSettings, error) {
	return f.settings, f.err
}

func TestResolveFixedDefaults(t *testing.T) {
	p := NewRateProvider(&fakeSettings{})
	r, err := p.Resolve("alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Hourly != 25 || r.Overtime != 37.5 || r.ThresholdHours != 8 {
		t.Fatalf("unexpected defaults: %+v", r)
	}
}

func TestResolveUserSettings(t *testing.T) {
	p := NewRateProvider(&fakeSettings{settings: &store.RateSettings{
		UserID: "alice", HourlyRate: 30, OvertimeRate: 50, OvertimeThresholdHours: 7,
	}})
	r, err := p.Resolve("alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Hourly != 30 || r.Overtime != 50 || r.ThresholdHours != 7 {
		t.Fatalf("unexpected rates: %+v", r)
	}
}

func TestResolveLocationWins(t *testing.T) {
	hourly := 40.0
	overtime := 55.0
	p := NewRateProvider(&fakeSettings{settings: &store.RateSettings{
		UserID: "alice", HourlyRate: 30, OvertimeRate: 50, OvertimeThresholdHours: 7,
	}})
	r, err := p.Resolve("alice", &store.Location{HourlyRate: &hourly, OvertimeRate: &overtime})
	if err != nil {
		t.Fatal(err)
	}
	if r.Hourly != 40 || r.Overtime != 55 {
		t.Fatalf("location rates should win: %+v", r)
	}
	// Threshold still comes from the user's settings.
	if r.ThresholdHours != 7 {
		t.Fatalf("threshold = %v, want 7", r.ThresholdHours)
	}
}

func TestResolveLocationOvertimeDefault(t *testing.T) {
	hourly := 40.0
	p := NewRateProvider(&fakeSettings{})
	r, err := p.Resolve("alice", &store.Location{HourlyRate: &hourly})
	if err != nil {
		t.Fatal(err)
	}
	if r.Overtime != 60 {
		t.Fatalf("overtime = %v, want 1.5x hourly = 60", r.Overtime)
	}
}

func TestResolveLocationWithoutRate(t *testing.T) {
	// A location with no rate of its own falls through to user settings.
	p := NewRateProvider(&fakeSettings{settings: &store.RateSettings{
		UserID: "alice", HourlyRate: 30, OvertimeRate: 50, OvertimeThresholdHours: 8,
	}})
	r, _ := p.Resolve("alice", &store.Location{Name: "Office"})
	if r.Hourly != 30 {
		t.Fatalf("hourly = %v, want user setting 30", r.Hourly)
	}
}

func TestResolveStoreFailureKeepsLastKnown(t *testing.T) {
	f := &fakeSettings{settings: &store.RateSettings{
		UserID: "alice", HourlyRate: 30, OvertimeRate: 50, OvertimeThresholdHours: 7,
	}}
	p := NewRateProvider(f)
	p.Resolve("alice", nil)

	f.err = errors.New("connection refused")
	r, err := p.Resolve("alice", nil)
	if err == nil {
		t.Fatal("expected the store error to be reported")
	}
	if r.Hourly != 30 || r.Overtime != 50 || r.ThresholdHours != 7 {
		t.Fatalf("should keep last known rates: %+v", r)
	}
}

func TestResolveStoreFailureBeforeAnySuccess(t *testing.T) {
	p := NewRateProvider(&fakeSettings{err: errors.New("connection refused")})
	r, err := p.Resolve("alice", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if r.Hourly != 25 || r.Overtime != 37.5 || r.ThresholdHours != 8 {
		t.Fatalf("should fall back to fixed defaults: %+v", r)
	}
}
