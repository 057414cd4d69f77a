// Package history reads completed sessions through an ordered chain of data
// sources and rolls them up for reporting.
package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/halvard/timeclock/internal/offline"
	"github.com/halvard/timeclock/internal/store"
)

// Source is one named place completed sessions can come from. Fetch returns
// sessions started in [from, to).
type Source struct {
	Name  string
	Fetch func(userID string, from, to time.Time) ([]store.WorkSession, error)
}

// RemoteReader is the slice of the session database the history view needs.
type RemoteReader interface {
	ListSessions(f store.SessionFilter) ([]store.WorkSession, error)
}

// Service fetches completed sessions by trying each source in order. A
// source that errors, or that has nothing for the range, yields to the next;
// the offline fallback gets the same date-range filter as the remote query.
type Service struct {
	sources []Source
	log     logrus.FieldLogger
}

func NewService(remote RemoteReader, local *offline.Store, log logrus.FieldLogger) *Service {
	return &Service{
		log: log,
		sources: []Source{
			{
				Name: "remote",
				Fetch: func(userID string, from, to time.Time) ([]store.WorkSession, error) {
					return remote.ListSessions(store.SessionFilter{
						UserID:        userID,
						From:          &from,
						To:            &to,
						CompletedOnly: true,
					})
				},
			},
			{
				Name: "offline",
				Fetch: func(userID string, from, to time.Time) ([]store.WorkSession, error) {
					var out []store.WorkSession
					for _, s := range local.ListSessions() {
						if s.UserID != userID || s.EndTime == nil {
							continue
						}
						if s.StartTime.Before(from) || !s.StartTime.Before(to) {
							continue
						}
						out = append(out, s)
					}
					return out, nil
				},
			},
		},
	}
}

// NewServiceWithSources builds a service over an explicit chain, for tests.
func NewServiceWithSources(log logrus.FieldLogger, sources ...Source) *Service {
	return &Service{sources: sources, log: log}
}

// Fetch returns the user's completed sessions in [from, to), most recent
// first, together with the name of the source that served them. Empty
// results with an empty source name mean no source had data.
func (s *Service) Fetch(userID string, from, to time.Time) ([]store.WorkSession, string) {
	for _, src := range s.sources {
		sessions, err := src.Fetch(userID, from, to)
		if err != nil {
			s.log.WithError(err).WithField("source", src.Name).
				Warn("history source failed, trying next")
			continue
		}
		if len(sessions) == 0 {
			continue
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].StartTime.After(sessions[j].StartTime)
		})
		return sessions, src.Name
	}
	return nil, ""
}

// DayRollup is the per-day sum over a set of completed sessions.
type DayRollup struct {
	Date     string // YYYY-MM-DD, UTC
	Sessions int
	Hours    float64
	Earnings decimal.Decimal
}

// LocationRollup is the per-location sum over a set of completed sessions.
type LocationRollup struct {
	Label    string // location address, or "No location"
	Sessions int
	Hours    float64
	Earnings decimal.Decimal
}

// ByDay groups completed sessions by calendar day, oldest day first.
// Pure aggregation over the already-fetched slice.
func ByDay(sessions []store.WorkSession) []DayRollup {
	byDate := map[string]*DayRollup{}
	for _, s := range sessions {
		if s.EndTime == nil {
			continue
		}
		date := s.StartTime.UTC().Format("2006-01-02")
		r, ok := byDate[date]
		if !ok {
			r = &DayRollup{Date: date}
			byDate[date] = r
		}
		accumulate(&r.Sessions, &r.Hours, &r.Earnings, s)
	}

	rollups := make([]DayRollup, 0, len(byDate))
	for _, r := range byDate {
		rollups = append(rollups, *r)
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].Date < rollups[j].Date })
	return rollups
}

// ByLocation groups completed sessions by location label, largest earnings
// first.
func ByLocation(sessions []store.WorkSession) []LocationRollup {
	byLabel := map[string]*LocationRollup{}
	for _, s := range sessions {
		if s.EndTime == nil {
			continue
		}
		label := s.Address
		if label == "" {
			label = "No location"
		}
		r, ok := byLabel[label]
		if !ok {
			r = &LocationRollup{Label: label}
			byLabel[label] = r
		}
		accumulate(&r.Sessions, &r.Hours, &r.Earnings, s)
	}

	rollups := make([]LocationRollup, 0, len(byLabel))
	for _, r := range byLabel {
		rollups = append(rollups, *r)
	}
	sort.Slice(rollups, func(i, j int) bool {
		return rollups[i].Earnings.GreaterThan(rollups[j].Earnings)
	})
	return rollups
}

func accumulate(count *int, hours *float64, earnings *decimal.Decimal, s store.WorkSession) {
	*count++
	worked := s.EndTime.Sub(s.StartTime).Hours() - float64(s.BreakMinutes)/60
	if worked < 0 {
		worked = 0
	}
	*hours += worked
	if s.Earnings != nil {
		*earnings = earnings.Add(s.Earnings.Total)
	}
}
