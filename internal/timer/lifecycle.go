package timer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halvard/timeclock/internal/offline"
	"github.com/halvard/timeclock/internal/store"
)

var (
	// ErrNoUser is returned by Start when no authenticated user is available.
	ErrNoUser = errors.New("no authenticated user")
	// ErrAlreadyRunning is returned by Start while a session is in progress.
	ErrAlreadyRunning = errors.New("a session is already running")
	// ErrNotRunning is returned by Stop and the break operations while idle.
	ErrNotRunning = errors.New("no session is running")
	// ErrBreakActive is returned by StartBreak while a break is in progress.
	ErrBreakActive = errors.New("a break is already active")
)

// Identity supplies the current user. Authentication is an external
// collaborator; a failure here means the clock refuses to start.
type Identity interface {
	CurrentUserID() (string, error)
}

// SessionWriter is the slice of the session database the lifecycle writes to.
type SessionWriter interface {
	CreateSession(*store.WorkSession) error
	FinishSession(id string, end time.Time, breakMinutes int, e store.Earnings) error
	CreateOvertimePeriod(*store.OvertimePeriod) error
}

// MirrorStore is the local fallback: the running-session mirror plus the
// offline-retained completed sessions.
type MirrorStore interface {
	SaveMirror(offline.RunningMirror) error
	LoadMirror() (*offline.RunningMirror, error)
	ClearMirror() error
	AppendSession(store.WorkSession) error
}

// State is the top-level lifecycle state. The break sub-state is orthogonal
// and owned by the BreakTracker.
type State int

const (
	StateIdle State = iota
	StateRunning
)

// TickInfo is the live view of the running session, recomputed once per tick.
type TickInfo struct {
	Running        bool
	Elapsed        time.Duration
	Breakdown      Breakdown
	BreakActive    bool
	BreakRemaining time.Duration
	RemotePending  bool
}

// StopResult is everything the caller learns from a completed session. The
// breakdown is always present, whatever happened to persistence.
type StopResult struct {
	Session       store.WorkSession
	Breakdown     Breakdown
	SavedRemotely bool
	Overtime      *store.OvertimePeriod
}

// Lifecycle is the session state machine: Idle -> Running -> Idle. It owns
// the single currently-running session, freezes rates at start, delegates
// break bookkeeping to the BreakTracker and earnings to Compute, and keeps
// the session alive locally when the remote store misbehaves.
//
// The mutex makes transitions safe against the retry callback, which fires
// on a scheduler goroutine.
type Lifecycle struct {
	mu       sync.Mutex
	remote   SessionWriter
	local    MirrorStore
	identity Identity
	rates    *RateProvider
	clock    Clock
	sched    Scheduler
	policy   RetryPolicy
	log      logrus.FieldLogger

	state         State
	session       store.WorkSession
	breaks        BreakTracker
	remotePending bool
	attempts      int
	cancelRetry   CancelFunc
}

func NewLifecycle(remote SessionWriter, local MirrorStore, identity Identity, rates *RateProvider, log logrus.FieldLogger) *Lifecycle {
	return &Lifecycle{
		remote:   remote,
		local:    local,
		identity: identity,
		rates:    rates,
		clock:    SystemClock(),
		sched:    SystemScheduler(),
		policy:   DefaultRetryPolicy(),
		log:      log,
	}
}

// State returns the current top-level state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Running reports whether a session is in progress.
func (l *Lifecycle) Running() bool {
	return l.State() == StateRunning
}

// Session returns a snapshot of the running session. Only meaningful while
// running.
func (l *Lifecycle) Session() store.WorkSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Start begins a new session, freezing the effective rates. The session is
// created remotely; when that fails it still starts, carries a local id, and
// remote creation retries on the policy schedule. The running mirror is
// written in every case so a restart resumes tracking.
func (l *Lifecycle) Start(loc *store.Location) (store.WorkSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateRunning {
		return store.WorkSession{}, ErrAlreadyRunning
	}

	userID, err := l.identity.CurrentUserID()
	if err != nil || userID == "" {
		return store.WorkSession{}, ErrNoUser
	}

	now := l.clock.Now()
	rates, err := l.rates.Resolve(userID, loc)
	if err != nil {
		l.log.WithError(err).Warn("rate lookup failed, using last known rates")
	}

	l.session = store.WorkSession{
		UserID:                 userID,
		StartTime:              now,
		HourlyRate:             rates.Hourly,
		OvertimeRate:           rates.Overtime,
		OvertimeThresholdHours: rates.ThresholdHours,
	}
	if loc != nil {
		l.session.LocationID = &loc.ID
		l.session.Address = loc.Address
	}
	l.breaks.Reset()
	l.remotePending = false
	l.attempts = 0

	if err := l.remote.CreateSession(&l.session); err != nil {
		l.session.ID = localID(now)
		l.remotePending = true
		l.attempts = 1
		l.log.WithError(err).WithField("session", l.session.ID).
			Warn("remote session create failed, tracking locally")
		l.scheduleRetryLocked()
	}

	l.state = StateRunning
	l.writeMirrorLocked()
	return l.session, nil
}

// Stop ends the running session. An active break is force-ended first. The
// computed breakdown is returned regardless of persistence outcome: a failed
// remote write degrades to the offline store, never to a lost session.
func (l *Lifecycle) Stop() (*StopResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return nil, ErrNotRunning
	}

	now := l.clock.Now()
	if l.breaks.Active() {
		l.breaks.End(now)
	}
	l.session.BreakMinutes = l.breaks.TotalMinutes()

	bd := Compute(l.session.StartTime, now, l.session.BreakMinutes, l.sessionRates())
	end := now
	earnings := bd.Earnings()
	l.session.EndTime = &end
	l.session.Earnings = &earnings

	saved := false
	if l.remotePending {
		// The remote row never materialized; the completed session lives in
		// the offline store until the backend is reachable again.
		if err := l.local.AppendSession(l.session); err != nil {
			l.log.WithError(err).Error("offline session save failed")
		}
	} else {
		err := l.remote.FinishSession(l.session.ID, now, l.session.BreakMinutes, earnings)
		if err != nil {
			l.log.WithError(err).WithField("session", l.session.ID).
				Warn("remote session finish failed, keeping session offline")
			if err := l.local.AppendSession(l.session); err != nil {
				l.log.WithError(err).Error("offline session save failed")
			}
		} else {
			saved = true
		}
	}

	result := &StopResult{Session: l.session, Breakdown: bd, SavedRemotely: saved}
	if bd.OvertimeHours > 0 {
		result.Overtime = overtimePeriod(l.session, bd)
		if saved {
			if err := l.remote.CreateOvertimePeriod(result.Overtime); err != nil {
				l.log.WithError(err).WithField("session", l.session.ID).
					Warn("overtime period insert failed")
			}
		}
	}

	if l.cancelRetry != nil {
		l.cancelRetry()
		l.cancelRetry = nil
	}
	if err := l.local.ClearMirror(); err != nil {
		l.log.WithError(err).Warn("clear running mirror failed")
	}

	l.state = StateIdle
	l.remotePending = false
	l.attempts = 0
	l.session = store.WorkSession{}
	return result, nil
}

// StartBreak begins a lunch break of the planned length. Auto-end happens on
// the tick once the planned time is up.
func (l *Lifecycle) StartBreak(plannedMinutes int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return ErrNotRunning
	}
	if !l.breaks.Start(l.clock.Now(), plannedMinutes) {
		return ErrBreakActive
	}
	return nil
}

// EndBreak ends the active break and returns the minutes added to the
// session total. Ending with no active break is a no-op.
func (l *Lifecycle) EndBreak() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return 0, ErrNotRunning
	}
	added := l.breaks.End(l.clock.Now())
	if added > 0 {
		l.session.BreakMinutes = l.breaks.TotalMinutes()
		l.writeMirrorLocked()
	}
	return added, nil
}

// Tick recomputes the live view for the given instant, auto-ending an
// over-due break. Ticking twice for the same instant yields the same view
// and folds nothing twice.
func (l *Lifecycle) Tick(now time.Time) TickInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return TickInfo{}
	}

	if l.breaks.Due(now) {
		l.breaks.End(now)
		l.session.BreakMinutes = l.breaks.TotalMinutes()
		l.writeMirrorLocked()
	}

	breakMinutes := l.breaks.TotalMinutes()
	if l.breaks.Active() {
		breakMinutes += int(now.Sub(l.breaks.StartTime()).Minutes())
	}

	return TickInfo{
		Running:        true,
		Elapsed:        now.Sub(l.session.StartTime),
		Breakdown:      Compute(l.session.StartTime, now, breakMinutes, l.sessionRates()),
		BreakActive:    l.breaks.Active(),
		BreakRemaining: l.breaks.Remaining(now),
		RemotePending:  l.remotePending,
	}
}

// Resume rebuilds a running session from the local mirror after a restart.
// A still-pending remote creation re-enters the retry loop where it left
// off. Returns true when a session was resumed.
func (l *Lifecycle) Resume() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateRunning {
		return false, nil
	}
	m, err := l.local.LoadMirror()
	if err != nil {
		return false, fmt.Errorf("load running mirror: %w", err)
	}
	if m == nil {
		return false, nil
	}

	l.session = store.WorkSession{
		ID:                     m.SessionID,
		UserID:                 m.UserID,
		LocationID:             m.LocationID,
		Address:                m.Address,
		ManualEntry:            m.ManualEntry,
		StartTime:              m.StartTime,
		HourlyRate:             m.HourlyRate,
		OvertimeRate:           m.OvertimeRate,
		OvertimeThresholdHours: m.OvertimeThresholdHours,
		BreakMinutes:           m.BreakMinutes,
	}
	l.breaks.Restore(m.BreakMinutes)
	l.remotePending = m.RemotePending
	l.attempts = m.Attempts
	l.state = StateRunning

	if l.remotePending {
		l.scheduleRetryLocked()
	}
	l.log.WithField("session", l.session.ID).Info("resumed running session from mirror")
	return true, nil
}

// Close cancels any pending retry. The running mirror stays so the session
// resumes on the next start.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelRetry != nil {
		l.cancelRetry()
		l.cancelRetry = nil
	}
}

func (l *Lifecycle) sessionRates() Rates {
	return Rates{
		Hourly:         l.session.HourlyRate,
		Overtime:       l.session.OvertimeRate,
		ThresholdHours: l.session.OvertimeThresholdHours,
	}
}

func (l *Lifecycle) scheduleRetryLocked() {
	delay, ok := l.policy.Delay(l.attempts)
	if !ok {
		l.log.WithField("session", l.session.ID).
			Warn("remote create retries exhausted, session stays local-only")
		return
	}
	l.cancelRetry = l.sched.After(delay, l.retryCreate)
}

func (l *Lifecycle) retryCreate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning || !l.remotePending {
		return
	}

	create := l.session
	create.ID = ""
	if err := l.remote.CreateSession(&create); err != nil {
		l.attempts++
		l.log.WithError(err).WithField("attempt", l.attempts).
			Warn("remote session create retry failed")
		l.scheduleRetryLocked()
		return
	}

	l.log.WithFields(logrus.Fields{"session": create.ID, "attempts": l.attempts}).
		Info("remote session created after retry")
	l.session.ID = create.ID
	l.remotePending = false
	l.attempts = 0
	l.cancelRetry = nil
	l.writeMirrorLocked()
}

func (l *Lifecycle) writeMirrorLocked() {
	m := offline.RunningMirror{
		SessionID:              l.session.ID,
		UserID:                 l.session.UserID,
		LocationID:             l.session.LocationID,
		Address:                l.session.Address,
		ManualEntry:            l.session.ManualEntry,
		StartTime:              l.session.StartTime,
		HourlyRate:             l.session.HourlyRate,
		OvertimeRate:           l.session.OvertimeRate,
		OvertimeThresholdHours: l.session.OvertimeThresholdHours,
		BreakMinutes:           l.session.BreakMinutes,
		RemotePending:          l.remotePending,
		Attempts:               l.attempts,
	}
	if err := l.local.SaveMirror(m); err != nil {
		l.log.WithError(err).Warn("running mirror save failed")
	}
}

func overtimePeriod(s store.WorkSession, bd Breakdown) *store.OvertimePeriod {
	// Overtime begins once threshold hours of net work have been put in:
	// session start shifted by the threshold plus the accumulated breaks.
	start := s.StartTime.
		Add(time.Duration(s.OvertimeThresholdHours * float64(time.Hour))).
		Add(time.Duration(s.BreakMinutes) * time.Minute)
	return &store.OvertimePeriod{
		SessionID:       s.ID,
		StartTime:       start,
		EndTime:         *s.EndTime,
		Rate:            s.OvertimeRate,
		DurationMinutes: int(math.Round(bd.OvertimeHours * 60)),
		Earnings:        bd.OvertimeEarnings,
	}
}

func localID(now time.Time) string {
	return fmt.Sprintf("local-%d", now.UnixNano())
}
