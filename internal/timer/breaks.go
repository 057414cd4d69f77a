package timer

import "time"

// BreakTracker accumulates lunch-break minutes for the running session.
// At most one break is active at a time; the accumulated total survives
// across breaks and resets only when a new session starts.
type BreakTracker struct {
	active       bool
	startTime    time.Time
	plannedMins  int
	totalMinutes int
}

// Active reports whether a break is in progress.
func (b *BreakTracker) Active() bool { return b.active }

// TotalMinutes is the folded-in break total for the session so far.
func (b *BreakTracker) TotalMinutes() int { return b.totalMinutes }

// StartTime returns the start of the active break; zero when inactive.
func (b *BreakTracker) StartTime() time.Time {
	if !b.active {
		return time.Time{}
	}
	return b.startTime
}

// PlannedMinutes returns the planned length of the active break.
func (b *BreakTracker) PlannedMinutes() int {
	if !b.active {
		return 0
	}
	return b.plannedMins
}

// Start begins a break. No-op when one is already active.
func (b *BreakTracker) Start(now time.Time, plannedMinutes int) bool {
	if b.active {
		return false
	}
	b.active = true
	b.startTime = now
	b.plannedMins = plannedMinutes
	return true
}

// End folds the active break into the total, flooring to whole minutes, and
// returns the minutes added. Ending when no break is active is a no-op
// returning 0, so a manual end racing the automatic one cannot double-count.
func (b *BreakTracker) End(now time.Time) int {
	if !b.active {
		return 0
	}
	elapsed := int(now.Sub(b.startTime).Minutes())
	if elapsed < 0 {
		elapsed = 0
	}
	b.active = false
	b.totalMinutes += elapsed
	b.plannedMins = 0
	return elapsed
}

// Due reports whether the active break has reached its planned length.
// Checked on the periodic tick.
func (b *BreakTracker) Due(now time.Time) bool {
	return b.active && now.Sub(b.startTime) >= time.Duration(b.plannedMins)*time.Minute
}

// Remaining returns the time left on the active break, clamped at zero.
func (b *BreakTracker) Remaining(now time.Time) time.Duration {
	if !b.active {
		return 0
	}
	rem := time.Duration(b.plannedMins)*time.Minute - now.Sub(b.startTime)
	if rem < 0 {
		return 0
	}
	return rem
}

// Reset clears the tracker for a new session.
func (b *BreakTracker) Reset() {
	*b = BreakTracker{}
}

// Restore rebuilds the folded-in total when resuming a session from the
// local mirror.
func (b *BreakTracker) Restore(totalMinutes int) {
	b.Reset()
	if totalMinutes > 0 {
		b.totalMinutes = totalMinutes
	}
}
