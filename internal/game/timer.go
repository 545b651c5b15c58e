package game

import "time"

// RoundTimer measures a round against a fixed budget using the elapsed time
// since the round started, so a slow or irregular poll cadence cannot skew it.
// Extending the round moves the start forward rather than touching the budget.
type RoundTimer struct {
	now     func() time.Time
	budget  time.Duration
	started time.Time
	running bool
	fired   bool
}

func NewRoundTimer(now func() time.Time) *RoundTimer {
	if now == nil {
		now = time.Now
	}
	return &RoundTimer{now: now}
}

// Start begins a new round and re-arms the timeout.
func (t *RoundTimer) Start(budget time.Duration) {
	t.budget = budget
	t.started = t.now()
	t.running = true
	t.fired = false
}

// Stop ends the round without firing a timeout.
func (t *RoundTimer) Stop() {
	t.running = false
}

// Active reports whether a round is in progress and has not timed out.
func (t *RoundTimer) Active() bool {
	return t.running && !t.fired
}

func (t *RoundTimer) Budget() time.Duration {
	return t.budget
}

// Elapsed is clamped to [0, budget].
func (t *RoundTimer) Elapsed() time.Duration {
	if t.budget <= 0 {
		return 0
	}
	e := t.now().Sub(t.started)
	if e < 0 {
		return 0
	}
	return min(e, t.budget)
}

// Remaining may exceed the budget right after an extension.
func (t *RoundTimer) Remaining() time.Duration {
	r := t.budget - t.now().Sub(t.started)
	if r < 0 || t.budget <= 0 {
		return 0
	}
	return r
}

// RemainingFraction returns the share of the budget left, clamped to [0, 1].
func (t *RoundTimer) RemainingFraction() float64 {
	if t.budget <= 0 {
		return 0
	}
	f := float64(t.Remaining()) / float64(t.budget)
	return min(f, 1)
}

// Poll returns true exactly once per round, on the first call made after the
// budget is used up. Later calls return false until Start is called again.
func (t *RoundTimer) Poll() bool {
	if !t.running || t.fired {
		return false
	}
	if t.now().Sub(t.started) < t.budget {
		return false
	}
	t.fired = true
	t.running = false
	return true
}

// Extend adds bonus to the current round. It does nothing once the round has
// ended or timed out.
func (t *RoundTimer) Extend(bonus time.Duration) bool {
	if !t.Active() || bonus <= 0 {
		return false
	}
	if t.now().Sub(t.started) >= t.budget {
		// Already past the budget; the pending timeout wins.
		return false
	}
	t.started = t.started.Add(bonus)
	return true
}
