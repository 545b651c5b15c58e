package game

import (
	"math"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRoundTimer_FiresOnce(t *testing.T) {
	clock := newFakeClock()
	timer := NewRoundTimer(clock.Now)
	timer.Start(10 * time.Second)

	clock.Advance(9 * time.Second)
	if timer.Poll() {
		t.Fatal("Poll fired before the budget ran out")
	}

	clock.Advance(time.Second)
	if !timer.Poll() {
		t.Fatal("Poll did not fire at the budget")
	}
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		if timer.Poll() {
			t.Fatal("Poll fired twice in one round")
		}
	}

	timer.Start(10 * time.Second)
	clock.Advance(11 * time.Second)
	if !timer.Poll() {
		t.Fatal("Poll did not re-arm after Start")
	}
}

func TestRoundTimer_IndependentOfPollCadence(t *testing.T) {
	clock := newFakeClock()
	timer := NewRoundTimer(clock.Now)
	timer.Start(10 * time.Second)

	// One poll after a long stall sees the whole elapsed time.
	clock.Advance(45 * time.Second)
	if !timer.Poll() {
		t.Fatal("Poll after a stall did not fire")
	}
	if got := timer.RemainingFraction(); got != 0 {
		t.Errorf("RemainingFraction after timeout = %f, want 0", got)
	}
}

func TestRoundTimer_RemainingFraction(t *testing.T) {
	clock := newFakeClock()
	timer := NewRoundTimer(clock.Now)
	timer.Start(10 * time.Second)

	if got := timer.RemainingFraction(); got != 1 {
		t.Errorf("RemainingFraction at start = %f, want 1", got)
	}
	clock.Advance(2500 * time.Millisecond)
	if got := timer.RemainingFraction(); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("RemainingFraction after 2.5s = %f, want 0.75", got)
	}
	if got := timer.Elapsed(); got != 2500*time.Millisecond {
		t.Errorf("Elapsed = %s, want 2.5s", got)
	}
}

func TestRoundTimer_Extend(t *testing.T) {
	clock := newFakeClock()
	timer := NewRoundTimer(clock.Now)
	timer.Start(10 * time.Second)

	clock.Advance(8 * time.Second)
	if !timer.Extend(5 * time.Second) {
		t.Fatal("Extend refused during an active round")
	}
	if got := timer.Remaining(); got != 7*time.Second {
		t.Errorf("Remaining after extend = %s, want 7s", got)
	}

	clock.Advance(6 * time.Second)
	if timer.Poll() {
		t.Fatal("extended round timed out early")
	}
	clock.Advance(time.Second)
	if !timer.Poll() {
		t.Fatal("extended round did not time out")
	}
	if timer.Extend(5 * time.Second) {
		t.Fatal("Extend accepted after timeout")
	}
}

func TestRoundTimer_ExtendAfterStop(t *testing.T) {
	clock := newFakeClock()
	timer := NewRoundTimer(clock.Now)
	timer.Start(10 * time.Second)
	timer.Stop()

	if timer.Extend(5 * time.Second) {
		t.Fatal("Extend accepted on a stopped timer")
	}
	clock.Advance(20 * time.Second)
	if timer.Poll() {
		t.Fatal("stopped timer fired")
	}
}
