package clock

import (
	"testing"
	"time"
)

func TestFakeClockFiresDueTimersInOrder(t *testing.T) {
	c := NewFakeClock(time.Time{})
	var fired []string
	c.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })

	c.Advance(15 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("expected only the earlier timer, got %v", fired)
	}

	c.Advance(10 * time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("expected both timers in deadline order, got %v", fired)
	}
}

func TestFakeClockStopPreventsFiring(t *testing.T) {
	c := NewFakeClock(time.Time{})
	fired := false
	timer := c.AfterFunc(10*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("expected Stop to report the timer was armed")
	}
	c.Advance(time.Second)
	if fired {
		t.Fatal("stopped timer must not fire")
	}
	if timer.Stop() {
		t.Fatal("second Stop must report false")
	}
}

func TestFakeClockCallbackMaySchedule(t *testing.T) {
	c := NewFakeClock(time.Time{})
	count := 0
	c.AfterFunc(10*time.Millisecond, func() {
		count++
		c.AfterFunc(10*time.Millisecond, func() { count++ })
	})

	c.Advance(25 * time.Millisecond)
	if count != 2 {
		t.Fatalf("expected chained timer to fire within the advanced window, got %d", count)
	}
	if c.PendingTimers() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.PendingTimers())
	}
}
