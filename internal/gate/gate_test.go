package gate

import "testing"

func TestNeverPolled(t *testing.T) {
	for _, now := range []int64{0, 1, 1000000, 1627946400} {
		g := New(20)
		if !g.ShouldPoll(now) {
			t.Fatalf("fresh gate should poll at %d", now)
		}
	}
}

func TestIntervalBoundary(t *testing.T) {
	const start, interval = 1627946400, 20
	g := New(interval)
	g.MarkPolled(start)

	if g.ShouldPoll(start + interval - 1) {
		t.Fatal("one second early should not poll")
	}
	if !g.ShouldPoll(start + interval) {
		t.Fatal("exactly at the interval should poll")
	}
	if !g.ShouldPoll(start + interval + 5) {
		t.Fatal("past the interval should poll")
	}
}

func TestZeroInterval(t *testing.T) {
	g := New(0)
	g.MarkPolled(100)
	if !g.ShouldPoll(100) {
		t.Fatal("zero interval should always poll")
	}
}

func TestNegativeIntervalTreatedAsZero(t *testing.T) {
	g := New(-5)
	g.MarkPolled(100)
	if !g.ShouldPoll(100) {
		t.Fatal("negative interval should behave like zero")
	}
}

func TestFailedPollStillThrottles(t *testing.T) {
	g := New(20)
	// A failed attempt is still marked, so the next event is throttled.
	g.MarkPolled(1000)
	if g.ShouldPoll(1005) {
		t.Fatal("gate should throttle after a failed attempt")
	}
	if _, ok := g.LastPolled(); !ok {
		t.Fatal("LastPolled should report the attempt")
	}
}
