package gate

// Gate throttles hardware polls to a configured minimum interval. It is owned
// and mutated by a single goroutine; the host delivers events sequentially so
// no locking is needed.
type Gate struct {
	interval int64 // seconds
	last     int64 // epoch seconds of the last poll attempt
	polled   bool
}

// New returns a gate in the "never polled" state. A negative interval is
// treated as zero.
func New(intervalSeconds int64) *Gate {
	if intervalSeconds < 0 {
		intervalSeconds = 0
	}
	return &Gate{interval: intervalSeconds}
}

// ShouldPoll reports whether a poll is due at now (epoch seconds). The first
// call is always due.
func (g *Gate) ShouldPoll(now int64) bool {
	if !g.polled {
		return true
	}
	return now >= g.last+g.interval
}

// MarkPolled records a poll attempt. Callers invoke it after every attempt,
// failed or not, so a misbehaving module is still rate limited.
func (g *Gate) MarkPolled(now int64) {
	g.last = now
	g.polled = true
}

// LastPolled returns the last poll attempt time, and false if no poll has
// been attempted yet.
func (g *Gate) LastPolled() (int64, bool) {
	return g.last, g.polled
}
