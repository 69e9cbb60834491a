package syntax

import (
	"math/rand"
	"time"
)

// sessionRetry paces the restarts of a window session.  Delays start at
// first and double up to limit, with up to 25% jitter so windows failing
// together do not retry together.  A session that manages to color its
// window clears the history, so only consecutive failures count against
// attempts.
type sessionRetry struct {
	first    time.Duration
	limit    time.Duration
	attempts int

	failures int
	delay    time.Duration
}

// wait records a failed session and returns how long to wait before the
// next one.  ok is false once attempts consecutive sessions have failed.
func (r *sessionRetry) wait() (delay time.Duration, ok bool) {
	if r.failures >= r.attempts {
		return 0, false
	}
	r.failures++
	if r.delay < r.first {
		r.delay = r.first
	} else {
		r.delay = min(r.delay*2, r.limit)
	}
	jitter := time.Duration(rand.Int63n(int64(r.delay)/4 + 1))
	return r.delay + jitter, true
}

// colored is called when a session applied highlights to its window.
func (r *sessionRetry) colored() {
	r.failures = 0
	r.delay = 0
}
