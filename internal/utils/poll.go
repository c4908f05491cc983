package utils

import (
	"runtime"
	"time"
)

// PollOutcome is the result of PollUntil
type PollOutcome int

const (
	PollReady PollOutcome = iota
	PollTimeout
	PollAborted
)

// PollUntil yield-polls ready until it reports true, abort reports true, or timeout elapses. A
// negative timeout polls forever. abort may be nil.
func PollUntil(timeout time.Duration, ready func() bool, abort func() bool) PollOutcome {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for spins := 0; ; spins++ {
		if ready() {
			return PollReady
		}
		if abort != nil && abort() {
			return PollAborted
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return PollTimeout
		}

		if spins < 64 {
			runtime.Gosched()
		} else {
			time.Sleep(10 * time.Microsecond)
		}
	}
}
