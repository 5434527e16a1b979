package client

import "time"

// uptimeAccumulator tracks connected-and-unpaused duration. It
// accumulates lazily: elapsed time is folded into the total only when
// the accumulator is read or halted while active.
type uptimeAccumulator struct {
	total      time.Duration
	checkpoint time.Time
	active     bool
}

// start begins accumulating from now. Starting an already-active
// accumulator folds the elapsed slice first.
func (u *uptimeAccumulator) start(now time.Time) {
	if u.active {
		u.total += now.Sub(u.checkpoint)
	}
	u.active = true
	u.checkpoint = now
}

// halt stops accumulating, folding the current slice into the total.
func (u *uptimeAccumulator) halt(now time.Time) {
	if !u.active {
		return
	}
	u.total += now.Sub(u.checkpoint)
	u.active = false
}

// read returns the accumulated total, folding the current slice and
// advancing the checkpoint when active.
func (u *uptimeAccumulator) read(now time.Time) time.Duration {
	if u.active {
		u.total += now.Sub(u.checkpoint)
		u.checkpoint = now
	}
	return u.total
}

// reset zeroes the accumulator.
func (u *uptimeAccumulator) reset() {
	*u = uptimeAccumulator{}
}
