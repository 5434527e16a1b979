package retry

import "time"

// Policy defaults.
const (
	// DefaultStartDelay is the backoff base.
	DefaultStartDelay = 1 * time.Second

	// DefaultDelayFactor is the backoff multiplier.
	DefaultDelayFactor = 1.5

	// DefaultMaxDelay is the backoff cap.
	DefaultMaxDelay = 30 * time.Second

	// DefaultMinUpTime is the minimum prior uptime to permit a retry.
	DefaultMinUpTime = 500 * time.Millisecond
)

// Policy describes the reconnection behavior. The zero value permits
// no automatic reconnects (Amount 0).
type Policy struct {
	// Amount is the maximum number of automatic reconnects.
	Amount int

	// DelayFactor scales the delay with the attempt number.
	DelayFactor float64

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// MinUpTime is the minimum uptime since the last successful
	// open required before a retry is permitted.
	MinUpTime time.Duration

	// OnAbort reconnects instead of signaling when Abort is called.
	OnAbort bool

	// StartDelay is the backoff base.
	StartDelay time.Duration
}

// DefaultPolicy returns the documented default policy.
func DefaultPolicy() Policy {
	return Policy{
		Amount:      0,
		DelayFactor: DefaultDelayFactor,
		MaxDelay:    DefaultMaxDelay,
		MinUpTime:   DefaultMinUpTime,
		OnAbort:     false,
		StartDelay:  DefaultStartDelay,
	}
}

// Delay returns the backoff delay before the given attempt.
// attempt is the retry count immediately after incrementing, so the
// first automatic reconnect computes Delay(1).
func (p Policy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.StartDelay) * (float64(attempt) * p.DelayFactor))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Eligible reports whether an automatic reconnect may follow a
// closure. manual indicates the closure was manually initiated,
// configured whether a retry policy was supplied at construction,
// retries the current retry count, and uptime the accumulated
// connected-and-unpaused duration since the last successful open.
func (p Policy) Eligible(manual, configured bool, retries int, uptime time.Duration) bool {
	if manual || !configured {
		return false
	}
	if retries >= p.Amount {
		return false
	}
	return uptime >= p.MinUpTime
}

// Exhausted reports whether the retry budget is used up.
func (p Policy) Exhausted(retries int) bool {
	return retries >= p.Amount
}
