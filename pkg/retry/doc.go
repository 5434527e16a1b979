// Package retry provides the reconnection policy: a pure backoff
// calculator plus the eligibility predicate deciding whether an
// automatic reconnect may follow a closure.
//
// # Backoff
//
// The delay before attempt n is linear in the attempt number and
// capped:
//
//	delay(n) = min(startDelay * (n * delayFactor), maxDelay)
//
// where n is the retry count immediately after incrementing.
//
// # Eligibility
//
// An automatic reconnect on close or error requires all of:
//   - the closure was not manually initiated
//   - a retry policy was configured at all
//   - the current retry count is below the configured amount
//   - accumulated uptime since the last successful open reached
//     the configured minimum
package retry
