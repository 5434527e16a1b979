// Package timers provides a store of named, single-instance timers.
//
// Each logical timer name holds at most one active timer. Arming a
// name always cancels any prior timer armed under the same name, so
// overlapping schedules for the same concern cannot accumulate.
//
// The store supports single-shot and repeating timers. Callbacks run
// on their own goroutine; callers that share state with a callback
// must serialize access themselves.
package timers
