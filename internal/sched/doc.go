// Package sched provides the debounced trigger primitive: a timer that
// fires a handler once a quiet interval has elapsed since the last
// arming, coalescing bursts into one invocation. The clock is injected
// so behavior is deterministic under test.
package sched
