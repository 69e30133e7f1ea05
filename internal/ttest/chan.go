package ttest

import (
	"testing"
	"time"
)

// ScheduleTimeout is how long the channel helpers wait
// before failing the test.
const ScheduleTimeout = 2 * time.Second

// ReceiveSoon returns the next value from ch,
// failing the test if nothing arrives within ScheduleTimeout.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(ScheduleTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("did not receive value within %s", ScheduleTimeout)
	}

	var zero T
	return zero
}

// NotSending fails the test if ch is ready to receive from
// after a short grace period.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	timer := time.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ch:
		t.Fatal("channel was unexpectedly readable")
	case <-timer.C:
	}
}

// IsSending fails the test if ch cannot be received from within ScheduleTimeout.
// The value is discarded; use ReceiveSoon to keep it.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()
	_ = ReceiveSoon(t, ch)
}

// Eventually polls cond every few milliseconds until it returns true,
// failing the test after ScheduleTimeout.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(ScheduleTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", ScheduleTimeout, msg)
}
