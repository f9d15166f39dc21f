// Package testutil provides reusable test helper functions for pipeline
// tests.
package testutil

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// DefaultWait bounds the polling helpers; the engine settles in milliseconds,
// the margin covers loaded CI machines.
const DefaultWait = 10 * time.Second

// pollInterval is the sleep between condition checks.
const pollInterval = time.Millisecond

// Ramp returns the slice [0, 1, 2, ..., n-1] as float32 values.
func Ramp(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i)
	}
	return s
}

// Const returns a slice of n copies of v.
func Const(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// AssertAllEqual verifies that every sample equals want exactly.
func AssertAllEqual(t *testing.T, s []float32, want float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != want {
			return assert.Fail(t, "sample mismatch", "s[%d]=%v, want %v", i, v, want)
		}
	}
	return true
}

// AssertNoNaN verifies that no sample is NaN.
func AssertNoNaN(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math32.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
	}
	return true
}

// WaitUntil polls cond until it reports true or the deadline passes.
func WaitUntil(t *testing.T, d time.Duration, cond func() bool, msgAndArgs ...any) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(pollInterval)
	}
	return assert.Fail(t, "condition not reached", msgAndArgs...)
}
