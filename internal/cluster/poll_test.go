package cluster

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func TestPoll(t *testing.T) {
	t.Run("returns once check is done", func(t *testing.T) {
		slept := stubSleep(t)
		calls := 0
		err := Poll(PollConfig{Attempts: 5, Interval: time.Second}, "thing", func() (bool, error) {
			calls++
			if calls < 3 {
				return false, fmt.Errorf("%w: not yet", ErrNotFound)
			}
			return true, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if len(*slept) != 2 || (*slept)[0] != time.Second {
			t.Errorf("expected two fixed 1s sleeps, got %v", *slept)
		}
	})

	t.Run("reports exhaustion with the last failure", func(t *testing.T) {
		stubSleep(t)
		calls := 0
		err := Poll(PollConfig{Attempts: 3, Interval: time.Millisecond}, "thing", func() (bool, error) {
			calls++
			return false, fmt.Errorf("%w: timeout", ErrBackend)
		})
		if !errors.Is(err, ErrPollExhausted) {
			t.Fatalf("expected ErrPollExhausted, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", calls)
		}
	})

	t.Run("stops on non-retryable errors", func(t *testing.T) {
		stubSleep(t)
		boom := errors.New("boom")
		calls := 0
		err := Poll(PollConfig{Attempts: 3}, "thing", func() (bool, error) {
			calls++
			return false, boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("expected boom after one call, got %v after %d", err, calls)
		}
	})
}
