package cluster

import (
	"errors"
	"fmt"
	"time"
)

// sleep is a seam for tests.
var sleep = time.Sleep

// PollConfig bounds a fixed-interval poll.
type PollConfig struct {
	Attempts int
	Interval time.Duration
}

// Poll calls check until it reports done, an error other than ErrNotFound
// or ErrBackend, or the attempts run out. Backend failures and missing
// objects are treated as "not yet" while attempts remain. On exhaustion the
// last failure is reported alongside ErrPollExhausted.
func Poll(cfg PollConfig, what string, check func() (bool, error)) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 1; i <= attempts; i++ {
		done, err := check()
		if err == nil && done {
			return nil
		}
		if err != nil && !isRetryable(err) {
			return err
		}
		last = err
		if i < attempts {
			sleep(cfg.Interval)
		}
	}
	if last != nil {
		return fmt.Errorf("%w: waiting for %s after %d attempts: %v", ErrPollExhausted, what, attempts, last)
	}
	return fmt.Errorf("%w: waiting for %s after %d attempts", ErrPollExhausted, what, attempts)
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBackend)
}
