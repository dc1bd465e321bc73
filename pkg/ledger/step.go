// Package ledger maps wall-clock time onto the discrete step clock the
// accrual engine compounds against.
package ledger

import (
	"errors"
	"time"
)

const (
	// DefaultSecondsPerStep default step length
	DefaultSecondsPerStep int64 = 15
)

// CurrentStep step index at t, counting from genesis.
func CurrentStep(genesis, secondsPerStep int64, t time.Time) (int64, error) {
	if secondsPerStep <= 0 {
		return 0, errors.New("secondsPerStep should not be less than or equal zero")
	}

	seconds := t.UTC().Unix() - genesis
	if seconds <= 0 {
		return 0, errors.New("invalid step")
	}

	return seconds / secondsPerStep, nil
}
