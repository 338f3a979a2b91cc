//go:build deadlock
// +build deadlock

package syncutils

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock-order inversions and long waits when the binary is
// built with -tags deadlock.
type Mutex = deadlock.Mutex

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}
