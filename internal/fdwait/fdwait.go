// Package fdwait blocks until a file descriptor becomes readable.
package fdwait

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/timeutil"
)

// Result is the outcome of a wait.
type Result int

const (
	Ready Result = iota
	TimedOut
)

func (r Result) String() string {
	if r == TimedOut {
		return "timed out"
	}
	return "ready"
}

var (
	// ErrWaitFailed is returned once the retry budget for failing waits is
	// spent.
	ErrWaitFailed = errors.New("wait for data failed")
	// ErrStopped is returned by Wait after Stop or Close.
	ErrStopped = errors.New("wait stopped")
)

// Policy bounds how failing waits are retried. Interrupted waits are always
// retried and do not count against MaxRetries.
type Policy struct {
	// MaxRetries is the number of consecutive failures tolerated before
	// giving up.
	MaxRetries int
	// InitialBackoff is the pause after the first failure; it doubles after
	// every further failure up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy retries up to 8 times starting at 10ms, capped at 1s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     8,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     time.Second,
	}
}

// Validate rejects negative budgets.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.InitialBackoff < 0 || p.MaxBackoff < p.InitialBackoff {
		return fmt.Errorf("invalid backoff window [%v, %v]", p.InitialBackoff, p.MaxBackoff)
	}
	return nil
}

// selectFunc reports the number of ready descriptors, 0 on timeout or when
// only wake is readable. A nil timeout blocks.
type selectFunc func(fd, wake int, timeout *unix.Timeval) (int, error)

func selectRead(fd, wake int, timeout *unix.Timeval) (int, error) {
	var fds unix.FdSet
	fds.Zero()
	fds.Set(fd)
	fds.Set(wake)
	n, err := unix.Select(max(fd, wake)+1, &fds, nil, nil, timeout)
	if err != nil || n == 0 {
		return n, err
	}
	if !fds.IsSet(fd) {
		return 0, nil
	}
	return n, nil
}

// Waiter waits for readability on a single descriptor. A wait in progress
// can be abandoned from another goroutine with Stop.
type Waiter struct {
	fd     int
	policy Policy
	clock  timeutil.Clock
	logf   monitoring.Logf
	sel    selectFunc

	// wake[0] becomes readable once Stop writes to wake[1].
	wake      [2]int
	stopped   atomic.Bool
	closeOnce sync.Once
}

// New returns a Waiter for fd. A nil logf discards diagnostics. The Waiter
// owns a pipe that is released by Close.
func New(fd int, policy Policy, logf monitoring.Logf) (*Waiter, error) {
	if logf == nil {
		logf = monitoring.Discard
	}
	w := &Waiter{
		fd:     fd,
		policy: policy,
		clock:  timeutil.RealClock{},
		logf:   logf,
		sel:    selectRead,
	}
	if err := unix.Pipe2(w.wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return w, nil
}

// Stop makes the current and every later Wait return ErrStopped.
func (w *Waiter) Stop() {
	if w.stopped.Swap(true) {
		return
	}
	// the pipe is non-blocking and only ever holds this byte
	unix.Write(w.wake[1], []byte{0})
}

// Close stops the Waiter and releases its pipe.
func (w *Waiter) Close() error {
	w.Stop()
	var err error
	w.closeOnce.Do(func() {
		err = errors.Join(unix.Close(w.wake[0]), unix.Close(w.wake[1]))
	})
	return err
}

// Wait blocks until the descriptor is readable or timeoutUsec microseconds
// elapse; 0 waits forever. It returns ErrStopped once Stop has been called.
func (w *Waiter) Wait(timeoutUsec uint64) (Result, error) {
	failures := 0
	backoff := w.policy.InitialBackoff
	for {
		if w.stopped.Load() {
			return TimedOut, ErrStopped
		}

		var tv *unix.Timeval
		if timeoutUsec > 0 {
			t := unix.NsecToTimeval(int64(timeoutUsec) * int64(time.Microsecond))
			tv = &t
		}

		n, err := w.sel(w.fd, w.wake[0], tv)
		switch {
		case w.stopped.Load():
			return TimedOut, ErrStopped
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			failures++
			w.logf("select() failed: %v", err)
			if failures > w.policy.MaxRetries {
				return TimedOut, fmt.Errorf("%w after %d attempts: %w", ErrWaitFailed, failures, err)
			}
			w.clock.Sleep(backoff)
			backoff = min(2*backoff, w.policy.MaxBackoff)
			continue
		case n == 0 && timeoutUsec > 0:
			return TimedOut, nil
		case n == 0:
			// spurious wakeup with no timeout requested
			continue
		}
		return Ready, nil
	}
}
