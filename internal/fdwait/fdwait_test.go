package fdwait

import (
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/banshee-data/irtrace/internal/timeutil"
)

type scripted struct {
	results  []int
	errs     []error
	timeouts []*unix.Timeval
}

func (s *scripted) sel(fd, wake int, tv *unix.Timeval) (int, error) {
	s.timeouts = append(s.timeouts, tv)
	n, err := s.results[0], s.errs[0]
	s.results, s.errs = s.results[1:], s.errs[1:]
	return n, err
}

func newScripted(t *testing.T, policy Policy, s *scripted) (*Waiter, *timeutil.MockClock, *[]string) {
	t.Helper()
	var logged []string
	w, err := New(3, policy, func(format string, v ...interface{}) {
		logged = append(logged, format)
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	w.clock = clock
	w.sel = s.sel
	return w, clock, &logged
}

func TestWaitRetriesInterruptSilently(t *testing.T) {
	s := &scripted{
		results: []int{-1, -1, 1},
		errs:    []error{unix.EINTR, unix.EINTR, nil},
	}
	w, clock, logged := newScripted(t, DefaultPolicy(), s)

	res, err := w.Wait(0)
	if err != nil || res != Ready {
		t.Fatalf("Wait() = %v, %v; want ready", res, err)
	}
	if len(*logged) != 0 {
		t.Errorf("interrupts were logged: %v", *logged)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("interrupts slept: %v", clock.Sleeps())
	}
	for _, tv := range s.timeouts {
		if tv != nil {
			t.Errorf("blocking wait passed timeout %v", tv)
		}
	}
}

func TestWaitTimeout(t *testing.T) {
	s := &scripted{results: []int{0}, errs: []error{nil}}
	w, _, _ := newScripted(t, DefaultPolicy(), s)

	res, err := w.Wait(1500000)
	if err != nil || res != TimedOut {
		t.Fatalf("Wait() = %v, %v; want timed out", res, err)
	}
	tv := s.timeouts[0]
	if tv == nil || tv.Sec != 1 || tv.Usec != 500000 {
		t.Errorf("timeout = %+v, want 1s 500000us", tv)
	}
}

func TestWaitLogsAndRetriesErrors(t *testing.T) {
	s := &scripted{
		results: []int{-1, -1, 1},
		errs:    []error{unix.EBADF, unix.ENOMEM, nil},
	}
	w, clock, logged := newScripted(t, DefaultPolicy(), s)

	res, err := w.Wait(0)
	if err != nil || res != Ready {
		t.Fatalf("Wait() = %v, %v; want ready", res, err)
	}
	if len(*logged) != 2 {
		t.Errorf("logged %d failures, want 2", len(*logged))
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	got := clock.Sleeps()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("backoff = %v, want %v", got, want)
	}
}

func TestWaitGivesUpAfterBudget(t *testing.T) {
	policy := Policy{MaxRetries: 2, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 150 * time.Millisecond}
	s := &scripted{
		results: []int{-1, -1, -1},
		errs:    []error{unix.EBADF, unix.EBADF, unix.EBADF},
	}
	w, clock, _ := newScripted(t, policy, s)

	_, err := w.Wait(0)
	if !errors.Is(err, ErrWaitFailed) || !errors.Is(err, unix.EBADF) {
		t.Fatalf("Wait() error = %v, want ErrWaitFailed wrapping EBADF", err)
	}
	got := clock.Sleeps()
	if len(got) != 2 || got[1] != 150*time.Millisecond {
		t.Errorf("backoff = %v, want capped at 150ms", got)
	}
}

func TestWaitOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	waiter, err := New(int(r.Fd()), DefaultPolicy(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer waiter.Close()
	res, err := waiter.Wait(1000)
	if err != nil || res != TimedOut {
		t.Fatalf("empty pipe: Wait() = %v, %v; want timed out", res, err)
	}

	if _, err := w.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	res, err = waiter.Wait(0)
	if err != nil || res != Ready {
		t.Fatalf("filled pipe: Wait() = %v, %v; want ready", res, err)
	}
}

func TestStopUnblocksWait(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	waiter, err := New(int(r.Fd()), DefaultPolicy(), nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := waiter.Wait(0)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Wait() returned %v on an empty pipe", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := waiter.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Wait() error = %v, want ErrStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() still blocked after Close")
	}

	if _, err := waiter.Wait(0); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait() after Close = %v, want ErrStopped", err)
	}
	if err := waiter.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestStopDuringRetries(t *testing.T) {
	s := &scripted{
		results: []int{-1, 1},
		errs:    []error{unix.EBADF, nil},
	}
	w, _, _ := newScripted(t, DefaultPolicy(), s)
	w.sel = func(fd, wake int, tv *unix.Timeval) (int, error) {
		w.Stop()
		return s.sel(fd, wake, tv)
	}

	if _, err := w.Wait(0); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait() error = %v, want ErrStopped", err)
	}
	if len(s.timeouts) != 1 {
		t.Errorf("select called %d times after Stop, want 1", len(s.timeouts))
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
	if err := (Policy{MaxRetries: -1}).Validate(); err == nil {
		t.Error("expected error for negative retries")
	}
	if err := (Policy{InitialBackoff: time.Second, MaxBackoff: time.Millisecond}).Validate(); err == nil {
		t.Error("expected error for inverted backoff")
	}
}
