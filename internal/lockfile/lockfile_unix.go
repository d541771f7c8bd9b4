//go:build !windows

package lockfile

import (
	"errors"
	"os"
	"syscall"
)

// ErrHeld is returned when another invocation holds the lock.
var ErrHeld = errors.New("lockfile: already held")

// Lock is a scoped, non-blocking advisory lock around one watchdog run.
// Overlapping cron invocations must not both reconcile; the loser exits
// with zero side effects.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive flock on path, creating the file when
// missing. It never blocks: if the lock is held elsewhere it returns
// ErrHeld.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. The file is left in place; the flock itself
// is the mutual-exclusion token, not the file's existence.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return cerr
}
