//go:build windows

package lockfile

import (
	"errors"
	"os"
)

// ErrHeld is returned when another invocation holds the lock.
var ErrHeld = errors.New("lockfile: already held")

// Lock is a scoped lock around one watchdog run. On Windows the
// exclusive-create of the lock file itself is the token.
type Lock struct {
	f    *os.File
	path string
}

// Acquire creates path exclusively. If it already exists another
// invocation is running and ErrHeld is returned.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrHeld
		}
		return nil, err
	}
	return &Lock{f: f, path: path}, nil
}

// Release closes and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	cerr := l.f.Close()
	l.f = nil
	rerr := os.Remove(l.path)
	if cerr != nil {
		return cerr
	}
	return rerr
}
