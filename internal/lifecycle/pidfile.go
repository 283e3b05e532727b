package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned by AcquirePIDFile when another daemon holds
// the lock.
var ErrAlreadyRunning = errors.New("another daemon is already running")

// PIDFile is the daemon's locked PID marker.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// AcquirePIDFile takes an exclusive lock on path and writes the current PID
// into it. The lock is held until Release.
func AcquirePIDFile(path string) (*PIDFile, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PIDFile{path: path, lock: lock}, nil
}

// Release removes the PID file and drops the lock.
func (p *PIDFile) Release() error {
	err := os.Remove(p.path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if uerr := p.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// ReadPID parses the PID stored at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
