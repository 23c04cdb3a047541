// Package lock serializes mutating searxops runs against one snapshot root.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

var ErrLocked = errors.New("another searxops operation is in progress")

const retryInterval = 200 * time.Millisecond

type Lock struct {
	path string
	file *os.File
}

// Acquire takes an exclusive flock on path, retrying until timeout. The
// kernel drops the lock if the process dies, so stale files are harmless.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), retries(timeout))
	err = backoff.Retry(func() error {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EWOULDBLOCK) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid := holderPID(path); pid > 0 {
				return nil, fmt.Errorf("%w (held by pid %d, lock file %s)", ErrLocked, pid, path)
			}
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Sync()

	return &Lock{path: path, file: f}, nil
}

func retries(timeout time.Duration) uint64 {
	if timeout <= 0 {
		return 0
	}
	return uint64(timeout / retryInterval)
}

func (l *Lock) Path() string {
	return l.path
}

func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.file.Truncate(0)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

func holderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
