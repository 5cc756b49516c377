package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"golang.org/x/sys/unix"
)

const (
	pidFile = "nvmetool.pid"
)

// Path returns the default PID file location.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning when the file names a live process, since two
// instances would race each other writing the same devices.
func Write(path string) error {
	errFactory := errors.New()
	pid := os.Getpid()

	if bytes, err := os.ReadFile(path); err == nil {
		other, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
		if err == nil && other != pid && isAlive(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, other)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove(path string) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
