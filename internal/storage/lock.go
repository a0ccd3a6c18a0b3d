package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrLocked is returned when another live process holds the run lock
var ErrLocked = errors.New("contact store is locked by another run")

// RunLock is the lock file content claiming exclusive write access to a
// contact-memory store for the duration of a resolve or link run
type RunLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// LockPath returns the lock file path for a contact-memory database
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireRunLock creates the run lock for dbPath. A lock left by a process
// that no longer exists is taken over. Returns the lock file path for
// ReleaseRunLock.
func AcquireRunLock(dbPath, holder string) (lockPath string, err error) {
	lockPath = LockPath(dbPath)

	// Check for existing lock
	if data, err := os.ReadFile(lockPath); err == nil {
		var existing RunLock
		if json.Unmarshal(data, &existing) == nil {
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("%w: %s (PID %d on %s, started %s)", ErrLocked,
					existing.Holder, existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - will overwrite
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := RunLock{
		Holder:    holder,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create run lock: %w", err)
	}

	return lockPath, nil
}

// ReleaseRunLock removes the run lock file (use defer)
func ReleaseRunLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove run lock: %w", err)
	}

	return nil
}

// isProcessAlive checks if a process with the given PID exists on the given
// hostname. Processes on other hosts are assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		// Can't check hostname, assume remote/alive
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM: exists but owned by someone else
	if err == syscall.EPERM {
		return true
	}

	return false
}
