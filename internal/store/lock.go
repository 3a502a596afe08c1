package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockDirName   = ".clipdeck.lock"
	lockOwnerFile = "owner.json"
)

// ErrLocked is returned when another process holds the directory lock.
var ErrLocked = errors.New("directory is locked")

// DirLock is an exclusive lock on a directory, held by a marker
// subdirectory so it works across processes without flock.
type DirLock struct {
	path string
}

// LockOwner describes the process holding a DirLock.
type LockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// LockDir takes the lock on dir, creating dir when needed.
func LockDir(dir string) (DirLock, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return DirLock{}, fmt.Errorf("lock: directory is required")
	}
	if err := Mkdir(target); err != nil {
		return DirLock{}, err
	}

	path := filepath.Join(target, lockDirName)
	if err := os.Mkdir(path, 0o755); err != nil {
		if !os.IsExist(err) {
			return DirLock{}, fmt.Errorf("lock %s: %w", target, err)
		}
		var owner LockOwner
		if readErr := ReadJSON(filepath.Join(path, lockOwnerFile), &owner); readErr == nil && owner.PID > 0 {
			return DirLock{}, fmt.Errorf("%w: %s (pid=%d since %s on %s)", ErrLocked, target, owner.PID, owner.CreatedAt, owner.Hostname)
		}
		return DirLock{}, fmt.Errorf("%w: %s", ErrLocked, target)
	}

	owner := LockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostname(),
	}
	if err := WriteJSON(filepath.Join(path, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(path)
		return DirLock{}, fmt.Errorf("lock %s: write owner: %w", target, err)
	}
	return DirLock{path: path}, nil
}

// Unlock releases the lock. Calling it on a zero DirLock is a no-op.
func (l DirLock) Unlock() error {
	if l.path == "" {
		return nil
	}
	if err := os.RemoveAll(l.path); err != nil {
		return fmt.Errorf("unlock %s: %w", filepath.Dir(l.path), err)
	}
	return nil
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "unknown"
	}
	return strings.TrimSpace(host)
}
