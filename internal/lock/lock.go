// Package lock keeps a profile to one interactive gcsearch at a time.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside a profile directory.
const FileName = "LOCK"

// Holder identifies the process holding a profile.
type Holder struct {
	PID    int
	Binary string
	Since  time.Time
}

func (h Holder) String() string {
	name := h.Binary
	if name == "" {
		name = "process"
	}
	if h.Since.IsZero() {
		return fmt.Sprintf("%s (pid %d)", name, h.PID)
	}
	return fmt.Sprintf("%s (pid %d) since %s", name, h.PID, h.Since.Local().Format(time.DateTime))
}

// record is the single line written to the lock file: pid, binary, start time.
func (h Holder) record() string {
	return fmt.Sprintf("%d %s %s\n", h.PID, h.Binary, h.Since.UTC().Format(time.RFC3339))
}

func parseHolder(content string) Holder {
	var h Holder
	fields := strings.Fields(content)
	if len(fields) > 0 {
		h.PID, _ = strconv.Atoi(fields[0])
	}
	if len(fields) > 1 {
		h.Binary = fields[1]
	}
	if len(fields) > 2 {
		h.Since, _ = time.Parse(time.RFC3339, fields[2])
	}
	return h
}

// HeldError is returned by Acquire when another process holds the profile.
type HeldError struct {
	Path   string
	Holder Holder
}

func (e *HeldError) Error() string {
	if e.Holder.PID == 0 {
		return fmt.Sprintf("profile locked by another process (%s)", e.Path)
	}
	return fmt.Sprintf("profile locked by %s (%s)", e.Holder, e.Path)
}

// Lock is a held profile lock.
type Lock struct {
	file   *os.File
	path   string
	holder Holder
}

// Acquire takes an exclusive, non-blocking flock on dir/LOCK and records
// binary as the holder.
func Acquire(dir, binary string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			data, _ := os.ReadFile(path)
			return nil, &HeldError{Path: path, Holder: parseHolder(string(data))}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	h := Holder{PID: os.Getpid(), Binary: binary, Since: time.Now()}
	err = f.Truncate(0)
	if err == nil {
		_, err = f.WriteAt([]byte(h.record()), 0)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock holder: %w", err)
	}
	return &Lock{file: f, path: path, holder: h}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Holder returns the record written for this process.
func (l *Lock) Holder() Holder { return l.holder }

// Release removes the lock file and drops the flock. A nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
