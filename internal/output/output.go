// Package output emits step outputs for later pipeline stages.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// Key is the output name later stages read.
const Key = "newVersion"

// DefaultLockTimeout bounds the wait for the output file lock.
const DefaultLockTimeout = 5 * time.Second

// Line renders a single key=value output line.
func Line(key, value string) string {
	return key + "=" + value + "\n"
}

// Emitter writes outputs either to a GITHUB_OUTPUT style file or to a writer.
type Emitter struct {
	// Path is the output file to append to. Empty means write to Stdout.
	Path        string
	Stdout      io.Writer
	LockTimeout time.Duration
}

// Emit writes key=value. Appends to Path are serialized through an exclusive
// lock on Path.lock so parallel steps sharing the file do not interleave.
func (e *Emitter) Emit(key, value string) error {
	line := Line(key, value)
	if e.Path == "" {
		_, err := io.WriteString(e.Stdout, line)
		return err
	}

	timeout := e.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return withLock(e.Path, timeout, func() error {
		f, err := os.OpenFile(e.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		if _, err := f.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("writing output file: %w", err)
		}
		return f.Close()
	})
}

// withLock acquires an exclusive lock on path.lock, runs fn, then releases.
func withLock(path string, timeout time.Duration, fn func() error) error {
	lockPath := path + ".lock"
	fileLock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring lock on %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring lock on %s", lockPath)
	}
	defer fileLock.Unlock()

	return fn()
}
