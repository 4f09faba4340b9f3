// Package lockfile provides best-effort advisory mutual exclusion across
// independent processes, via a marker file created next to the guarded path.
// Existence of the marker means held, absence means free. The staleness
// reclaim is a heuristic, not a linearizable guarantee: two waiters observing
// the same stale marker can race on the reclaim window. Callers bracket
// exactly one read-modify-write cycle per acquired token.
package lockfile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/isthisthat/Pysheet/pkg/pysheet"
)

// Suffix is appended to the guarded path to derive the marker path.
const Suffix = ".lock"

// Options configures an acquisition attempt.
type Options struct {
	// Timeout bounds the total wait for the marker. Zero means the default.
	Timeout time.Duration
	// Poll is the sleep between attempts. Zero means the default.
	Poll time.Duration
	// Stale is the marker age beyond which the prior holder is presumed dead
	// and the marker forcibly removed. Zero means Timeout plus two seconds.
	Stale time.Duration
	// Marker overrides the derived marker path.
	Marker string
}

// DefaultOptions returns the default acquisition parameters.
func DefaultOptions() Options {
	return Options{
		Timeout: 180 * time.Second,
		Poll:    500 * time.Millisecond,
	}
}

// Token is a held lock. It must be released on every exit path.
type Token struct {
	marker   string
	id       string
	released bool
}

// Marker returns the marker file path backing the token.
func (t *Token) Marker() string { return t.marker }

// Acquire takes the advisory lock guarding path, retrying every poll interval
// until the timeout elapses. A marker older than the staleness threshold is
// removed and acquisition retried. On timeout the returned error wraps
// pysheet.ErrLockTimeout.
func Acquire(path string, opts Options) (*Token, error) {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Poll <= 0 {
		opts.Poll = def.Poll
	}
	if opts.Stale <= 0 {
		opts.Stale = opts.Timeout + 2*time.Second
	}
	marker := opts.Marker
	if marker == "" {
		marker = path + Suffix
	}

	t := &Token{marker: marker, id: uuid.NewString()}
	deadline := time.Now().Add(opts.Timeout)
	for {
		ok, err := t.tryCreate()
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
		if fi, err := os.Stat(marker); err == nil && time.Since(fi.ModTime()) > opts.Stale {
			// prior holder presumed dead; removal may race with another waiter
			_ = os.Remove(marker)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire %s: %w after %s", marker, pysheet.ErrLockTimeout, opts.Timeout)
		}
		time.Sleep(opts.Poll)
	}
}

// tryCreate attempts the atomic create-if-absent of the marker. It reports
// false, nil when the marker already exists.
func (t *Token) tryCreate() (bool, error) {
	f, err := os.OpenFile(t.marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create lock marker: %w", err)
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %d %s\n", t.id, os.Getpid(), time.Now().Format(time.RFC3339))
	return true, nil
}

// Release deletes the marker. Releasing an already-released token, or one
// whose marker was removed externally, is a no-op.
func (t *Token) Release() error {
	if t == nil || t.released {
		return nil
	}
	t.released = true
	if err := os.Remove(t.marker); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock marker: %w", err)
	}
	return nil
}
