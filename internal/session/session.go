// Package session implements the CLI's `log` command: a transcript of
// everything printed during a run, optionally echoed to stdout and
// optionally mirrored to a file, with start/stop/suspend control.
package session

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/xid"
)

// Log is a suspendable, optionally file-backed transcript. The zero
// value is usable: writes go nowhere until Start is called.
type Log struct {
	mu      sync.Mutex
	echo    bool
	running bool
	suspend int // >0 while suspended; Resume decrements
	file    *os.File
	segment xid.ID
}

// New returns a Log with echo enabled, matching the CLI default.
func New() *Log {
	return &Log{echo: true}
}

// Start begins a new transcript segment, tagging it with a fresh xid
// so multiple `log start`/`log end` pairs in one run can be told apart
// in a saved file.
func (l *Log) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = true
	l.suspend = 0
	l.segment = xid.New()
}

// End stops the transcript. Put calls after End are no-ops.
func (l *Log) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
}

// Reset clears suspend state and closes any open file without
// stopping the transcript itself (`log reset`).
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspend = 0
	return l.closeLocked()
}

// Suspend increments the suspend counter; Put is silent while it is
// above zero. Suspend/Resume nest.
func (l *Log) Suspend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspend++
}

// Resume decrements the suspend counter, floored at zero.
func (l *Log) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.suspend > 0 {
		l.suspend--
	}
}

// SetEcho controls whether Put also writes to stdout.
func (l *Log) SetEcho(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = on
}

// File points the transcript at a file, replacing any previously open
// file. Passing "" closes the current file and reverts to echo-only.
func (l *Log) File(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.closeLocked(); err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("session: open %s: %w", path, err)
	}
	l.file = f
	return nil
}

func (l *Log) closeLocked() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("session: close transcript: %w", err)
	}
	return nil
}

// Put appends text to the transcript (a no-op if the log is stopped
// or suspended). A trailing newline is added if text lacks one.
func (l *Log) Put(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.suspend > 0 {
		return
	}
	if len(text) == 0 || text[len(text)-1] != '\n' {
		text += "\n"
	}
	var w io.Writer = io.Discard
	if l.echo {
		w = os.Stdout
	}
	fmt.Fprint(w, text)
	if l.file != nil {
		fmt.Fprint(l.file, text)
	}
}

// Segment returns the id of the current `log start` segment, the zero
// xid.ID if the log has never been started.
func (l *Log) Segment() xid.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.segment
}
