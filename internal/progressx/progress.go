// Package progressx reports orchestrator progress to stderr with elapsed
// time, the only place any internal package of this module writes to
// stderr (the cmd binaries also write there directly).
package progressx

import (
	"fmt"
	"os"
	"time"
)

// Progress reports pipeline progress to stderr with elapsed time.
type Progress struct {
	start   time.Time
	verbose bool
}

// New creates a progress reporter whose clock starts now.
func New(verbose bool) *Progress {
	return &Progress{start: time.Now(), verbose: verbose}
}

// Log prints a progress message with an elapsed-time prefix.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Elapsed returns the time since the reporter was created, for callers that
// need the raw duration for a run_summary row rather than a log line.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.start)
}
