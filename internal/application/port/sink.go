package port

import "time"

// Sink renders terminal output for the monitoring loop.
type Sink interface {
	// Live line: overwrite last line (no newline)
	WriteLive(line string) error
	// Event line: append a timestamped line and leave the live line free
	WriteEvent(ts time.Time, line string) error
	NewLine() error
}
