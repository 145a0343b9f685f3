// Package memory holds the session's bounded event log: short action
// tags and system warnings fed back to the planner.
package memory

import "strings"

const defaultCap = 30

// Log is an append-only event log with FIFO eviction past the cap.
type Log struct {
	max   int
	items []string
}

// New returns a Log with the default 30-item cap.
func New() *Log {
	return &Log{max: defaultCap}
}

// NewWithCap returns a Log with a custom cap; n <= 0 falls back to the
// default.
func NewWithCap(n int) *Log {
	if n <= 0 {
		n = defaultCap
	}
	return &Log{max: n}
}

// Add trims and appends one event, evicting the oldest beyond the cap.
func (l *Log) Add(s string) {
	l.items = append(l.items, strings.TrimSpace(s))
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
}

// View returns the newline-joined log used as planner context.
func (l *Log) View() string {
	return strings.Join(l.items, "\n")
}

// Len returns the number of retained items.
func (l *Log) Len() int {
	return len(l.items)
}
