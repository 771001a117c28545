// Package salewindow provides the temporal and operational gates around
// the sale ledger: the configured open/close window and the global
// pause switch. Both are evaluated at call time, never continuously.
package salewindow

import (
	"time"
)

// Window is the sale's open/close boundary, derived purely from the
// configured instants. Side-effect free.
type Window struct {
	start time.Time
	end   time.Time
}

// NewWindow builds a Window from the configured start and end instants.
func NewWindow(start, end time.Time) *Window {
	return &Window{start: start, end: end}
}

// IsOpen reports whether the sale accepts orders at the given instant.
func (w *Window) IsOpen(now time.Time) bool {
	return !now.Before(w.start) && now.Before(w.end)
}

// HasClosed reports whether the sale window has ended.
func (w *Window) HasClosed(now time.Time) bool {
	return !now.Before(w.end)
}
