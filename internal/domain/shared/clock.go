package shared

import (
	"sync"
	"time"
)

// Clock supplies the current instant and the calendar used for day
// boundaries (queue numbering, invoice numbering).
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock returns a wall clock. A nil location means time.Local.
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return &SystemClock{loc: loc}
}

// Now returns the current time in the clock's location
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clock's location
func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the frozen instant
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Location returns the location of the frozen instant
func (c *ManualClock) Location() *time.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Location()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// DayLayout is the canonical format of a calendar day key.
const DayLayout = "2006-01-02"

// DayWindow is the half-open interval [Start, End) of one local calendar day.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Key returns the day as YYYY-MM-DD.
func (w DayWindow) Key() string {
	return w.Start.Format(DayLayout)
}

// Contains reports whether t falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayOf returns the local-midnight window containing t in loc.
func DayOf(t time.Time, loc *time.Location) DayWindow {
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// Today returns the window of the clock's current day.
func Today(c Clock) DayWindow {
	return DayOf(c.Now(), c.Location())
}

// ParseDay parses a YYYY-MM-DD key into its window in loc.
func ParseDay(key string, loc *time.Location) (DayWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DayLayout, key, loc)
	if err != nil {
		return DayWindow{}, NewValidationError("day must be formatted as YYYY-MM-DD")
	}
	return DayOf(d, loc), nil
}
