// Package period computes the fortnightly (quincena) billing periods and
// their cutoff instants. Every function takes the current time explicitly.
package period

import (
	"fmt"
	"time"

	// Embedded zone database so the clock works on minimal images.
	_ "time/tzdata"
)

// DateLayout is the layout of bucket dates.
const DateLayout = "2006-01-02"

// Type of a quincena.
type Type string

const (
	FirstHalf  Type = "1-15"
	SecondHalf Type = "16-31"
)

// Period is one quincena expressed in the local timezone.
type Period struct {
	Start time.Time `json:"start"` // local midnight of the bucket day (1st or 16th)
	End   time.Time `json:"end"`   // local midnight of the last day (15th or month end)
	Type  Type      `json:"type"`
}

// BucketDate returns the canonical bucket date.
func (p Period) BucketDate() string {
	return p.Start.Format(DateLayout)
}

// EndDate returns the last calendar day of the period.
func (p Period) EndDate() string {
	return p.End.Format(DateLayout)
}

// Contains reports whether the YYYY-MM-DD date falls inside the period.
func (p Period) Contains(date string) bool {
	return date >= p.BucketDate() && date <= p.EndDate()
}

// Next returns the period that follows p.
func (p Period) Next() Period {
	return periodOf(p.End.AddDate(0, 0, 1))
}

// Previous returns the period that precedes p.
func (p Period) Previous() Period {
	return periodOf(p.Start.AddDate(0, 0, -1))
}

func (p Period) String() string {
	return fmt.Sprintf("%s (%s)", p.BucketDate(), p.Type)
}

// periodOf returns the period containing the calendar day of t, keeping the
// location of t.
func periodOf(t time.Time) Period {
	y, m, d := t.Date()
	loc := t.Location()
	if d <= 15 {
		return Period{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, 15, 0, 0, 0, 0, loc),
			Type:  FirstHalf,
		}
	}
	// Day 0 of the following month is the last day of this one.
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	return Period{
		Start: time.Date(y, m, 16, 0, 0, 0, 0, loc),
		End:   last,
		Type:  SecondHalf,
	}
}

// Clock resolves periods in a local timezone and early-freeze cutoffs in a
// foreign one.
type Clock struct {
	local   *time.Location
	foreign *time.Location
}

// New builds a clock from resolved locations.
func New(local, foreign *time.Location) *Clock {
	return &Clock{local: local, foreign: foreign}
}

// Load builds a clock from IANA zone names.
func Load(localName, foreignName string) (*Clock, error) {
	local, err := time.LoadLocation(localName)
	if err != nil {
		return nil, fmt.Errorf("load local timezone %q: %w", localName, err)
	}
	foreign, err := time.LoadLocation(foreignName)
	if err != nil {
		return nil, fmt.Errorf("load foreign timezone %q: %w", foreignName, err)
	}
	return New(local, foreign), nil
}

// Location returns the local timezone.
func (c *Clock) Location() *time.Location {
	return c.local
}

// Current returns the period containing now.
func (c *Clock) Current(now time.Time) Period {
	return periodOf(now.In(c.local))
}

// Previous returns the period that ended before the current one. On a
// closure day this is the period to close.
func (c *Clock) Previous(now time.Time) Period {
	return c.Current(now).Previous()
}

// ForDate returns the period containing a YYYY-MM-DD date.
func (c *Clock) ForDate(date string) (Period, error) {
	t, err := time.ParseInLocation(DateLayout, date, c.local)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period date %q: %w", date, err)
	}
	return periodOf(t), nil
}

// Normalize maps any date inside a period to its bucket date.
func (c *Clock) Normalize(date string) (string, error) {
	p, err := c.ForDate(date)
	if err != nil {
		return "", err
	}
	return p.BucketDate(), nil
}

// Resolve returns the period for an optional date; an empty date means the
// current period.
func (c *Clock) Resolve(date string, now time.Time) (Period, error) {
	if date == "" {
		return c.Current(now), nil
	}
	return c.ForDate(date)
}

// IsClosureDay reports whether now falls on day 1 or 16 in local time.
func (c *Clock) IsClosureDay(now time.Time) bool {
	d := now.In(c.local).Day()
	return d == 1 || d == 16
}

// FullCloseAt is the local midnight at which p ends.
func (c *Clock) FullCloseAt(p Period) time.Time {
	return p.Next().Start
}

// EarlyFreezeAt is the instant, in local time, of foreign midnight at the
// start of the closure day that ends p.
func (c *Clock) EarlyFreezeAt(p Period) time.Time {
	y, m, d := p.Next().Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.foreign).In(c.local)
}

// Snapshot summarises the clock state at now.
type Snapshot struct {
	Now            time.Time `json:"now"`
	Current        Period    `json:"current"`
	Previous       Period    `json:"previous"`
	IsClosureDay   bool      `json:"is_closure_day"`
	EarlyFreezeAt  time.Time `json:"early_freeze_at"`
	FullCloseAt    time.Time `json:"full_close_at"`
	CurrentBucket  string    `json:"current_bucket"`
	PreviousBucket string    `json:"previous_bucket"`
}

// Snapshot returns the clock state at now. Cutoffs refer to the current
// period.
func (c *Clock) Snapshot(now time.Time) Snapshot {
	cur := c.Current(now)
	prev := cur.Previous()
	return Snapshot{
		Now:            now.In(c.local),
		Current:        cur,
		Previous:       prev,
		IsClosureDay:   c.IsClosureDay(now),
		EarlyFreezeAt:  c.EarlyFreezeAt(cur),
		FullCloseAt:    c.FullCloseAt(cur),
		CurrentBucket:  cur.BucketDate(),
		PreviousBucket: prev.BucketDate(),
	}
}
