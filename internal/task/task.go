// Package task defines the Task sum type: a user-declared intent to
// play a named audio clip, either immediately, once at a future
// instant, or daily at a set of wall-clock times.
package task

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies which variant of Task a value holds.
type Kind string

const (
	KindNow       Kind = "now"
	KindScheduled Kind = "scheduled"
	KindRecurring Kind = "recurring"
)

// Task is implemented by Now, Scheduled and Recurring. It is never
// implemented outside this package.
type Task interface {
	Kind() Kind
	TaskName() string
	FileName() string
	Priority() bool

	isTask()
}

// Now plays file_name immediately and is never persisted.
type Now struct {
	Name       string
	PriorityOn bool
	File       string
}

func (n Now) Kind() Kind        { return KindNow }
func (n Now) TaskName() string  { return n.Name }
func (n Now) FileName() string  { return n.File }
func (n Now) Priority() bool    { return n.PriorityOn }
func (n Now) isTask()           {}

// Scheduled plays file_name once at Time (an absolute local instant),
// then is deleted from the Store.
type Scheduled struct {
	Name       string
	PriorityOn bool
	File       string
	Time       time.Time
}

func (s Scheduled) Kind() Kind       { return KindScheduled }
func (s Scheduled) TaskName() string { return s.Name }
func (s Scheduled) FileName() string { return s.File }
func (s Scheduled) Priority() bool   { return s.PriorityOn }
func (s Scheduled) isTask()          {}

// Recurring plays file_name daily at each wall-clock time in Times,
// until explicitly cancelled.
type Recurring struct {
	Name       string
	PriorityOn bool
	File       string
	// Times holds time-of-day values; only hour/minute/second are
	// meaningful, stored normalized to UTC's zero date.
	Times []time.Time
}

func (r Recurring) Kind() Kind       { return KindRecurring }
func (r Recurring) TaskName() string { return r.Name }
func (r Recurring) FileName() string { return r.File }
func (r Recurring) Priority() bool   { return r.PriorityOn }
func (r Recurring) isTask()          {}

// timeOfDayLayout is the persisted HH:MM encoding for Recurring.Times.
const timeOfDayLayout = "15:04"

// EncodeTimes renders Times as the "HH:MM;HH:MM;..." form persisted in
// the tasks.time column.
func EncodeTimes(times []time.Time) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.Format(timeOfDayLayout)
	}
	return strings.Join(parts, ";")
}

// DecodeTimes parses the persisted "HH:MM;HH:MM;..." form back into a
// slice of time-of-day values (normalized to year 0, UTC).
func DecodeTimes(s string) ([]time.Time, error) {
	if s == "" {
		return nil, fmt.Errorf("empty recurring times")
	}
	parts := strings.Split(s, ";")
	times := make([]time.Time, len(parts))
	for i, p := range parts {
		t, err := time.Parse(timeOfDayLayout, p)
		if err != nil {
			return nil, fmt.Errorf("parse time-of-day %q: %w", p, err)
		}
		times[i] = t
	}
	return times, nil
}

// SortTimes orders time-of-day values ascending, used when persisting
// Recurring tasks so the encoding is stable.
func SortTimes(times []time.Time) {
	sort.Slice(times, func(i, j int) bool {
		return times[i].Before(times[j])
	})
}
