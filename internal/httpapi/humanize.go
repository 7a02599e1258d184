package httpapi

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/beni69/csengo/internal/task"
)

// dateLayout is the Go reference-time layout equivalent of the
// "%Y-%m-%dT%H:%M" pattern the HTTP boundary exchanges dates in.
// go-strftime only formats (it has no Parse), so parsing uses this
// stdlib layout directly while rendering goes through strftime.Format
// with the literal pattern string, matching the form fields' display
// exactly.
const dateLayout = "2006-01-02T15:04"
const datePattern = "%Y-%m-%dT%H:%M"

func formatLocalDateTime(t time.Time) string {
	return strftime.Format(datePattern, t.Local())
}

func parseLocalDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.Local)
}

// durFutureWords and durPastWords are the Hungarian unit words for a
// countdown/elapsed display, indexed the same as durDivisors[1:].
var durFutureWords = [7]string{
	"másodperc múlva",
	"perc múlva",
	"óra múlva",
	"nap múlva",
	"hét múlva",
	"hónap múlva",
	"év múlva",
}

var durPastWords = [7]string{
	"másodperce",
	"perce",
	"órája",
	"napja",
	"hete",
	"hónapja",
	"éve",
}

// durDivisors are the second-boundaries a duration is bucketed into:
// anything up to and including durDivisors[i+1] is expressed in units
// of durDivisors[i].
var durDivisors = [8]int64{
	1,
	60,
	60 * 60,
	60 * 60 * 24,
	60 * 60 * 24 * 7,
	60 * 60 * 24 * 30,
	60 * 60 * 24 * 365,
	1<<63 - 1,
}

// durHuman renders d as a Hungarian relative-time phrase, and returns
// alongside it the number of seconds after which the phrase should be
// considered stale (used to drive the task list's htmx poll interval).
func durHuman(d time.Duration) (string, int) {
	secs := int64(d.Seconds())
	if secs == 0 {
		return "most", 1
	}

	words := &durFutureWords
	if secs < 0 {
		words = &durPastWords
	}
	abs := secs
	if abs < 0 {
		abs = -abs
	}

	for i, word := range words {
		max := durDivisors[i+1]
		div := durDivisors[i]
		if abs > max {
			continue
		}
		return fmt.Sprintf("%d %s", abs/div, word), int(div)
	}
	return "", 0
}

// taskElapsed computes the human-readable countdown/elapsed string and
// refresh hint for t, relative to now. Now tasks never linger in the
// list so they render blank.
func taskElapsed(t task.Task, now time.Time) (string, int) {
	switch v := t.(type) {
	case task.Now:
		return "", 0
	case task.Scheduled:
		return durHuman(v.Time.Sub(now))
	case task.Recurring:
		nowTOD := now
		var soonest time.Duration
		first := true
		for _, tod := range v.Times {
			diff := timeOfDayUntil(tod, nowTOD)
			if first || diff < soonest {
				soonest, first = diff, false
			}
		}
		return durHuman(soonest)
	default:
		return "", 0
	}
}

// timeOfDayUntil returns the duration from now's wall-clock time to
// tod's hour/minute/second, wrapping forward to tomorrow if tod has
// already passed today.
func timeOfDayUntil(tod, now time.Time) time.Duration {
	h, m, s := tod.Clock()
	todaySameTime := time.Date(now.Year(), now.Month(), now.Day(), h, m, s, 0, now.Location())
	d := todaySameTime.Sub(now)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// taskTimefmt renders the schedule portion of a task row: blank for
// Now, the formatted instant for Scheduled, comma-joined times-of-day
// for Recurring.
func taskTimefmt(t task.Task) string {
	switch v := t.(type) {
	case task.Now:
		return ""
	case task.Scheduled:
		return formatLocalDateTime(v.Time)
	case task.Recurring:
		times := make([]string, len(v.Times))
		for i, tod := range v.Times {
			times[i] = tod.Format("15:04")
		}
		return joinComma(times)
	default:
		return ""
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
