package scheduler

import "time"

// nextFire computes the soonest future occurrence of any time-of-day
// value in times, relative to now, in the local zone. DST gaps (a
// wall-clock time that doesn't exist on a given date, e.g. during a
// spring-forward transition) are skipped as candidates for that date.
//
// At least one candidate must exist; times is assumed non-empty.
func nextFire(times []time.Time, now time.Time) (time.Duration, time.Time) {
	var best time.Time
	var bestDiff time.Duration
	found := false

	for _, t := range times {
		for _, dayOffset := range [2]int{0, 1} {
			candidate := wallClockOn(now.AddDate(0, 0, dayOffset), t)
			if candidate.IsZero() {
				continue // DST gap: this time-of-day doesn't exist on this date
			}
			if !candidate.After(now) {
				continue
			}

			diff := candidate.Sub(now)
			if !found || diff < bestDiff {
				best, bestDiff, found = candidate, diff, true
			}
			break // first valid candidate for this time-of-day wins over later days
		}
	}

	return bestDiff, best
}

// wallClockOn builds day's date combined with timeOfDay's hour/
// minute/second in the local zone, returning the zero Time if that
// wall-clock instant doesn't exist (a DST spring-forward gap).
func wallClockOn(day, timeOfDay time.Time) time.Time {
	y, m, d := day.Date()
	h, min, sec := timeOfDay.Clock()

	candidate := time.Date(y, m, d, h, min, sec, 0, time.Local)

	// time.Date normalizes out-of-range/nonexistent wall clocks by
	// rolling forward; a mismatch against what we asked for means the
	// requested instant didn't exist.
	if ch, cmin, csec := candidate.Clock(); ch != h || cmin != min || csec != sec {
		return time.Time{}
	}
	if cy, cm, cd := candidate.Date(); cy != y || cm != m || cd != d {
		return time.Time{}
	}

	return candidate
}
