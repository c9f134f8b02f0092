// Package retention decides which archive files have outlived the keep window.
//
// A file expires when it is older than the cutoff, which is today moved back
// by a whole number of months, and its modification day is not protected.
// The 1st, the 15th and the last day of every month are protected.
package retention

import "time"

// ProtectedDays returns the days of month whose files are never deleted.
func ProtectedDays(month time.Month, year int) map[int]struct{} {
	return map[int]struct{}{
		1:                    {},
		15:                   {},
		LastDay(month, year): {},
	}
}

// IsProtected reports whether t falls on a protected day of its month.
func IsProtected(t time.Time) bool {
	_, ok := ProtectedDays(t.Month(), t.Year())[t.Day()]
	return ok
}

// LastDay returns the number of days in month.
func LastDay(month time.Month, year int) int {
	// Day 0 of the following month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Cutoff returns midnight of the day monthsToKeep months before today, in
// today's location. The day of month is kept and clamped to the target
// month's length, so 31 March minus one month is the last day of February.
func Cutoff(today time.Time, monthsToKeep int) time.Time {
	year, month, day := today.Date()

	// Day 1 never overflows, so time.Date only normalises the month.
	first := time.Date(year, month-time.Month(monthsToKeep), 1, 0, 0, 0, 0, today.Location())
	if last := LastDay(first.Month(), first.Year()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// IsExpired reports whether a file modified at mod should be deleted on today.
// Only the calendar date of mod, seen in today's location, counts.
func IsExpired(mod, today time.Time, monthsToKeep int) bool {
	mod = mod.In(today.Location())
	if IsProtected(mod) {
		return false
	}
	modDay := time.Date(mod.Year(), mod.Month(), mod.Day(), 0, 0, 0, 0, today.Location())
	return modDay.Before(Cutoff(today, monthsToKeep))
}
