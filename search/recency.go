package search

import "time"

// Recency bucket boundaries in seconds of file age.
const (
	secondsPerDay   = 86400
	secondsPerWeek  = 7 * secondsPerDay
	secondsPerMonth = 30 * secondsPerDay
	secondsPerYear  = 365 * secondsPerDay
)

// RecencyScore maps a modification time to a coarse staircase score:
// under a day 100, under a week 80, under 30 days 60, under a year 40, else 20.
// Boundaries are exclusive, so a file exactly one day old scores 80.
// Modification times in the future count as brand new.
func RecencyScore(modifiedTime int64, now time.Time) float64 {
	age := now.Unix() - modifiedTime
	switch {
	case age < secondsPerDay:
		return 100
	case age < secondsPerWeek:
		return 80
	case age < secondsPerMonth:
		return 60
	case age < secondsPerYear:
		return 40
	default:
		return 20
	}
}
