package notifications

import (
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
)

// How soon after a change the "immediately" tier fires. Digests are still
// batched; immediately means the next five-minute boundary, not one email
// per commit.
const immediateInterval = 5 * time.Minute

/*
NextRun returns the first instant strictly after `after` at which the given
cadence fires. Never returns the zero time except for NotifyNever, which
never fires.

The fixed tiers run staggered within the first hour of the day so they do
not all hit the database at once: twice-daily at 00:05 and 12:05, daily at
00:15, Monday-and-Friday at 00:25 and weekly on Monday at 00:35.
*/
func NextRun(freq models.NotificationFrequency, after time.Time) time.Time {
	switch freq {
	case models.NotifyImmediately:
		return after.Add(immediateInterval)
	case models.NotifyTwiceDaily:
		return nextDailyTime(after, 0, 5, 12, 5)
	case models.NotifyDaily:
		return nextDailyTime(after, 0, 15)
	case models.NotifyMonFri:
		return nextWeekdayTime(after, 0, 25, time.Monday, time.Friday)
	case models.NotifyWeekly:
		return nextWeekdayTime(after, 0, 35, time.Monday)
	case models.NotifyNever:
		return time.Time{}
	}
	return time.Time{}
}

// AllFrequencies lists the cadences the dispatcher iterates, in order.
var AllFrequencies = []models.NotificationFrequency{
	models.NotifyImmediately,
	models.NotifyTwiceDaily,
	models.NotifyDaily,
	models.NotifyMonFri,
	models.NotifyWeekly,
}

// hourMinutePairs is (hour, minute, hour, minute, ...).
func nextDailyTime(after time.Time, hourMinutePairs ...int) time.Time {
	best := time.Time{}
	for day := 0; day <= 1; day++ {
		date := after.AddDate(0, 0, day)
		for i := 0; i < len(hourMinutePairs); i += 2 {
			candidate := time.Date(date.Year(), date.Month(), date.Day(),
				hourMinutePairs[i], hourMinutePairs[i+1], 0, 0, after.Location())
			if candidate.After(after) && (best.IsZero() || candidate.Before(best)) {
				best = candidate
			}
		}
	}
	return best
}

func nextWeekdayTime(after time.Time, hour, minute int, weekdays ...time.Weekday) time.Time {
	for day := 0; day <= 7; day++ {
		date := after.AddDate(0, 0, day)
		candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, after.Location())
		if !candidate.After(after) {
			continue
		}
		for _, weekday := range weekdays {
			if candidate.Weekday() == weekday {
				return candidate
			}
		}
	}
	return time.Time{}
}
