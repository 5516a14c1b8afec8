package payouts

import "time"

// NextPayoutDate maps a reference instant to the next disbursement date.
// Disbursements run Monday, Wednesday and Friday, computed in UTC:
//
//	Saturday, Sunday, Monday  -> next Monday
//	Tuesday, Wednesday        -> next Wednesday
//	Thursday, Friday          -> next Friday
//
// The result is always strictly after the reference day; a reference that
// falls on its own payout day rolls a full week forward.
func NextPayoutDate(reference time.Time) time.Time {
	day := midnightUTC(reference)

	var target time.Weekday
	switch day.Weekday() {
	case time.Saturday, time.Sunday, time.Monday:
		target = time.Monday
	case time.Tuesday, time.Wednesday:
		target = time.Wednesday
	default:
		target = time.Friday
	}
	return nextWeekday(day, target)
}

func nextWeekday(day time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(day.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return day.AddDate(0, 0, days)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
