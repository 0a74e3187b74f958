package usecase

import "time"

// NextPayoutDate は次の支払い予定日を返す。
// 支払いは毎月第1・第3火曜の月2回。今日が該当日ならその日を返し、
// 第3火曜を過ぎていたら翌月の第1火曜に繰り越す。純関数。
func NextPayoutDate(today time.Time) time.Time {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	first := nthTuesday(day.Year(), day.Month(), 1, day.Location())
	if !first.Before(day) {
		return first
	}

	third := nthTuesday(day.Year(), day.Month(), 3, day.Location())
	if !third.Before(day) {
		return third
	}

	// 翌月の第1火曜
	next := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, 1, 0)
	return nthTuesday(next.Year(), next.Month(), 1, next.Location())
}

// その月のn番目の火曜日
func nthTuesday(year int, month time.Month, n int, loc *time.Location) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Tuesday) - int(firstOfMonth.Weekday()) + 7) % 7
	return firstOfMonth.AddDate(0, 0, offset+7*(n-1))
}
