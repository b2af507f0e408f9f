package pricing

import "time"

type monthDay struct {
	month time.Month
	day   int
}

// 固定的公共假日
var publicHolidays = func() map[monthDay]struct{} {
	days := []monthDay{
		{time.January, 1}, {time.January, 2}, {time.January, 3}, {time.January, 4},
		{time.January, 5}, {time.January, 6}, {time.January, 7}, {time.January, 8},
		{time.February, 23},
		{time.March, 8},
		{time.April, 29}, {time.April, 30},
		{time.May, 1}, {time.May, 9}, {time.May, 10},
		{time.June, 12},
		{time.November, 4},
		{time.December, 30}, {time.December, 31},
	}
	set := make(map[monthDay]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}()

// IsHoliday 周六、周日或固定公共假日
func IsHoliday(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	_, ok := publicHolidays[monthDay{date.Month(), date.Day()}]
	return ok
}

// WeekdayIndex 星期序号，周一为 0
func WeekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}
