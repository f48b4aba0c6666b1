package service

import "time"

// DateLayout 是接口与命令行中使用的日期格式
const DateLayout = "2006-01-02"

// Day 将时间截断为 UTC 零点，数据库中的日期字段统一按此存储
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay 解析 YYYY-MM-DD
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

func dayRange(t time.Time) (time.Time, time.Time) {
	start := Day(t)
	return start, start.AddDate(0, 0, 1)
}

func monthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// LastDayOfMonth 返回该月最后一天
func LastDayOfMonth(year, month int) time.Time {
	_, end := monthRange(year, month)
	return end.AddDate(0, 0, -1)
}
