package report

import (
	"errors"
	"strings"
	"time"
)

// PeriodTag 报表周期
type PeriodTag string

const (
	PeriodToday        PeriodTag = "today"
	PeriodWeek         PeriodTag = "week"
	PeriodMonth        PeriodTag = "month"
	PeriodSpecificDate PeriodTag = "specific-date"
)

// DayLayout 日期格式（本地日历日期，不含时区）
const DayLayout = "2006-01-02"

var (
	ErrInvalidPeriod = errors.New("periodo no válido")
	ErrInvalidDate   = errors.New("fecha no válida, use el formato AAAA-MM-DD")
)

// ParsePeriod 解析周期标签
func ParsePeriod(s string) (PeriodTag, error) {
	switch tag := PeriodTag(strings.TrimSpace(s)); tag {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodSpecificDate:
		return tag, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// MultiDay 是否为多日周期
func (p PeriodTag) MultiDay() bool {
	return p == PeriodWeek || p == PeriodMonth
}

// Range 解析后的闭区间 [Start, End]
//
// 所有日期都是「日历日」：取本地年月日后挂在 UTC 零点，
// 之后只做 AddDate 运算，不经过任何时区换算。
type Range struct {
	Tag          PeriodTag `json:"tag"`
	Start        time.Time `json:"start_date"`
	End          time.Time `json:"end_date"`
	BusinessDays int       `json:"business_days"`
}

// ParseDay 解析 YYYY-MM-DD
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DayOf 取 t 所在时区的年月日，返回对应日历日
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDay 日历日格式化为 YYYY-MM-DD
func FormatDay(t time.Time) string {
	return DayOf(t).Format(DayLayout)
}

// Resolve 将周期标签转为具体日期区间
// now 须已处于报表时区；date 仅 specific-date 使用
func Resolve(tag PeriodTag, date string, now time.Time) (Range, error) {
	today := DayOf(now)

	var start, end time.Time
	switch tag {
	case PeriodToday:
		start, end = today, today
	case PeriodSpecificDate:
		d, err := ParseDay(date)
		if err != nil {
			return Range{}, err
		}
		start, end = d, d
	case PeriodWeek:
		// 周一为偏移 0，周日视为第 7 天
		wd := int(today.Weekday())
		if wd == 0 {
			wd = 7
		}
		start = today.AddDate(0, 0, -(wd - 1))
		end = start.AddDate(0, 0, 6)
	case PeriodMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	default:
		return Range{}, ErrInvalidPeriod
	}

	return Range{
		Tag:          tag,
		Start:        start,
		End:          end,
		BusinessDays: CountBusinessDays(start, end),
	}, nil
}

// Contains 日历日是否落在区间内
func (r Range) Contains(day time.Time) bool {
	d := DayOf(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days 区间内的工作日，即矩阵的日期轴
func (r Range) Days() []time.Time {
	return BusinessDays(r.Start, r.End)
}

// IsWeekend 周六或周日
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BusinessDays 返回 [start, end] 内的周一至周五
func BusinessDays(start, end time.Time) []time.Time {
	start, end = DayOf(start), DayOf(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			days = append(days, d)
		}
	}
	return days
}

// CountBusinessDays 工作日数量，至少为 1
func CountBusinessDays(start, end time.Time) int {
	if n := len(BusinessDays(start, end)); n > 0 {
		return n
	}
	return 1
}
