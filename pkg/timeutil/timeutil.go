// Package timeutil 提供 HH:MM 时刻与日期的解析、格式化与区间计算。
//
// 所有时刻在内部以"午夜起分钟数"表示，区间一律按半开区间 [start, end) 处理。
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DateLayout ISO 日期格式
const DateLayout = "2006-01-02"

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock = errors.New("时间格式无效，应为补零的 24 小时制 HH:MM")
	ErrInvalidDate  = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidRange = errors.New("结束时间必须晚于开始时间")
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// IsClock 判断字符串是否为合法的 HH:MM
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ParseClock 将 HH:MM 转为午夜起分钟数
func ParseClock(s string) (int, error) {
	if !IsClock(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m, nil
}

// FormatClock 将午夜起分钟数格式化为 HH:MM
func FormatClock(minutes int) (string, error) {
	if minutes < 0 || minutes >= MinutesPerDay {
		return "", fmt.Errorf("%w: %d 分钟", ErrInvalidClock, minutes)
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// Overlaps 判断 [s1,e1) 与 [s2,e2) 是否重叠
// 首尾相接不算重叠；零长度或倒置区间不与任何区间重叠
func Overlaps(s1, e1, s2, e2 int) bool {
	if s1 >= e1 || s2 >= e2 {
		return false
	}
	return s1 < e2 && e1 > s2
}

// ClockOverlaps 以 HH:MM 字符串判断两个区间是否重叠
func ClockOverlaps(aStart, aEnd, bStart, bEnd string) (bool, error) {
	s1, e1, err := ParseRange(aStart, aEnd)
	if err != nil {
		return false, err
	}
	s2, e2, err := ParseRange(bStart, bEnd)
	if err != nil {
		return false, err
	}
	return Overlaps(s1, e1, s2, e2), nil
}

// ParseRange 解析一对 HH:MM，不校验先后顺序
func ParseRange(start, end string) (int, int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}

// ValidateRange 校验 start < end
func ValidateRange(start, end string) error {
	s, e, err := ParseRange(start, end)
	if err != nil {
		return err
	}
	if s >= e {
		return ErrInvalidRange
	}
	return nil
}

// Duration 返回区间时长（分钟）
func Duration(start, end string) (int, error) {
	s, e, err := ParseRange(start, end)
	if err != nil {
		return 0, err
	}
	if e < s {
		return 0, ErrInvalidRange
	}
	return e - s, nil
}

// ── 日期 ──

// ParseDate 解析 YYYY-MM-DD，结果为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOnly 去掉时分秒，保留原日历日期（UTC 零点）
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate 判断两个时间是否为同一日历日期
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// Weekday 返回日期的星期（0=周日 … 6=周六）
func Weekday(t time.Time) int {
	return int(t.Weekday())
}
