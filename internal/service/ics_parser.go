package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 将学生从教务系统导出的 iCalendar (RFC 5545) 课表解析为每周重复的课表条目。
//
//   - DTSTART / DTEND 决定星期与时间
//   - FREQ=WEEKLY 的 RRULE 直接视为每周课程
//   - 无 RRULE 的单次事件按 课程名+星期+时间 合并（教务系统常按周逐条导出）
//   - 其它频率、跨午夜、缺少标题的事件计入 skipped
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 2 * 1024 * 1024 // 2MB

// ICSParseResult 解析结果
type ICSParseResult struct {
	Entries []model.ScheduleEntry
	Skipped int
}

// parsedCourseEvent ICS 解析中间结构
type parsedCourseEvent struct {
	Name      string
	Room      string
	DayOfWeek int // 0=周日 … 6=周六
	StartTime string
	EndTime   string
}

// ParseICS 解析 ICS 内容
//
//   - ownerID, semester: 归属信息
//   - from, to: 只保留落在该日期范围内的事件（零值表示不限）
//   - loc: 无时区信息的时间按该时区解释
func ParseICS(reader io.Reader, ownerID, semester string, from, to time.Time, loc *time.Location) (*ICSParseResult, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	result := &ICSParseResult{}
	seen := make(map[parsedCourseEvent]bool)
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp, from, to, loc)
		if !ok {
			result.Skipped++
			continue
		}
		// 合并同课程同时间的多条单次事件
		if seen[evt] {
			continue
		}
		seen[evt] = true
		result.Entries = append(result.Entries, model.ScheduleEntry{
			OwnerID:    ownerID,
			Kind:       model.ScheduleKindCourse,
			CourseName: evt.Name,
			Room:       evt.Room,
			Semester:   semester,
			DayOfWeek:  evt.DayOfWeek,
			StartTime:  evt.StartTime,
			EndTime:    evt.EndTime,
			Source:     model.ScheduleSourceICS,
		})
	}
	return result, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, from, to time.Time, loc *time.Location) (parsedCourseEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedCourseEvent{}, false
	}
	name := strings.TrimSpace(summary.Value)
	if len([]rune(name)) > 100 {
		name = string([]rune(name)[:100])
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedCourseEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		return parsedCourseEvent{}, false
	}
	if !timeutil.SameDate(dtStart, dtEnd) || !dtEnd.After(dtStart) {
		return parsedCourseEvent{}, false
	}

	if rruleProp := evt.GetProperty(ics.ComponentPropertyRrule); rruleProp != nil {
		if !isWeeklyRule(rruleProp.Value) {
			return parsedCourseEvent{}, false
		}
	} else if !inRange(dtStart, from, to) {
		// 单次事件必须落在学期内
		return parsedCourseEvent{}, false
	}

	room := ""
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		room = strings.TrimSpace(p.Value)
		if len([]rune(room)) > 50 {
			room = string([]rune(room)[:50])
		}
	}

	return parsedCourseEvent{
		Name:      name,
		Room:      room,
		DayOfWeek: int(dtStart.Weekday()),
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
	}, true
}

// isWeeklyRule 判断 RRULE 是否为每周重复（如 FREQ=WEEKLY;COUNT=14）
func isWeeklyRule(value string) bool {
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "FREQ") {
			return strings.EqualFold(kv[1], "WEEKLY")
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	d := timeutil.DateOnly(t)
	if !from.IsZero() && d.Before(timeutil.DateOnly(from)) {
		return false
	}
	if !to.IsZero() && d.After(timeutil.DateOnly(to)) {
		return false
	}
	return true
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 全天事件（仅日期）没有时间信息，不能作为课表
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
	}

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
