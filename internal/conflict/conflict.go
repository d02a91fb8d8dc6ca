// Package conflict 检测新时间条目与已有条目之间的时间重叠。
//
// 只做纯计算：调用方负责按所有者取出候选集合（课表、可用时段、指导会话），
// 转为 Entry 后交给 Find / Check。
package conflict

import (
	"errors"
	"fmt"
	"time"

	"thesis-guidance/backend/pkg/timeutil"
)

// ErrConflict 用于 errors.Is 判断；具体冲突明细见 *Error
var ErrConflict = errors.New("时间冲突")

// 条目来源
const (
	KindSchedule     = "schedule"
	KindAvailability = "availability"
	KindSession      = "session"
)

// Entry 参与冲突检测的时间条目
type Entry struct {
	ID        string
	Kind      string
	Label     string
	DayOfWeek int        // 0=周日 … 6=周六
	Date      *time.Time // 一次性条目的具体日期；nil 表示每周重复
	StartTime string     // HH:MM
	EndTime   string     // HH:MM
}

// sameDay 判断两个条目是否落在同一天
//   - 都有日期：比较日历日期
//   - 仅一方有日期：该日期的星期与另一方的星期相同
//   - 都是每周重复：比较星期
func (e Entry) sameDay(o Entry) bool {
	switch {
	case e.Date != nil && o.Date != nil:
		return timeutil.SameDate(*e.Date, *o.Date)
	case e.Date != nil:
		return timeutil.Weekday(*e.Date) == o.DayOfWeek
	case o.Date != nil:
		return timeutil.Weekday(*o.Date) == e.DayOfWeek
	default:
		return e.DayOfWeek == o.DayOfWeek
	}
}

// Find 返回 existing 中与 candidate 重叠的条目，保持原有顺序
// excludeID 非空时跳过同 ID 的条目（编辑场景下排除自身）
func Find(candidate Entry, existing []Entry, excludeID string) ([]Entry, error) {
	cs, ce, err := timeutil.ParseRange(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return nil, err
	}

	var hits []Entry
	for _, e := range existing {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		if !candidate.sameDay(e) {
			continue
		}
		es, ee, err := timeutil.ParseRange(e.StartTime, e.EndTime)
		if err != nil {
			return nil, fmt.Errorf("条目 %s 时间无效: %w", e.ID, err)
		}
		if timeutil.Overlaps(cs, ce, es, ee) {
			hits = append(hits, e)
		}
	}
	return hits, nil
}

// Check 与 Find 相同，但存在冲突时返回 *Error
func Check(candidate Entry, existing []Entry, excludeID string) error {
	hits, err := Find(candidate, existing, excludeID)
	if err != nil {
		return err
	}
	if len(hits) > 0 {
		return &Error{Conflicts: hits}
	}
	return nil
}

// Error 冲突错误，携带全部冲突条目
type Error struct {
	Conflicts []Entry
}

func (e *Error) Error() string {
	return fmt.Sprintf("时间冲突：与 %d 个已有条目重叠", len(e.Conflicts))
}

// Is 使 errors.Is(err, ErrConflict) 成立
func (e *Error) Is(target error) bool {
	return target == ErrConflict
}
