// Package progress 根据已完成的指导会话计算考试资格进度。
package progress

import (
	"errors"
	"time"

	"thesis-guidance/backend/pkg/timeutil"
)

// ThesisType 论文类型
type ThesisType string

const (
	TypeTA1 ThesisType = "TA1"
	TypeTA2 ThesisType = "TA2"
)

// ErrUnknownType 不支持的论文类型
var ErrUnknownType = errors.New("未知的论文类型")

// Requirement 各阶段最少完成次数
type Requirement struct {
	BeforeUTS int
	BeforeUAS int
}

var requirements = map[ThesisType]Requirement{
	TypeTA1: {BeforeUTS: 2, BeforeUAS: 2},
	TypeTA2: {BeforeUTS: 3, BeforeUAS: 3},
}

// RequirementFor 返回论文类型对应的阈值
func RequirementFor(t ThesisType) (Requirement, error) {
	req, ok := requirements[t]
	if !ok {
		return Requirement{}, ErrUnknownType
	}
	return req, nil
}

// Record 派生的进度记录，不落库
type Record struct {
	ThesisType          ThesisType `json:"tipe"`
	CompletedBeforeUTS  int        `json:"completed_before_uts"`
	CompletedBeforeUAS  int        `json:"completed_before_uas"`
	RequiredBeforeUTS   int        `json:"required_before_uts"`
	RequiredBeforeUAS   int        `json:"required_before_uas"`
	MeetsUTSRequirement bool       `json:"meets_uts_requirement"`
	MeetsUASRequirement bool       `json:"meets_uas_requirement"`
	CanGraduate         bool       `json:"can_graduate"`
	Uncounted           int        `json:"uncounted"` // UAS 之后完成、不计入任何阶段
}

// Counts 按 UTS / UAS 分界统计已完成会话日期
//
//	date <= uts         → beforeUTS
//	uts < date <= uas   → beforeUAS
//	date > uas          → uncounted
func Counts(completed []time.Time, utsDate, uasDate time.Time) (beforeUTS, beforeUAS, uncounted int) {
	uts := timeutil.DateOnly(utsDate)
	uas := timeutil.DateOnly(uasDate)
	for _, d := range completed {
		day := timeutil.DateOnly(d)
		switch {
		case !day.After(uts):
			beforeUTS++
		case !day.After(uas):
			beforeUAS++
		default:
			uncounted++
		}
	}
	return
}

// Evaluate 与阈值比较，两个阶段须分别满足
func Evaluate(t ThesisType, beforeUTS, beforeUAS int) (Record, error) {
	req, err := RequirementFor(t)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		ThesisType:         t,
		CompletedBeforeUTS: beforeUTS,
		CompletedBeforeUAS: beforeUAS,
		RequiredBeforeUTS:  req.BeforeUTS,
		RequiredBeforeUAS:  req.BeforeUAS,
	}
	r.MeetsUTSRequirement = beforeUTS >= req.BeforeUTS
	r.MeetsUASRequirement = beforeUAS >= req.BeforeUAS
	r.CanGraduate = r.MeetsUTSRequirement && r.MeetsUASRequirement
	return r, nil
}

// Compute 统计并评估
func Compute(t ThesisType, completed []time.Time, utsDate, uasDate time.Time) (Record, error) {
	before, window, uncounted := Counts(completed, utsDate, uasDate)
	r, err := Evaluate(t, before, window)
	if err != nil {
		return Record{}, err
	}
	r.Uncounted = uncounted
	return r, nil
}
