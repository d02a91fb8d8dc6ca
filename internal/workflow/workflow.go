// Package workflow 定义指导会话的状态机。
//
//	PENDING  ──approve──▶ APPROVED ──complete──▶ COMPLETED
//	    │                    ▲
//	    └──reject──▶ REJECTED │
//	OFFERED  ──accept───────┘
//	    └──decline──▶ DECLINED
//	PENDING / OFFERED / APPROVED ──cancel──▶ CANCELLED
package workflow

import (
	"errors"
	"strings"
)

// Status 会话状态
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOffered   Status = "OFFERED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDeclined  Status = "DECLINED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Action 状态迁移动作
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// Actor 执行动作的一方
type Actor string

const (
	ActorStudent Actor = "student"
	ActorAdvisor Actor = "advisor"
)

var (
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
	ErrActorNotAllowed   = errors.New("无权执行该操作")
	ErrReasonRequired    = errors.New("该操作必须填写原因")
	ErrUnknownAction     = errors.New("未知的会话操作")
)

type rule struct {
	from           []Status
	to             Status
	actor          Actor
	requiresReason bool
}

var rules = map[Action]rule{
	ActionApprove:  {from: []Status{StatusPending}, to: StatusApproved, actor: ActorAdvisor},
	ActionReject:   {from: []Status{StatusPending}, to: StatusRejected, actor: ActorAdvisor},
	ActionAccept:   {from: []Status{StatusOffered}, to: StatusApproved, actor: ActorStudent},
	ActionDecline:  {from: []Status{StatusOffered}, to: StatusDeclined, actor: ActorStudent, requiresReason: true},
	ActionComplete: {from: []Status{StatusApproved}, to: StatusCompleted, actor: ActorAdvisor},
	ActionCancel:   {from: []Status{StatusPending, StatusOffered, StatusApproved}, to: StatusCancelled, actor: ActorStudent},
}

// Transition 计算 from 状态执行 action 后的新状态
// 先校验执行方，再校验来源状态，最后校验原因
func Transition(from Status, action Action, actor Actor, reason string) (Status, error) {
	r, ok := rules[action]
	if !ok {
		return from, ErrUnknownAction
	}
	if actor != r.actor {
		return from, ErrActorNotAllowed
	}
	allowed := false
	for _, s := range r.from {
		if s == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return from, ErrInvalidTransition
	}
	if r.requiresReason && strings.TrimSpace(reason) == "" {
		return from, ErrReasonRequired
	}
	return r.to, nil
}

// IsTerminal 终态不再迁移
func IsTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// IsActive 占用导师时间的状态
func IsActive(s Status) bool {
	switch s {
	case StatusPending, StatusOffered, StatusApproved:
		return true
	}
	return false
}

// ActiveStatuses 返回占用时间的状态列表（用于查询）
func ActiveStatuses() []string {
	return []string{string(StatusPending), string(StatusOffered), string(StatusApproved)}
}

// CanAddNote 仅 APPROVED / COMPLETED 会话可追加笔记
func CanAddNote(s Status) bool {
	return s == StatusApproved || s == StatusCompleted
}

// IsValidStatus 判断状态字符串是否合法
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusOffered, StatusApproved, StatusRejected,
		StatusDeclined, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
