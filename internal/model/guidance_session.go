package model

import (
	"time"

	"gorm.io/datatypes"
)

// GuidanceSession 指导会话 — 对应 guidance_sessions
// 状态迁移见 internal/workflow；更新一律带 version 条件
type GuidanceSession struct {
	SessionID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ThesisID           string     `gorm:"type:uuid;not null"                             json:"thesis_id"`
	StudentID          string     `gorm:"type:uuid;not null"                             json:"student_id"`
	AdvisorID          string     `gorm:"type:uuid;not null"                             json:"advisor_id"`
	AvailabilitySlotID *string    `gorm:"type:uuid"                                      json:"availability_slot_id,omitempty"`
	ScheduledDate      time.Time  `gorm:"type:date;not null"                             json:"scheduled_date"`
	StartTime          string     `gorm:"type:char(5);not null"                          json:"start_time"`
	EndTime            string     `gorm:"type:char(5);not null"                          json:"end_time"`
	Location           string     `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	Topic              string     `gorm:"type:varchar(255)"                              json:"topic,omitempty"`
	Status             string     `gorm:"type:varchar(20);not null"                      json:"status"`
	StatusReason       string     `gorm:"type:varchar(500)"                              json:"status_reason,omitempty"` // 拒绝 / 婉拒 / 取消原因
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	VersionedModel

	// 关联
	Thesis  *ThesisProject `gorm:"foreignKey:ThesisID;references:ThesisID"   json:"thesis,omitempty"`
	Student *User          `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
	Advisor *User          `gorm:"foreignKey:AdvisorID;references:UserID"    json:"advisor,omitempty"`
	Notes   []SessionNote  `gorm:"foreignKey:SessionID;references:SessionID" json:"notes,omitempty"`
}

// TableName 指定表名
func (GuidanceSession) TableName() string { return "guidance_sessions" }

// SessionNote 指导笔记 — 对应 session_notes（仅追加，不可修改）
type SessionNote struct {
	NoteID    string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"note_id"`
	SessionID string                      `gorm:"type:uuid;not null"                             json:"session_id"`
	AdvisorID string                      `gorm:"type:uuid;not null"                             json:"advisor_id"`
	Content   string                      `gorm:"type:text;not null"                             json:"content"`
	Tasks     datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"tasks"` // 待办事项
	CreatedAt time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Advisor *User `gorm:"foreignKey:AdvisorID;references:UserID" json:"advisor,omitempty"`
}

// TableName 指定表名
func (SessionNote) TableName() string { return "session_notes" }
