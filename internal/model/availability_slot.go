package model

import "time"

// AvailabilitySlot 导师可用时段 — 对应 availability_slots
type AvailabilitySlot struct {
	AvailabilitySlotID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"availability_slot_id"`
	AdvisorID          string     `gorm:"type:uuid;not null"                             json:"advisor_id"`
	RepeatType         string     `gorm:"type:varchar(20);not null;default:'weekly'"     json:"repeat_type"` // weekly | once
	DayOfWeek          int        `gorm:"type:smallint;not null"                         json:"day_of_week"` // once 类型由 specific_date 推导
	SpecificDate       *time.Time `gorm:"type:date"                                      json:"specific_date,omitempty"`
	StartTime          string     `gorm:"type:char(5);not null"                          json:"start_time"`
	EndTime            string     `gorm:"type:char(5);not null"                          json:"end_time"`
	Location           string     `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	IsActive           bool       `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Advisor *User `gorm:"foreignKey:AdvisorID;references:UserID" json:"advisor,omitempty"`
}

// TableName 指定表名
func (AvailabilitySlot) TableName() string { return "availability_slots" }

const (
	RepeatWeekly = "weekly"
	RepeatOnce   = "once"
)
