package model

import "time"

// AcademicPeriod 学期表 — 对应 academic_periods
// UTSDate / UASDate 为期中、期末考试边界，用于指导次数分桶统计
type AcademicPeriod struct {
	PeriodID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	Name      string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"                             json:"end_date"`
	UTSDate   time.Time `gorm:"column:uts_date;type:date;not null"             json:"uts_date"`
	UASDate   time.Time `gorm:"column:uas_date;type:date;not null"             json:"uas_date"`
	IsActive  bool      `gorm:"not null;default:false"                         json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (AcademicPeriod) TableName() string { return "academic_periods" }
