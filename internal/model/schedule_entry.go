package model

// ScheduleEntry 课表条目 — 对应 schedule_entries
// 导师的授课课表（teaching）与学生的上课课表（course）共用一张表，仅所有者可见
type ScheduleEntry struct {
	ScheduleEntryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_entry_id"`
	OwnerID         string `gorm:"type:uuid;not null"                             json:"owner_id"`
	Kind            string `gorm:"type:varchar(20);not null"                      json:"kind"` // teaching | course
	CourseName      string `gorm:"type:varchar(100);not null"                     json:"course_name"`
	Room            string `gorm:"type:varchar(50)"                               json:"room,omitempty"`
	Semester        string `gorm:"type:varchar(50)"                               json:"semester,omitempty"`
	DayOfWeek       int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0-6，0=周日
	StartTime       string `gorm:"type:char(5);not null"                          json:"start_time"`
	EndTime         string `gorm:"type:char(5);not null"                          json:"end_time"`
	Source          string `gorm:"type:varchar(20);not null;default:'manual'"     json:"source"` // manual | ics
	VersionedModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (ScheduleEntry) TableName() string { return "schedule_entries" }

const (
	ScheduleKindTeaching = "teaching"
	ScheduleKindCourse   = "course"

	ScheduleSourceManual = "manual"
	ScheduleSourceICS    = "ics"
)
