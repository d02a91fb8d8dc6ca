package model

// ThesisProject 论文项目 — 对应 thesis_projects
type ThesisProject struct {
	ThesisID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"thesis_id"`
	Judul     string `gorm:"type:varchar(255);not null"                     json:"judul"`
	Tipe      string `gorm:"type:varchar(3);not null"                       json:"tipe"` // TA1 | TA2
	PeriodID  string `gorm:"type:uuid;not null"                             json:"period_id"`
	StudentID string `gorm:"type:uuid;not null"                             json:"student_id"`
	VersionedModel

	// 关联
	Period   *AcademicPeriod `gorm:"foreignKey:PeriodID;references:PeriodID"  json:"period,omitempty"`
	Student  *User           `gorm:"foreignKey:StudentID;references:UserID"   json:"student,omitempty"`
	Advisors []User          `gorm:"many2many:thesis_advisors;foreignKey:ThesisID;joinForeignKey:ThesisID;references:UserID;joinReferences:AdvisorID" json:"advisors,omitempty"`
}

// TableName 指定表名
func (ThesisProject) TableName() string { return "thesis_projects" }

// HasAdvisor 判断用户是否为该论文的指导教师之一
func (t *ThesisProject) HasAdvisor(userID string) bool {
	for _, a := range t.Advisors {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// IsParticipant 判断用户是否为该论文的学生或导师
func (t *ThesisProject) IsParticipant(userID string) bool {
	return t.StudentID == userID || t.HasAdvisor(userID)
}

// ThesisAdvisor 论文-导师关联 — 对应 thesis_advisors
type ThesisAdvisor struct {
	ThesisID  string `gorm:"type:uuid;primaryKey" json:"thesis_id"`
	AdvisorID string `gorm:"type:uuid;primaryKey" json:"advisor_id"`
}

// TableName 指定表名
func (ThesisAdvisor) TableName() string { return "thesis_advisors" }
