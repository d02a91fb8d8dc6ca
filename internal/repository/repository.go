package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Period       AcademicPeriodRepository
	Schedule     ScheduleEntryRepository
	Availability AvailabilitySlotRepository
	Thesis       ThesisRepository
	Session      GuidanceSessionRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Period:       NewAcademicPeriodRepo(db),
		Schedule:     NewScheduleEntryRepo(db),
		Availability: NewAvailabilitySlotRepo(db),
		Thesis:       NewThesisRepo(db),
		Session:      NewGuidanceSessionRepo(db),
		Notification: NewNotificationRepo(db),
	}
}
