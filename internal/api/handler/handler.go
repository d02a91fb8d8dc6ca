package handler

import "thesis-guidance/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Period       *PeriodHandler
	Schedule     *ScheduleHandler
	Availability *AvailabilityHandler
	Thesis       *ThesisHandler
	Session      *SessionHandler
	Progress     *ProgressHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Period:       NewPeriodHandler(svc.Period),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Availability: NewAvailabilityHandler(svc.Availability),
		Thesis:       NewThesisHandler(svc.Thesis),
		Session:      NewSessionHandler(svc.Session),
		Progress:     NewProgressHandler(svc.Progress),
		Notification: NewNotificationHandler(svc.Notification),
	}
}
