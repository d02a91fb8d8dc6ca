package service

import (
	"time"

	"thesis-guidance/backend/internal/conflict"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── 模型 → 响应 ──

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                 u.UserID,
		Name:               u.Name,
		Email:              u.Email,
		IdentityNumber:     u.IdentityNumber,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          formatTimestamp(u.CreatedAt),
	}
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, Name: u.Name, IdentityNumber: u.IdentityNumber}
}

func toPeriodResponse(p *model.AcademicPeriod) *dto.PeriodResponse {
	return &dto.PeriodResponse{
		ID:        p.PeriodID,
		Name:      p.Name,
		StartDate: timeutil.FormatDate(p.StartDate),
		EndDate:   timeutil.FormatDate(p.EndDate),
		UTSDate:   timeutil.FormatDate(p.UTSDate),
		UASDate:   timeutil.FormatDate(p.UASDate),
		IsActive:  p.IsActive,
		CreatedAt: formatTimestamp(p.CreatedAt),
		UpdatedAt: formatTimestamp(p.UpdatedAt),
	}
}

func toPeriodBrief(p *model.AcademicPeriod) *dto.PeriodBrief {
	if p == nil {
		return nil
	}
	return &dto.PeriodBrief{
		ID:      p.PeriodID,
		Name:    p.Name,
		UTSDate: timeutil.FormatDate(p.UTSDate),
		UASDate: timeutil.FormatDate(p.UASDate),
	}
}

func toScheduleEntryResponse(e *model.ScheduleEntry) dto.ScheduleEntryResponse {
	return dto.ScheduleEntryResponse{
		ID:         e.ScheduleEntryID,
		Kind:       e.Kind,
		CourseName: e.CourseName,
		Room:       e.Room,
		Semester:   e.Semester,
		DayOfWeek:  e.DayOfWeek,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		Source:     e.Source,
		UpdatedAt:  formatTimestamp(e.UpdatedAt),
	}
}

func toAvailabilityResponse(s *model.AvailabilitySlot) dto.AvailabilityResponse {
	resp := dto.AvailabilityResponse{
		ID:         s.AvailabilitySlotID,
		Advisor:    toUserBrief(s.Advisor),
		RepeatType: s.RepeatType,
		DayOfWeek:  s.DayOfWeek,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Location:   s.Location,
		IsActive:   s.IsActive,
	}
	if s.SpecificDate != nil {
		resp.SpecificDate = timeutil.FormatDate(*s.SpecificDate)
	}
	return resp
}

func toThesisResponse(t *model.ThesisProject) *dto.ThesisResponse {
	advisors := make([]dto.UserBrief, 0, len(t.Advisors))
	for i := range t.Advisors {
		advisors = append(advisors, *toUserBrief(&t.Advisors[i]))
	}
	return &dto.ThesisResponse{
		ID:        t.ThesisID,
		Judul:     t.Judul,
		Tipe:      t.Tipe,
		Period:    toPeriodBrief(t.Period),
		Student:   toUserBrief(t.Student),
		Advisors:  advisors,
		CreatedAt: formatTimestamp(t.CreatedAt),
	}
}

func toSessionResponse(s *model.GuidanceSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:            s.SessionID,
		ThesisID:      s.ThesisID,
		Student:       toUserBrief(s.Student),
		Advisor:       toUserBrief(s.Advisor),
		ScheduledDate: timeutil.FormatDate(s.ScheduledDate),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Location:      s.Location,
		Topic:         s.Topic,
		Status:        s.Status,
		StatusReason:  s.StatusReason,
		DecidedAt:     formatOptionalTimestamp(s.DecidedAt),
		CompletedAt:   formatOptionalTimestamp(s.CompletedAt),
		CreatedAt:     formatTimestamp(s.CreatedAt),
	}
	if s.Thesis != nil {
		resp.ThesisJudul = s.Thesis.Judul
	}
	if s.AvailabilitySlotID != nil {
		resp.AvailabilitySlotID = *s.AvailabilitySlotID
	}
	return resp
}

func toNoteResponse(n *model.SessionNote) dto.NoteResponse {
	return dto.NoteResponse{
		ID:        n.NoteID,
		SessionID: n.SessionID,
		Advisor:   toUserBrief(n.Advisor),
		Content:   n.Content,
		Tasks:     []string(n.Tasks),
		CreatedAt: formatTimestamp(n.CreatedAt),
	}
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: formatTimestamp(n.CreatedAt),
	}
	if n.RelatedType != nil {
		resp.RelatedType = *n.RelatedType
	}
	if n.RelatedID != nil {
		resp.RelatedID = *n.RelatedID
	}
	return resp
}

// ── 模型 → 冲突条目 ──

func scheduleEntryToConflict(e *model.ScheduleEntry) conflict.Entry {
	return conflict.Entry{
		ID:        e.ScheduleEntryID,
		Kind:      conflict.KindSchedule,
		Label:     e.CourseName,
		DayOfWeek: e.DayOfWeek,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
	}
}

func availabilityToConflict(s *model.AvailabilitySlot) conflict.Entry {
	label := "可用时段"
	if s.Location != "" {
		label += "（" + s.Location + "）"
	}
	return conflict.Entry{
		ID:        s.AvailabilitySlotID,
		Kind:      conflict.KindAvailability,
		Label:     label,
		DayOfWeek: s.DayOfWeek,
		Date:      s.SpecificDate,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

func sessionToConflict(s *model.GuidanceSession) conflict.Entry {
	date := s.ScheduledDate
	label := "指导会话"
	if s.Topic != "" {
		label += "：" + s.Topic
	}
	return conflict.Entry{
		ID:        s.SessionID,
		Kind:      conflict.KindSession,
		Label:     label,
		DayOfWeek: timeutil.Weekday(date),
		Date:      &date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// ToConflictItems 冲突条目转为响应结构
func ToConflictItems(entries []conflict.Entry) []dto.ConflictItem {
	items := make([]dto.ConflictItem, 0, len(entries))
	for _, e := range entries {
		item := dto.ConflictItem{
			ID:        e.ID,
			Kind:      e.Kind,
			Label:     e.Label,
			DayOfWeek: e.DayOfWeek,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
		}
		if e.Date != nil {
			item.Date = timeutil.FormatDate(*e.Date)
		}
		items = append(items, item)
	}
	return items
}
