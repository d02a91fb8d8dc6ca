package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/internal/conflict"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── 课表模块业务错误 ──

var (
	ErrScheduleEntryNotFound = errors.New("课表条目不存在")
	ErrICSInvalid            = errors.New("ICS 文件无法解析")
	ErrICSEmpty              = errors.New("ICS 文件中没有可导入的每周课程")
)

// ScheduleService 课表业务接口（仅操作当前用户自己的条目）
type ScheduleService interface {
	List(ctx context.Context, userID string) ([]dto.ScheduleEntryResponse, error)
	Create(ctx context.Context, userID, role string, req *dto.ScheduleEntryRequest) (*dto.ScheduleEntryResponse, error)
	Update(ctx context.Context, id, userID string, req *dto.ScheduleEntryRequest) (*dto.ScheduleEntryResponse, error)
	Delete(ctx context.Context, id, userID string) error
	CheckConflicts(ctx context.Context, userID string, req *dto.CheckConflictRequest) (*dto.CheckConflictResponse, error)
	ImportICS(ctx context.Context, userID string, reader io.Reader, semester string) (*dto.ImportScheduleResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	loc    *time.Location // ICS 中无时区信息的时间按此解释
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &scheduleService{repo: repo, loc: loc, logger: logger}
}

// scheduleKindFor 导师维护授课课表，其余角色维护上课课表
func scheduleKindFor(role string) string {
	if role == model.RoleAdvisor {
		return model.ScheduleKindTeaching
	}
	return model.ScheduleKindCourse
}

// ────────────────────── List ──────────────────────

func (s *scheduleService) List(ctx context.Context, userID string) ([]dto.ScheduleEntryResponse, error) {
	entries, err := s.repo.Schedule.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toScheduleEntryResponse(&entries[i]))
	}
	return result, nil
}

// checkOwnSchedule 与同一所有者同一天的其它条目检测冲突
func (s *scheduleService) checkOwnSchedule(ctx context.Context, ownerID string, candidate conflict.Entry, excludeID string) error {
	existing, err := s.repo.Schedule.ListByOwnerAndDay(ctx, ownerID, candidate.DayOfWeek)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("owner_id", ownerID), zap.Error(err))
		return err
	}
	entries := make([]conflict.Entry, 0, len(existing))
	for i := range existing {
		entries = append(entries, scheduleEntryToConflict(&existing[i]))
	}
	return conflict.Check(candidate, entries, excludeID)
}

// ────────────────────── Create ──────────────────────

func (s *scheduleService) Create(ctx context.Context, userID, role string, req *dto.ScheduleEntryRequest) (*dto.ScheduleEntryResponse, error) {
	entry := &model.ScheduleEntry{
		OwnerID:    userID,
		Kind:       scheduleKindFor(role),
		CourseName: strings.TrimSpace(req.CourseName),
		Room:       strings.TrimSpace(req.Room),
		Semester:   strings.TrimSpace(req.Semester),
		DayOfWeek:  *req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Source:     model.ScheduleSourceManual,
	}
	if err := s.checkOwnSchedule(ctx, userID, scheduleEntryToConflict(entry), ""); err != nil {
		return nil, err
	}

	entry.CreatedBy = &userID
	entry.UpdatedBy = &userID
	if err := s.repo.Schedule.Create(ctx, entry); err != nil {
		s.logger.Error("创建课表条目失败", zap.Error(err))
		return nil, err
	}

	resp := toScheduleEntryResponse(entry)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduleService) getOwned(ctx context.Context, id, userID string) (*model.ScheduleEntry, error) {
	entry, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleEntryNotFound
		}
		s.logger.Error("查询课表条目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	// 他人的条目按不存在处理
	if entry.OwnerID != userID {
		return nil, ErrScheduleEntryNotFound
	}
	return entry, nil
}

func (s *scheduleService) Update(ctx context.Context, id, userID string, req *dto.ScheduleEntryRequest) (*dto.ScheduleEntryResponse, error) {
	entry, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	entry.CourseName = strings.TrimSpace(req.CourseName)
	entry.Room = strings.TrimSpace(req.Room)
	entry.Semester = strings.TrimSpace(req.Semester)
	entry.DayOfWeek = *req.DayOfWeek
	entry.StartTime = req.StartTime
	entry.EndTime = req.EndTime

	if err := s.checkOwnSchedule(ctx, userID, scheduleEntryToConflict(entry), entry.ScheduleEntryID); err != nil {
		return nil, err
	}

	entry.UpdatedBy = &userID
	if err := s.repo.Schedule.Update(ctx, entry); err != nil {
		s.logger.Error("更新课表条目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toScheduleEntryResponse(entry)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *scheduleService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Schedule.Delete(ctx, id, userID); err != nil {
		s.logger.Error("删除课表条目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CheckConflicts ──────────────────────

// CheckConflicts 表单预检：课表条目，以及指定日期时当天的活跃指导会话
func (s *scheduleService) CheckConflicts(ctx context.Context, userID string, req *dto.CheckConflictRequest) (*dto.CheckConflictResponse, error) {
	candidate := conflict.Entry{StartTime: req.StartTime, EndTime: req.EndTime}
	if req.DayOfWeek != nil {
		candidate.DayOfWeek = *req.DayOfWeek
	}

	var existing []conflict.Entry
	if req.Date != "" {
		date, err := timeutil.ParseDate(req.Date)
		if err != nil {
			return nil, err
		}
		candidate.Date = &date
		candidate.DayOfWeek = timeutil.Weekday(date)

		sessions, err := s.activeSessionsOn(ctx, userID, date)
		if err != nil {
			return nil, err
		}
		for i := range sessions {
			existing = append(existing, sessionToConflict(&sessions[i]))
		}
	}

	entries, err := s.repo.Schedule.ListByOwnerAndDay(ctx, userID, candidate.DayOfWeek)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	for i := range entries {
		existing = append(existing, scheduleEntryToConflict(&entries[i]))
	}

	hits, err := conflict.Find(candidate, existing, req.ExcludeID)
	if err != nil {
		return nil, err
	}
	return &dto.CheckConflictResponse{
		HasConflict: len(hits) > 0,
		Conflicts:   ToConflictItems(hits),
	}, nil
}

// activeSessionsOn 用户（无论学生或导师身份）某日的活跃会话
func (s *scheduleService) activeSessionsOn(ctx context.Context, userID string, date time.Time) ([]model.GuidanceSession, error) {
	asStudent, err := s.repo.Session.ListActiveByStudentOnDate(ctx, userID, date)
	if err != nil {
		s.logger.Error("查询会话失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	asAdvisor, err := s.repo.Session.ListActiveByAdvisorOnDate(ctx, userID, date)
	if err != nil {
		s.logger.Error("查询会话失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return append(asStudent, asAdvisor...), nil
}

// ────────────────────── ImportICS ──────────────────────

// ImportICS 全量替换当前学期的导入课表；semester 为空时取激活学期名称
func (s *scheduleService) ImportICS(ctx context.Context, userID string, reader io.Reader, semester string) (*dto.ImportScheduleResponse, error) {
	var from, to time.Time
	period, err := s.repo.Period.GetCurrent(ctx)
	switch {
	case err == nil:
		from, to = period.StartDate, period.EndDate
		if semester == "" {
			semester = period.Name
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if semester == "" {
			return nil, ErrNoActivePeriod
		}
	default:
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}

	parsed, err := ParseICS(reader, userID, semester, from, to, s.loc)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrICSInvalid
	}
	if len(parsed.Entries) == 0 {
		return nil, ErrICSEmpty
	}
	for i := range parsed.Entries {
		parsed.Entries[i].CreatedBy = &userID
		parsed.Entries[i].UpdatedBy = &userID
	}

	overlaps, err := s.importOverlaps(ctx, userID, parsed.Entries)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Schedule.ReplaceImported(ctx, userID, semester, parsed.Entries); err != nil {
		s.logger.Error("导入课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ICS 课表导入完成",
		zap.String("user_id", userID),
		zap.String("semester", semester),
		zap.Int("imported", len(parsed.Entries)),
		zap.Int("skipped", parsed.Skipped),
	)

	resp := &dto.ImportScheduleResponse{
		Semester:  semester,
		Imported:  len(parsed.Entries),
		Skipped:   parsed.Skipped,
		Entries:   make([]dto.ScheduleEntryResponse, 0, len(parsed.Entries)),
		Conflicts: ToConflictItems(overlaps),
	}
	for i := range parsed.Entries {
		resp.Entries = append(resp.Entries, toScheduleEntryResponse(&parsed.Entries[i]))
	}
	return resp, nil
}

// importOverlaps 返回与导入条目重叠的手动条目（去重，保持原顺序）
// 旧的导入条目即将被替换，不参与比较
func (s *scheduleService) importOverlaps(ctx context.Context, userID string, imported []model.ScheduleEntry) ([]conflict.Entry, error) {
	existing, err := s.repo.Schedule.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	manual := make([]conflict.Entry, 0, len(existing))
	for i := range existing {
		if existing[i].Source == model.ScheduleSourceManual {
			manual = append(manual, scheduleEntryToConflict(&existing[i]))
		}
	}

	seen := make(map[string]bool)
	var result []conflict.Entry
	for i := range imported {
		hits, err := conflict.Find(scheduleEntryToConflict(&imported[i]), manual, "")
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if !seen[h.ID] {
				seen[h.ID] = true
				result = append(result, h)
			}
		}
	}
	return result, nil
}
