package service

import (
	"context"
	"errors"
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

// ── 可用时段模块业务错误 ──

var (
	ErrSlotNotFound     = errors.New("可用时段不存在")
	ErrSlotDateInPast   = errors.New("一次性时段的日期不能早于今天")
	ErrAdvisorNotFound  = errors.New("导师不存在")
	ErrSlotInvalidInput = errors.New("可用时段参数无效")
)

// AvailabilityService 导师可用时段业务接口
type AvailabilityService interface {
	ListMine(ctx context.Context, advisorID string) ([]dto.AvailabilityResponse, error)
	ListByAdvisor(ctx context.Context, advisorID string) ([]dto.AvailabilityResponse, error)
	Create(ctx context.Context, advisorID string, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
	Update(ctx context.Context, id, advisorID string, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
	Toggle(ctx context.Context, id, advisorID string) (*dto.AvailabilityResponse, error)
	Delete(ctx context.Context, id, advisorID string) error
}

type availabilityService struct {
	repo   *repository.Repository
	loc    *time.Location // "今天"按该时区计算
	logger *zap.Logger
	now    func() time.Time
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &availabilityService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── 查询 ──────────────────────

func (s *availabilityService) ListMine(ctx context.Context, advisorID string) ([]dto.AvailabilityResponse, error) {
	return s.list(ctx, advisorID, false)
}

func (s *availabilityService) ListByAdvisor(ctx context.Context, advisorID string) ([]dto.AvailabilityResponse, error) {
	advisor, err := s.repo.User.GetByID(ctx, advisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvisorNotFound
		}
		s.logger.Error("查询导师失败", zap.String("advisor_id", advisorID), zap.Error(err))
		return nil, err
	}
	if advisor.Role != model.RoleAdvisor {
		return nil, ErrAdvisorNotFound
	}
	return s.list(ctx, advisorID, true)
}

func (s *availabilityService) list(ctx context.Context, advisorID string, activeOnly bool) ([]dto.AvailabilityResponse, error) {
	slots, err := s.repo.Availability.ListByAdvisor(ctx, advisorID, activeOnly)
	if err != nil {
		s.logger.Error("查询可用时段失败", zap.String("advisor_id", advisorID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AvailabilityResponse, 0, len(slots))
	for i := range slots {
		result = append(result, toAvailabilityResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── 写入 ──────────────────────

// applyRequest 将请求写入 slot；once 类型的星期由日期推导
func (s *availabilityService) applyRequest(slot *model.AvailabilitySlot, req *dto.AvailabilityRequest) error {
	slot.RepeatType = req.RepeatType
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.Location = strings.TrimSpace(req.Location)

	switch req.RepeatType {
	case model.RepeatOnce:
		date, err := timeutil.ParseDate(req.SpecificDate)
		if err != nil {
			return ErrSlotInvalidInput
		}
		if date.Before(timeutil.DateOnly(s.now().In(s.loc))) {
			return ErrSlotDateInPast
		}
		slot.SpecificDate = &date
		slot.DayOfWeek = timeutil.Weekday(date)
	case model.RepeatWeekly:
		if req.DayOfWeek == nil {
			return ErrSlotInvalidInput
		}
		slot.SpecificDate = nil
		slot.DayOfWeek = *req.DayOfWeek
	default:
		return ErrSlotInvalidInput
	}
	if err := timeutil.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
		return ErrSlotInvalidInput
	}
	return nil
}

// checkConflicts 与导师自身其它启用时段及授课课表比较
func (s *availabilityService) checkConflicts(ctx context.Context, slot *model.AvailabilitySlot) error {
	slots, err := s.repo.Availability.ListByAdvisor(ctx, slot.AdvisorID, true)
	if err != nil {
		s.logger.Error("查询可用时段失败", zap.String("advisor_id", slot.AdvisorID), zap.Error(err))
		return err
	}
	teaching, err := s.repo.Schedule.ListByOwnerAndDay(ctx, slot.AdvisorID, slot.DayOfWeek)
	if err != nil {
		s.logger.Error("查询授课课表失败", zap.String("advisor_id", slot.AdvisorID), zap.Error(err))
		return err
	}

	existing := make([]conflict.Entry, 0, len(slots)+len(teaching))
	for i := range slots {
		existing = append(existing, availabilityToConflict(&slots[i]))
	}
	for i := range teaching {
		existing = append(existing, scheduleEntryToConflict(&teaching[i]))
	}
	return conflict.Check(availabilityToConflict(slot), existing, slot.AvailabilitySlotID)
}

func (s *availabilityService) Create(ctx context.Context, advisorID string, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	slot := &model.AvailabilitySlot{AdvisorID: advisorID, IsActive: true}
	if err := s.applyRequest(slot, req); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, slot); err != nil {
		return nil, err
	}

	slot.CreatedBy = &advisorID
	slot.UpdatedBy = &advisorID
	if err := s.repo.Availability.Create(ctx, slot); err != nil {
		s.logger.Error("创建可用时段失败", zap.Error(err))
		return nil, err
	}

	resp := toAvailabilityResponse(slot)
	return &resp, nil
}

func (s *availabilityService) getOwned(ctx context.Context, id, advisorID string) (*model.AvailabilitySlot, error) {
	slot, err := s.repo.Availability.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询可用时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if slot.AdvisorID != advisorID {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}

func (s *availabilityService) Update(ctx context.Context, id, advisorID string, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	slot, err := s.getOwned(ctx, id, advisorID)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(slot, req); err != nil {
		return nil, err
	}
	if slot.IsActive {
		if err := s.checkConflicts(ctx, slot); err != nil {
			return nil, err
		}
	}

	slot.UpdatedBy = &advisorID
	if err := s.repo.Availability.Update(ctx, slot); err != nil {
		s.logger.Error("更新可用时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toAvailabilityResponse(slot)
	return &resp, nil
}

// Toggle 切换启用状态；重新启用时需再次检测冲突
func (s *availabilityService) Toggle(ctx context.Context, id, advisorID string) (*dto.AvailabilityResponse, error) {
	slot, err := s.getOwned(ctx, id, advisorID)
	if err != nil {
		return nil, err
	}
	if !slot.IsActive {
		if err := s.checkConflicts(ctx, slot); err != nil {
			return nil, err
		}
	}
	slot.IsActive = !slot.IsActive
	slot.UpdatedBy = &advisorID

	if err := s.repo.Availability.Update(ctx, slot); err != nil {
		s.logger.Error("切换可用时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toAvailabilityResponse(slot)
	return &resp, nil
}

func (s *availabilityService) Delete(ctx context.Context, id, advisorID string) error {
	if _, err := s.getOwned(ctx, id, advisorID); err != nil {
		return err
	}
	if err := s.repo.Availability.Delete(ctx, id, advisorID); err != nil {
		s.logger.Error("删除可用时段失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
