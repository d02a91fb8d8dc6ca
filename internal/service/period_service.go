package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── 学期模块业务错误 ──

var (
	ErrPeriodNotFound    = errors.New("学期不存在")
	ErrNoActivePeriod    = errors.New("当前没有激活的学期")
	ErrPeriodDateInvalid = errors.New("学期日期须满足 开始 < UTS < UAS <= 结束")
	ErrPeriodInUse       = errors.New("学期下仍有论文项目，无法删除")
)

// PeriodService 学期业务接口
type PeriodService interface {
	Create(ctx context.Context, req *dto.CreatePeriodRequest, callerID string) (*dto.PeriodResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PeriodResponse, error)
	GetCurrent(ctx context.Context) (*dto.PeriodResponse, error)
	List(ctx context.Context) ([]dto.PeriodResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdatePeriodRequest, callerID string) (*dto.PeriodResponse, error)
	Activate(ctx context.Context, id string, callerID string) error
	Delete(ctx context.Context, id string, callerID string) error
}

type periodService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPeriodService 创建 PeriodService 实例
func NewPeriodService(repo *repository.Repository, logger *zap.Logger) PeriodService {
	return &periodService{repo: repo, logger: logger}
}

// validatePeriodDates start < uts < uas <= end
func validatePeriodDates(start, end, uts, uas time.Time) error {
	if !start.Before(uts) || !uts.Before(uas) || uas.After(end) {
		return ErrPeriodDateInvalid
	}
	return nil
}

func parsePeriodDates(values ...string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := timeutil.ParseDate(v)
		if err != nil {
			return nil, ErrPeriodDateInvalid
		}
		out = append(out, t)
	}
	return out, nil
}

// ────────────────────── Create ──────────────────────

func (s *periodService) Create(ctx context.Context, req *dto.CreatePeriodRequest, callerID string) (*dto.PeriodResponse, error) {
	dates, err := parsePeriodDates(req.StartDate, req.EndDate, req.UTSDate, req.UASDate)
	if err != nil {
		return nil, err
	}
	if err := validatePeriodDates(dates[0], dates[1], dates[2], dates[3]); err != nil {
		return nil, err
	}

	period := &model.AcademicPeriod{
		Name:      req.Name,
		StartDate: dates[0],
		EndDate:   dates[1],
		UTSDate:   dates[2],
		UASDate:   dates[3],
		IsActive:  false,
	}
	period.CreatedBy = &callerID
	period.UpdatedBy = &callerID

	if err := s.repo.Period.Create(ctx, period); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	return toPeriodResponse(period), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *periodService) GetByID(ctx context.Context, id string) (*dto.PeriodResponse, error) {
	period, err := s.repo.Period.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toPeriodResponse(period), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *periodService) GetCurrent(ctx context.Context) (*dto.PeriodResponse, error) {
	period, err := s.repo.Period.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActivePeriod
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	return toPeriodResponse(period), nil
}

// ────────────────────── List ──────────────────────

func (s *periodService) List(ctx context.Context) ([]dto.PeriodResponse, error) {
	periods, err := s.repo.Period.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		result = append(result, *toPeriodResponse(&periods[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *periodService) Update(ctx context.Context, id string, req *dto.UpdatePeriodRequest, callerID string) (*dto.PeriodResponse, error) {
	period, err := s.repo.Period.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		period.Name = *req.Name
	}
	// 日期字段逐个覆盖后整体校验
	for _, f := range []struct {
		src *string
		dst *time.Time
	}{
		{req.StartDate, &period.StartDate},
		{req.EndDate, &period.EndDate},
		{req.UTSDate, &period.UTSDate},
		{req.UASDate, &period.UASDate},
	} {
		if f.src == nil {
			continue
		}
		t, err := timeutil.ParseDate(*f.src)
		if err != nil {
			return nil, ErrPeriodDateInvalid
		}
		*f.dst = t
	}
	if err := validatePeriodDates(period.StartDate, period.EndDate, period.UTSDate, period.UASDate); err != nil {
		return nil, err
	}
	period.UpdatedBy = &callerID

	if err := s.repo.Period.Update(ctx, period); err != nil {
		s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toPeriodResponse(period), nil
}

// ────────────────────── Activate ──────────────────────

func (s *periodService) Activate(ctx context.Context, id string, callerID string) error {
	if err := s.repo.Period.Activate(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPeriodNotFound
		}
		s.logger.Error("激活学期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("激活学期", zap.String("id", id), zap.String("by", callerID))
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *periodService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Period.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPeriodNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	_, total, err := s.repo.Thesis.List(ctx, repository.ThesisFilter{PeriodID: id}, 0, 1)
	if err != nil {
		s.logger.Error("统计学期论文失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if total > 0 {
		return ErrPeriodInUse
	}

	if err := s.repo.Period.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除学期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
