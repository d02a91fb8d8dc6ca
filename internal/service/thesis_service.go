package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
)

// ── 论文模块业务错误 ──

var (
	ErrThesisNotFound       = errors.New("论文项目不存在")
	ErrThesisStudentInvalid = errors.New("学生不存在或角色不是 MAHASISWA")
	ErrThesisAdvisorInvalid = errors.New("导师不存在或角色不是 DOSEN")
	ErrThesisForbidden      = errors.New("无权查看该论文项目")
)

// ThesisService 论文项目业务接口
type ThesisService interface {
	Create(ctx context.Context, req *dto.CreateThesisRequest, callerID string) (*dto.ThesisResponse, error)
	// Get 管理员或参与者可见
	Get(ctx context.Context, id, userID, role string) (*dto.ThesisResponse, error)
	List(ctx context.Context, req *dto.ThesisListRequest) ([]dto.ThesisResponse, int64, error)
	// ListMine 学生为自己的论文，导师为所指导的论文
	ListMine(ctx context.Context, userID, role string) ([]dto.ThesisResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateThesisRequest, callerID string) (*dto.ThesisResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type thesisService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewThesisService 创建 ThesisService 实例
func NewThesisService(repo *repository.Repository, logger *zap.Logger) ThesisService {
	return &thesisService{repo: repo, logger: logger}
}

// validateMembers 校验学期存在、学生与导师角色正确
func (s *thesisService) validateMembers(ctx context.Context, periodID, studentID string, advisorIDs []string) error {
	if periodID != "" {
		if _, err := s.repo.Period.GetByID(ctx, periodID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}
	}
	if studentID != "" {
		student, err := s.repo.User.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrThesisStudentInvalid
			}
			return err
		}
		if student.Role != model.RoleStudent {
			return ErrThesisStudentInvalid
		}
	}
	if len(advisorIDs) > 0 {
		advisors, err := s.repo.User.ListByIDs(ctx, advisorIDs)
		if err != nil {
			return err
		}
		if len(advisors) != len(advisorIDs) {
			return ErrThesisAdvisorInvalid
		}
		for _, a := range advisors {
			if a.Role != model.RoleAdvisor {
				return ErrThesisAdvisorInvalid
			}
		}
	}
	return nil
}

// ────────────────────── Create ──────────────────────

func (s *thesisService) Create(ctx context.Context, req *dto.CreateThesisRequest, callerID string) (*dto.ThesisResponse, error) {
	if err := s.validateMembers(ctx, req.PeriodID, req.StudentID, req.AdvisorIDs); err != nil {
		return nil, err
	}

	thesis := &model.ThesisProject{
		Judul:     strings.TrimSpace(req.Judul),
		Tipe:      req.Tipe,
		PeriodID:  req.PeriodID,
		StudentID: req.StudentID,
	}
	thesis.CreatedBy = &callerID
	thesis.UpdatedBy = &callerID

	if err := s.repo.Thesis.Create(ctx, thesis, req.AdvisorIDs); err != nil {
		s.logger.Error("创建论文项目失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建论文项目",
		zap.String("thesis_id", thesis.ThesisID),
		zap.String("student_id", thesis.StudentID),
		zap.Strings("advisor_ids", req.AdvisorIDs),
	)
	return s.reload(ctx, thesis.ThesisID)
}

func (s *thesisService) reload(ctx context.Context, id string) (*dto.ThesisResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toThesisResponse(thesis), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *thesisService) Get(ctx context.Context, id, userID, role string) (*dto.ThesisResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if role != model.RoleAdmin && !thesis.IsParticipant(userID) {
		return nil, ErrThesisForbidden
	}
	return toThesisResponse(thesis), nil
}

func (s *thesisService) List(ctx context.Context, req *dto.ThesisListRequest) ([]dto.ThesisResponse, int64, error) {
	theses, total, err := s.repo.Thesis.List(ctx, repository.ThesisFilter{PeriodID: req.PeriodID}, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出论文项目失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.ThesisResponse, 0, len(theses))
	for i := range theses {
		result = append(result, *toThesisResponse(&theses[i]))
	}
	return result, total, nil
}

func (s *thesisService) ListMine(ctx context.Context, userID, role string) ([]dto.ThesisResponse, error) {
	filter := repository.ThesisFilter{}
	switch role {
	case model.RoleAdvisor:
		filter.AdvisorID = userID
	case model.RoleStudent:
		filter.StudentID = userID
	default:
		return []dto.ThesisResponse{}, nil
	}

	theses, _, err := s.repo.Thesis.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询我的论文项目失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ThesisResponse, 0, len(theses))
	for i := range theses {
		result = append(result, *toThesisResponse(&theses[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *thesisService) Update(ctx context.Context, id string, req *dto.UpdateThesisRequest, callerID string) (*dto.ThesisResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	var periodID, studentID string
	if req.PeriodID != nil && *req.PeriodID != thesis.PeriodID {
		periodID = *req.PeriodID
	}
	if req.StudentID != nil && *req.StudentID != thesis.StudentID {
		studentID = *req.StudentID
	}
	if err := s.validateMembers(ctx, periodID, studentID, req.AdvisorIDs); err != nil {
		return nil, err
	}

	if req.Judul != nil {
		thesis.Judul = strings.TrimSpace(*req.Judul)
	}
	if req.Tipe != nil {
		thesis.Tipe = *req.Tipe
	}
	if periodID != "" {
		thesis.PeriodID = periodID
	}
	if studentID != "" {
		thesis.StudentID = studentID
	}
	thesis.UpdatedBy = &callerID

	if err := s.repo.Thesis.Update(ctx, thesis, req.AdvisorIDs); err != nil {
		s.logger.Error("更新论文项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.reload(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *thesisService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Thesis.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if err := s.repo.Thesis.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除论文项目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
