package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/config"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrEmailExists          = errors.New("邮箱已被使用")
	ErrIdentityNumberExists = errors.New("编号已被使用")
	ErrCannotDeleteSelf     = errors.New("不能删除当前登录账号")
)

// UserService 用户业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	ListAdvisors(ctx context.Context, keyword string) ([]dto.UserBrief, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// EnsureAdmin 按启动配置确保初始管理员存在；配置为空时跳过
	EnsureAdmin(ctx context.Context) error
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkUnique(ctx, "", email, req.IdentityNumber); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password, s.cfg.Auth.PasswordBcryptCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		IdentityNumber:     req.IdentityNumber,
		PasswordHash:       hash,
		Role:               req.Role,
		MustChangePassword: true,
	}
	user.CreatedBy = &callerID
	user.UpdatedBy = &callerID

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建用户", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	resp := toUserResponse(user)
	return &resp, nil
}

// checkUnique 校验邮箱与编号未被其他用户占用
func (s *userService) checkUnique(ctx context.Context, selfID, email, identityNumber string) error {
	if email != "" {
		existing, err := s.repo.User.GetByEmail(ctx, email)
		if err == nil && existing.UserID != selfID {
			return ErrEmailExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询邮箱失败", zap.Error(err))
			return err
		}
	}
	if identityNumber != "" {
		existing, err := s.repo.User.GetByIdentityNumber(ctx, identityNumber)
		if err == nil && existing.UserID != selfID {
			return ErrIdentityNumberExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询编号失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserFilter{Role: req.Role, Keyword: strings.TrimSpace(req.Keyword)}
	users, total, err := s.repo.User.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ListAdvisors 学生选择导师时使用，返回摘要信息
func (s *userService) ListAdvisors(ctx context.Context, keyword string) ([]dto.UserBrief, error) {
	filter := repository.UserFilter{Role: model.RoleAdvisor, Keyword: strings.TrimSpace(keyword)}
	users, _, err := s.repo.User.List(ctx, filter, 0, 200)
	if err != nil {
		s.logger.Error("列出导师失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.UserBrief, 0, len(users))
	for i := range users {
		result = append(result, *toUserBrief(&users[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	var email, identity string
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.IdentityNumber != nil {
		identity = *req.IdentityNumber
	}
	if err := s.checkUnique(ctx, id, email, identity); err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if email != "" {
		user.Email = email
	}
	if identity != "" {
		user.IdentityNumber = identity
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password, s.cfg.Auth.PasswordBcryptCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		user.PasswordHash = hash
		user.MustChangePassword = true
	}
	user.UpdatedBy = &callerID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.repo.User.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if err := s.repo.User.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("删除用户", zap.String("id", id), zap.String("by", callerID))
	return nil
}

// ────────────────────── EnsureAdmin ──────────────────────

func (s *userService) EnsureAdmin(ctx context.Context) error {
	b := s.cfg.Bootstrap
	if b.AdminEmail == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(b.AdminEmail))

	_, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := hashPassword(b.AdminPassword, s.cfg.Auth.PasswordBcryptCost)
	if err != nil {
		return err
	}
	name := b.AdminName
	if name == "" {
		name = "Administrator"
	}
	identity := b.AdminIdentityNumber
	if identity == "" {
		identity = "0000000000"
	}

	admin := &model.User{
		Name:               name,
		Email:              email,
		IdentityNumber:     identity,
		PasswordHash:       hash,
		Role:               model.RoleAdmin,
		MustChangePassword: true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("已创建初始管理员", zap.String("email", email))
	return nil
}
