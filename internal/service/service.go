package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"thesis-guidance/backend/config"
	"thesis-guidance/backend/internal/repository"
	"thesis-guidance/backend/pkg/jwt"
	"thesis-guidance/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Period       PeriodService
	Schedule     ScheduleService
	Availability AvailabilityService
	Thesis       ThesisService
	Session      SessionService
	Progress     ProgressService
	Notification NotificationService
}

// ── Redis 能力（Redis 不可用时为 nil，各服务降级处理） ──

// TokenBlacklist 登出 Token 黑名单
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RateLimiter 滑动窗口限流
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Locker 分布式锁
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// NewService 创建 Service 聚合
// rdb 可为 nil：此时不启用黑名单、登录限流与预订锁，双重预订仍由数据库唯一索引兜底
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		blacklist TokenBlacklist
		limiter   RateLimiter
		locker    Locker
	)
	// 避免把 (*redis.Client)(nil) 装进接口
	if rdb != nil {
		blacklist, limiter, locker = rdb, rdb, rdb
	}

	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil {
		logger.Warn("时区无效，使用 UTC", zap.String("timezone", cfg.Database.Timezone), zap.Error(err))
		loc = time.UTC
	}

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, limiter, logger),
		User:         NewUserService(cfg, repo, logger),
		Period:       NewPeriodService(repo, logger),
		Schedule:     NewScheduleService(repo, loc, logger),
		Availability: NewAvailabilityService(repo, loc, logger),
		Thesis:       NewThesisService(repo, logger),
		Session:      NewSessionService(cfg, repo, locker, loc, logger),
		Progress:     NewProgressService(repo, logger),
		Notification: NewNotificationService(repo, logger),
	}
}
