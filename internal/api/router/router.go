package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/config"
	"thesis-guidance/backend/internal/api/handler"
	"thesis-guidance/backend/internal/api/middleware"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/workflow"
	"thesis-guidance/backend/pkg/jwt"
	"thesis-guidance/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单与限流降级
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 避免把 (*redis.Client)(nil) 装进接口
	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist, limiter = rdb, rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	r.Use(middleware.NormalizeJSONKeys())

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db))

	const (
		admin   = model.RoleAdmin
		advisor = model.RoleAdvisor
		student = model.RoleStudent
	)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证），按 IP 限流
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, cfg.Auth.LoginRateLimit*3, cfg.Auth.LoginRateWindow, logger))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/advisors", h.User.ListAdvisors)
				users.GET("", middleware.RoleAuth(admin), h.User.ListUsers)
				users.POST("", middleware.RoleAuth(admin), h.User.CreateUser)
				users.GET("/:id", middleware.RoleAuth(admin), h.User.GetUser)
				users.PUT("/:id", middleware.RoleAuth(admin), h.User.UpdateUser)
				users.DELETE("/:id", middleware.RoleAuth(admin), h.User.DeleteUser)
			}

			// 学期模块
			periods := authorized.Group("/periods")
			{
				periods.GET("", h.Period.ListPeriods)
				periods.GET("/current", h.Period.GetCurrentPeriod)
				periods.GET("/:id", h.Period.GetPeriod)
				periods.POST("", middleware.RoleAuth(admin), h.Period.CreatePeriod)
				periods.PUT("/:id", middleware.RoleAuth(admin), h.Period.UpdatePeriod)
				periods.PUT("/:id/activate", middleware.RoleAuth(admin), h.Period.ActivatePeriod)
				periods.DELETE("/:id", middleware.RoleAuth(admin), h.Period.DeletePeriod)
			}

			// 课表模块（导师授课 / 学生上课）
			schedules := authorized.Group("/schedules", middleware.RoleAuth(advisor, student))
			{
				schedules.GET("", h.Schedule.ListMySchedule)
				schedules.POST("", h.Schedule.CreateEntry)
				schedules.POST("/check-conflicts", h.Schedule.CheckConflicts)
				schedules.POST("/import", middleware.RoleAuth(student), h.Schedule.ImportICS)
				schedules.PUT("/:id", h.Schedule.UpdateEntry)
				schedules.DELETE("/:id", h.Schedule.DeleteEntry)
			}

			// 导师可用时段
			availability := authorized.Group("/availability")
			{
				availability.GET("/advisors/:id", h.Availability.ListByAdvisor)
				availability.GET("", middleware.RoleAuth(advisor), h.Availability.ListMine)
				availability.POST("", middleware.RoleAuth(advisor), h.Availability.CreateSlot)
				availability.PUT("/:id", middleware.RoleAuth(advisor), h.Availability.UpdateSlot)
				availability.PATCH("/:id/toggle", middleware.RoleAuth(advisor), h.Availability.ToggleSlot)
				availability.DELETE("/:id", middleware.RoleAuth(advisor), h.Availability.DeleteSlot)
			}

			// 论文项目
			theses := authorized.Group("/theses")
			{
				theses.GET("/mine", middleware.RoleAuth(advisor, student), h.Thesis.ListMine)
				theses.GET("/:id", h.Thesis.GetThesis)
				theses.GET("", middleware.RoleAuth(admin), h.Thesis.ListTheses)
				theses.POST("", middleware.RoleAuth(admin), h.Thesis.CreateThesis)
				theses.PUT("/:id", middleware.RoleAuth(admin), h.Thesis.UpdateThesis)
				theses.DELETE("/:id", middleware.RoleAuth(admin), h.Thesis.DeleteThesis)
			}

			// 指导会话
			sessions := authorized.Group("/sessions")
			{
				sessions.POST("/request", middleware.RoleAuth(student), h.Session.RequestSession)
				sessions.POST("/offer", middleware.RoleAuth(advisor), h.Session.OfferSession)
				sessions.GET("/mine", middleware.RoleAuth(advisor, student), h.Session.ListMine)
				sessions.GET("/:id", h.Session.GetSession)

				sessions.PUT("/:id/approve", middleware.RoleAuth(advisor), h.Session.Transition(workflow.ActionApprove))
				sessions.PUT("/:id/reject", middleware.RoleAuth(advisor), h.Session.Transition(workflow.ActionReject))
				sessions.PUT("/:id/complete", middleware.RoleAuth(advisor), h.Session.Transition(workflow.ActionComplete))
				sessions.PUT("/:id/accept", middleware.RoleAuth(student), h.Session.Transition(workflow.ActionAccept))
				sessions.PUT("/:id/decline", middleware.RoleAuth(student), h.Session.Transition(workflow.ActionDecline))
				sessions.PUT("/:id/cancel", middleware.RoleAuth(student), h.Session.Transition(workflow.ActionCancel))

				sessions.POST("/:id/notes", middleware.RoleAuth(advisor), h.Session.AddNote)
				sessions.GET("/:id/notes", h.Session.ListNotes)
			}

			// 进度
			progress := authorized.Group("/progress")
			{
				progress.GET("/mine", middleware.RoleAuth(student), h.Progress.Mine)
				progress.GET("/theses/:id", h.Progress.ForThesis)
				progress.GET("/export", middleware.RoleAuth(admin, advisor), h.Progress.Export)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

// healthCheck 数据库可达时 200，否则 503
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
