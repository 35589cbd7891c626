package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"elearning/backend/config"
	"elearning/backend/internal/api/handler"
	"elearning/backend/internal/api/middleware"
	"elearning/backend/internal/model"
	"elearning/backend/pkg/jwt"
	"elearning/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	r.Use(middleware.NormalizeDigits())

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	const (
		admin   = model.RoleAdmin
		teacher = model.RoleTeacher
		student = model.RoleStudent
	)
	staff := middleware.RoleAuth(admin, teacher)
	writeLimit := func(scope string) gin.HandlerFunc {
		return middleware.RateLimit(rdb, scope, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)
	}

	// 本地存储时由本服务提供附件下载
	if cfg.Storage.Driver == "local" {
		r.Static("/storage", cfg.Storage.LocalRoot)
	}

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 作业与个性化
		assignments := v1.Group("/assignments")
		{
			assignments.POST("", staff, h.Assignment.CreateAssignment)
			assignments.GET("/:id", staff, h.Assignment.GetAssignment)
			assignments.PUT("/:id", staff, h.Assignment.UpdateAssignment)
			assignments.DELETE("/:id", staff, h.Assignment.DeleteAssignment)
			assignments.PUT("/:id/personalizations", staff, h.Assignment.UpsertPersonalizations)
			assignments.GET("/:id/effective", middleware.RoleAuth(student), h.Assignment.GetEffective)
			assignments.POST("/:id/submissions", middleware.RoleAuth(student), writeLimit("submit"), h.Submission.Submit)
		}

		// 提交与批改
		submissions := v1.Group("/submissions")
		{
			submissions.PUT("/:id/grade", staff, h.Submission.Grade)
			submissions.DELETE("/:id", staff, h.Submission.Delete)
		}

		// 课次、考勤、提交列表
		sessions := v1.Group("/class-sessions")
		{
			sessions.PUT("/:id/status", staff, h.ClassSession.UpdateStatus)
			sessions.PUT("/:id/attendance", staff, h.ClassSession.UpsertAttendance)
			sessions.GET("/:id/attendance", staff, h.ClassSession.ListAttendance)
			sessions.GET("/:id/submissions", staff, h.Submission.ListBySession)
			sessions.POST("/:id/materials", staff, h.Material.Create)
			sessions.GET("/:id/materials", h.Material.ListBySession) // 学生按报名与可见范围过滤
		}

		// 课次资料
		materials := v1.Group("/session-materials")
		{
			materials.PUT("/:id", staff, h.Material.Update)
			materials.DELETE("/:id", staff, h.Material.Delete)
		}

		// 折扣码
		discounts := v1.Group("/discount-codes")
		{
			discounts.POST("/validate", writeLimit("discount"), h.Discount.ValidateDiscountCode)
			discounts.GET("", middleware.RoleAuth(admin), h.Discount.ListDiscountCodes)
			discounts.GET("/:id", middleware.RoleAuth(admin), h.Discount.GetDiscountCode)
			discounts.POST("", middleware.RoleAuth(admin), h.Discount.CreateDiscountCode)
			discounts.PUT("/:id", middleware.RoleAuth(admin), h.Discount.UpdateDiscountCode)
			discounts.DELETE("/:id", middleware.RoleAuth(admin), h.Discount.DeleteDiscountCode)
		}

		// 报名
		enrollments := v1.Group("/enrollments")
		{
			enrollments.POST("", staff, h.Enrollment.ManualEnroll)
			enrollments.POST("/self", middleware.RoleAuth(student), h.Enrollment.SelfEnroll)
			enrollments.PUT("/:id", staff, h.Enrollment.UpdateEnrollment)
			enrollments.POST("/:id/cancel", h.Enrollment.CancelEnrollment) // 本人或教师/管理员（Service 层鉴权）
			enrollments.POST("/:id/discount", middleware.RoleAuth(student), writeLimit("discount"), h.Discount.ApplyToEnrollment)
			enrollments.DELETE("/:id/discount", staff, h.Discount.ClearFromEnrollment)
		}

		// 站内通知
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListMine)
			notifications.POST("/:id/read", h.Notification.MarkRead)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/class-sessions/:id/gradebook", staff, h.Export.ExportGradebook)
			export.GET("/courses/:id/calendar", h.Export.ExportCalendar)
		}
	}

	return r, nil
}
