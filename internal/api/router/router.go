package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pae-asistencia/config"
	"pae-asistencia/internal/api/handler"
	"pae-asistencia/internal/api/middleware"
	"pae-asistencia/pkg/jwt"
	"pae-asistencia/pkg/metrics"
	"pae-asistencia/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 与 db 均可为 nil：rdb 为 nil 时导出不限流，db 为 nil 时健康检查跳过数据库
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", healthCheck(db, rdb))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		anyRole := middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher)
		adminOnly := middleware.RoleAuth(jwt.RoleAdmin)

		// 看板与导出（导出按用户限流）
		reports := v1.Group("/reports", anyRole)
		{
			reports.GET("/summary", h.Report.Summary)
			reports.GET("/filters", h.Report.Filters)

			export := reports.Group("/export", middleware.RateLimit(rdb, cfg.RateLimit.ExportPerMinute, time.Minute))
			export.GET("/xlsx", h.Export.Spreadsheet)
			export.GET("/pdf", h.Export.PDF)
		}

		// 学生名册
		students := v1.Group("/students", adminOnly)
		{
			students.GET("", h.Student.List)
			students.POST("", h.Student.Create)
			students.POST("/import", h.Student.Import)
			students.GET("/export", h.Student.ExportRoster)
			students.PUT("/status", h.Student.UpdateStatus)
			students.PUT("/group", h.Student.MoveGroup)
		}
		v1.PUT("/groups/rename", adminOnly, h.Student.RenameGroup)

		// 出勤登记（docente 仅限本校区，Service 层校验）
		attendance := v1.Group("/attendance", anyRole)
		{
			attendance.GET("/classroom", h.Attendance.Classroom)
			attendance.POST("", h.Attendance.Register)
		}

		// 用餐时段
		schedules := v1.Group("/schedules")
		{
			schedules.POST("/generate", adminOnly, h.Schedule.Generate)
			schedules.GET("/:date", anyRole, h.Schedule.Get)
			schedules.GET("/:date/ics", anyRole, h.Schedule.ExportCalendar)
			schedules.PUT("/:date", adminOnly, h.Schedule.Replace)
		}
	}

	return r
}

// healthCheck 数据库不可用时返回 503；Redis 仅作降级提示
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbState := "skipped"
		if db != nil {
			dbState = "ok"
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				dbState = "down"
				status = http.StatusServiceUnavailable
			}
		}

		redisState := "disabled"
		if rdb != nil {
			redisState = "ok"
			if !rdb.Healthy(ctx) {
				redisState = "degraded"
			}
		}

		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"database": dbState,
			"redis":    redisState,
		})
	}
}
