package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"pae-asistencia/pkg/redis"
	"pae-asistencia/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件，用于导出接口
// limit: 窗口内允许的最大请求数，<= 0 表示不限
// window: 滑动窗口时长
// rdb 为 nil（启动时 Redis 不可用）时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		// 已认证请求按用户计数，否则按 IP
		who := c.GetString(CtxUserID)
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("%s:%s", who, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "demasiadas solicitudes, intente más tarde")
			c.Abort()
			return
		}

		c.Next()
	}
}
