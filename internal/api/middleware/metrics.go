package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pae-asistencia/pkg/metrics"
)

// Metrics 按路由模板统计请求数，未匹配的路由统一记为 unmatched
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
