package handler

import (
	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/api/middleware"
	"pae-asistencia/pkg/jwt"
)

// CallerSite docente 只能操作本校区，返回其校区；admin 不受限，返回空串
func CallerSite(c *gin.Context) string {
	if c.GetString(middleware.CtxRole) == jwt.RoleTeacher {
		return c.GetString(middleware.CtxSite)
	}
	return ""
}
