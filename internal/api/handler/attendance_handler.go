package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/service"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/response"
)

// AttendanceHandler 出勤登记 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Classroom 班级点名视图
// GET /api/v1/attendance/classroom?site=xxx&group=601&date=2024-01-08
func (h *AttendanceHandler) Classroom(c *gin.Context) {
	var q dto.ClassroomQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	if site := CallerSite(c); site != "" && !strings.EqualFold(site, q.Site) {
		handleAttendanceError(c, service.ErrSiteForbidden)
		return
	}

	resp, err := h.attendanceSvc.Classroom(c.Request.Context(), &q)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, resp)
}

// Register 提交班级当日出勤
// POST /api/v1/attendance
func (h *AttendanceHandler) Register(c *gin.Context) {
	var req dto.RegisterAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.attendanceSvc.Register(c.Request.Context(), &req, CallerSite(c))
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, resp)
}

func handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidDate):
		response.BadRequest(c, 20001, err.Error())
	case errors.Is(err, service.ErrFutureDate):
		response.BadRequest(c, 22001, err.Error())
	case errors.Is(err, service.ErrSiteForbidden):
		response.Forbidden(c, 22002, err.Error())
	case errors.Is(err, service.ErrStudentNotInGroup):
		response.Unprocessable(c, 22003, err.Error())
	case errors.Is(err, service.ErrStudentInactive):
		response.Unprocessable(c, 22004, err.Error())
	case errors.Is(err, service.ErrDuplicateEntry):
		response.BadRequest(c, 22005, err.Error())
	case errors.Is(err, service.ErrInvalidOutcome):
		response.BadRequest(c, 22006, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21002, err.Error())
	case errors.Is(err, pkgerrors.ErrFetchFailed):
		response.ServiceUnavailable(c, 20002, pkgerrors.ErrFetchFailed.Error())
	default:
		response.InternalError(c)
	}
}
