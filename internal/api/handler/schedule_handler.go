package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/service"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/response"
)

// ScheduleHandler 供餐时段 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Get 某日时段
// GET /api/v1/schedules/:date
func (h *ScheduleHandler) Get(c *gin.Context) {
	resp, err := h.scheduleSvc.Get(c.Request.Context(), c.Param("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, resp)
}

// Replace 整日替换
// PUT /api/v1/schedules/:date
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req dto.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.scheduleSvc.Replace(c.Request.Context(), c.Param("date"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, resp)
}

// Generate 自动生成时段
// POST /api/v1/schedules/generate
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.scheduleSvc.Generate(c.Request.Context(), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, resp)
}

// ExportCalendar 导出 .ics
// GET /api/v1/schedules/:date/ics
func (h *ScheduleHandler) ExportCalendar(c *gin.Context) {
	content, filename, err := h.scheduleSvc.ExportCalendar(c.Request.Context(), c.Param("date"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.Attachment(c, filename, mimeICS, []byte(content))
}

func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidDate):
		response.BadRequest(c, 20001, err.Error())
	case errors.Is(err, service.ErrInvalidTimeWindow):
		response.BadRequest(c, 23001, err.Error())
	case errors.Is(err, service.ErrScheduleOverflow):
		response.Unprocessable(c, 23002, err.Error())
	case errors.Is(err, service.ErrNoGroups):
		response.NotFound(c, 23003, err.Error())
	case errors.Is(err, pkgerrors.ErrFetchFailed):
		response.ServiceUnavailable(c, 20002, pkgerrors.ErrFetchFailed.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		handleReportError(c, err)
	default:
		response.InternalError(c)
	}
}
