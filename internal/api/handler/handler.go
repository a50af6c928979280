package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"pae-asistencia/internal/service"
	"pae-asistencia/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Report     *ReportHandler
	Export     *ExportHandler
	Student    *StudentHandler
	Attendance *AttendanceHandler
	Schedule   *ScheduleHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Report:     NewReportHandler(svc.Report),
		Export:     NewExportHandler(svc.Export),
		Student:    NewStudentHandler(svc.Student),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Schedule:   NewScheduleHandler(svc.Schedule),
	}
}

// ── 错误码 ──
//
//	10xxx 通用      20xxx 报表与导出
//	21xxx 名单      22xxx 出勤      23xxx 供餐时段

const (
	codeBadParams = 10001
)

// badParams 参数绑定失败，校验错误附带字段详情
func badParams(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "el archivo supera el tamaño permitido")
	case errors.As(err, &verrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, codeBadParams, "parámetros no válidos", verrs.Error())
	default:
		response.BadRequest(c, codeBadParams, "parámetros no válidos")
	}
}
