package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/service"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/response"
)

// StudentHandler 名单模块 HTTP 处理器（仅管理员）
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// List 名单分页查询
// GET /api/v1/students?site=xxx&group=601&status=active&page=1
func (h *StudentHandler) List(c *gin.Context) {
	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	list, total, err := h.studentSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Create 新增单个学生
// POST /api/v1/students
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.studentSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.Created(c, resp)
}

// Import 从 Excel 批量导入名单
// POST /api/v1/students/import  (multipart, 字段 file)
func (h *StudentHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badParams(c, err)
		return
	}
	defer file.Close()

	rows, err := h.studentSvc.ParseImportFile(file)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	resp, err := h.studentSvc.ImportStudents(c.Request.Context(), rows)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	// 部分批次失败仍返回 200，message 提示「Procesado con algunos errores」
	response.OKWithMessage(c, resp.Message, resp)
}

// ExportRoster 导出名单（与导入模板同列）
// GET /api/v1/students/export?site=xxx
func (h *StudentHandler) ExportRoster(c *gin.Context) {
	buf, filename, err := h.studentSvc.ExportRoster(c.Request.Context(), c.Query("site"))
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.Attachment(c, filename, mimeXLSX, buf.Bytes())
}

// UpdateStatus 批量启用 / 停用
// PUT /api/v1/students/status
func (h *StudentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.studentSvc.UpdateStatus(c.Request.Context(), &req)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.OK(c, resp)
}

// MoveGroup 批量调班
// PUT /api/v1/students/group
func (h *StudentHandler) MoveGroup(c *gin.Context) {
	var req dto.MoveGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.studentSvc.MoveGroup(c.Request.Context(), &req)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.OK(c, resp)
}

// RenameGroup 班级改名
// PUT /api/v1/groups/rename
func (h *StudentHandler) RenameGroup(c *gin.Context) {
	var req dto.RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	resp, err := h.studentSvc.RenameGroup(c.Request.Context(), &req)
	if err != nil {
		handleStudentError(c, err)
		return
	}

	response.OK(c, resp)
}

func handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidationFailed):
		response.Unprocessable(c, 21001, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21002, err.Error())
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 21003, err.Error())
	case errors.Is(err, service.ErrEnrollmentCodeExists):
		response.Conflict(c, 21004, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 21005, err.Error())
	case errors.Is(err, pkgerrors.ErrFetchFailed):
		response.ServiceUnavailable(c, 20002, pkgerrors.ErrFetchFailed.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		handleReportError(c, err)
	default:
		response.InternalError(c)
	}
}
