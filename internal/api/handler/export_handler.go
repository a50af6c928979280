package handler

import (
	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/service"
	"pae-asistencia/pkg/response"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
	mimeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Spreadsheet 导出 Excel
// GET /api/v1/reports/export/xlsx?period=month&site=xxx
func (h *ExportHandler) Spreadsheet(c *gin.Context) {
	req, ok := bindReportRequest(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.Spreadsheet(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.Attachment(c, filename, mimeXLSX, buf.Bytes())
}

// PDF 导出 PDF
// GET /api/v1/reports/export/pdf?period=today
func (h *ExportHandler) PDF(c *gin.Context) {
	req, ok := bindReportRequest(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.PDF(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.Attachment(c, filename, mimePDF, buf.Bytes())
}
