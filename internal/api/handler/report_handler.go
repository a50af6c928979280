package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/service"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// bindReportRequest 汇总与导出共用的查询参数
func bindReportRequest(c *gin.Context) (service.ReportRequest, bool) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return service.ReportRequest{}, false
	}
	// docente 只看本校区
	if site := CallerSite(c); site != "" {
		q.Site = site
	}
	req, err := service.NewReportRequest(&q)
	if err != nil {
		handleReportError(c, err)
		return service.ReportRequest{}, false
	}
	return req, true
}

// Summary 看板汇总
// GET /api/v1/reports/summary?period=week&site=xxx&group=601
func (h *ReportHandler) Summary(c *gin.Context) {
	req, ok := bindReportRequest(c)
	if !ok {
		return
	}

	resp, err := h.reportSvc.Summary(c.Request.Context(), req)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, resp)
}

// Filters 可选校区与班级
// GET /api/v1/reports/filters?site=xxx
func (h *ReportHandler) Filters(c *gin.Context) {
	site := c.Query("site")
	if s := CallerSite(c); s != "" {
		site = s
	}
	resp, err := h.reportSvc.Filters(c.Request.Context(), site)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, resp)
}

func handleReportError(c *gin.Context, err error) {
	switch {
	case service.IsInputError(err):
		response.BadRequest(c, 20001, err.Error())
	case errors.Is(err, pkgerrors.ErrAggregationFailed), errors.Is(err, pkgerrors.ErrFetchFailed):
		// 上游读取失败：只报告一次，不返回部分结果
		response.ServiceUnavailable(c, 20002, pkgerrors.ErrAggregationFailed.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 20003, service.ErrExportGenerateFail.Error())
	default:
		response.InternalError(c)
	}
}
