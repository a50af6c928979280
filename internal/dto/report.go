package dto

import "pae-asistencia/internal/report"

// ── 报表模块 DTO ──

// ReportQuery 汇总 / 导出查询参数
type ReportQuery struct {
	Period string `form:"period" binding:"required,oneof=today week month specific-date"`
	Date   string `form:"date"   binding:"required_if=Period specific-date,omitempty,civildate"`
	Site   string `form:"site"   binding:"omitempty,max=100"`
	Group  string `form:"group"  binding:"omitempty,max=50"`
}

// RangeResponse 解析后的日期区间
type RangeResponse struct {
	Period       string `json:"period"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	BusinessDays int    `json:"business_days"`
}

// OutcomeBreakdown 某一结果按班级的分布
type OutcomeBreakdown struct {
	Outcome string                  `json:"outcome"`
	Label   string                  `json:"label"`
	Count   int                     `json:"count"`
	Groups  []report.GroupAggregate `json:"groups"`
}

// SummaryResponse 看板汇总
type SummaryResponse struct {
	Range            RangeResponse      `json:"range"`
	Received         int                `json:"received"`
	NotReceived      int                `json:"not_received"`
	Absent           int                `json:"absent"`
	InactiveStudents int                `json:"inactive_students"`
	ActiveStudents   int                `json:"active_students"`
	ActiveGroups     int                `json:"active_groups"`
	PendingGroups    int                `json:"pending_groups"`
	Pending          []report.GroupKey  `json:"pending"`
	OverallPercent   int                `json:"overall_percent"`
	ByOutcome        []OutcomeBreakdown `json:"by_outcome"`

	// 仅在选定班级时返回：单日为明细，多日为矩阵
	Detail []report.DetailRow `json:"detail,omitempty"`
	Matrix *report.Matrix     `json:"matrix,omitempty"`
}

// GroupOption 筛选下拉中的班级
type GroupOption struct {
	Site  string `json:"site"`
	Grade string `json:"grade"`
	Group string `json:"group"`
}

// FiltersResponse 可选校区与班级
type FiltersResponse struct {
	Sites  []string      `json:"sites"`
	Groups []GroupOption `json:"groups"`
}
