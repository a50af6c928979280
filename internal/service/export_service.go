package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/render"
	"pae-asistencia/internal/report"
	"pae-asistencia/pkg/metrics"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("no se pudo generar el archivo")
)

const reportTitle = "Reporte de asistencia PAE"

// ExportService 导出业务接口
//
// 设计说明：
//   - 一次导出只读取一次数据，表格结构与两种渲染器共用
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 汇总表分母为「在读人数 × 有记录的天数」，与看板总体百分比口径不同
type ExportService interface {
	// Spreadsheet 导出 .xlsx
	Spreadsheet(ctx context.Context, req ReportRequest) (*bytes.Buffer, string, error)
	// PDF 导出 A4 PDF，明细表截断为最近 DetailLimit 条
	PDF(ctx context.Context, req ReportRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	reports ReportService
	cfg     *config.ReportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.ReportConfig, reports ReportService, logger *zap.Logger) ExportService {
	return &exportService{reports: reports, cfg: cfg, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// Spreadsheet 导出 Excel
// ═══════════════════════════════════════════════════════════
//
// 分区顺序：
//   - 校区汇总
//   - 班级汇总
//   - 选定班级时：单日明细或多日矩阵

func (s *exportService) Spreadsheet(ctx context.Context, req ReportRequest) (buf *bytes.Buffer, filename string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveReport("xlsx", start, err) }()

	snap, err := s.reports.Snapshot(ctx, req)
	if err != nil {
		return nil, "", err
	}

	doc := s.document(snap)
	doc.Sections = consolidatedSections(snap)
	if members := snap.GroupStudents(); members != nil {
		title := "Detalle del grupo " + snap.Filter.Group
		if snap.Range.Tag.MultiDay() {
			doc.Sections = append(doc.Sections, report.BuildMatrix(snap.Range, members, snap.Events).Table(title))
		} else {
			doc.Sections = append(doc.Sections, report.DetailTable(title, report.BuildDetailList(snap.Range.Start, members, snap.Events)))
		}
	}

	buf, err = render.RenderSpreadsheet(doc, render.SpreadsheetOptions{
		SheetName:      "Asistencia",
		MaxColumnWidth: s.cfg.MaxColumnWidth,
	})
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	filename = render.SpreadsheetFilename(req.Site, snap.Range.Tag, report.FormatDay(snap.Range.Start))
	s.logger.Info("导出 Excel",
		zap.String("file", filename),
		zap.Int("students", len(snap.Students)),
		zap.Int("events", len(snap.Events)),
	)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// PDF 导出 PDF
// ═══════════════════════════════════════════════════════════

func (s *exportService) PDF(ctx context.Context, req ReportRequest) (buf *bytes.Buffer, filename string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveReport("pdf", start, err) }()

	snap, err := s.reports.Snapshot(ctx, req)
	if err != nil {
		return nil, "", err
	}

	doc := s.document(snap)
	doc.Sections = consolidatedSections(snap)
	doc.Records = report.BuildRecentRecords(snap.Range, snap.Students, snap.Events, s.cfg.Location())

	buf, err = render.RenderPDF(doc, render.PDFOptions{DetailLimit: s.cfg.PDFDetailLimit})
	if err != nil {
		s.logger.Error("生成 PDF 失败", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	filename = render.PDFFilename(req.Site, snap.Range.Tag, report.FormatDay(snap.Range.Start))
	return buf, filename, nil
}

// ── 内部辅助 ──

// consolidatedSections 校区 / 班级汇总表，两种格式都包含，且忽略班级筛选
func consolidatedSections(snap *Snapshot) []report.Table {
	return []report.Table{
		report.SiteSummaryTable(report.BuildSiteSummary(snap.Range, snap.SiteStudents, snap.SiteEvents)),
		report.GroupSummaryTable(report.BuildGroupSummary(snap.Range, snap.SiteStudents, snap.SiteEvents)),
	}
}

// document 两种格式共用的表头与汇总
func (s *exportService) document(snap *Snapshot) render.Document {
	sum := report.Aggregate(snap.Range, snap.Students, snap.Events, report.Filter{}, nil)

	analysis := report.FormatDay(snap.Range.Start)
	if !snap.Range.Start.Equal(snap.Range.End) {
		analysis += " a " + report.FormatDay(snap.Range.End)
	}

	return render.Document{
		Title:        reportTitle,
		AnalysisDate: analysis,
		GeneratedAt:  s.now().In(s.cfg.Location()),
		Filters: []render.Pair{
			{Label: "Sede", Value: scopeLabel(snap.Filter.Site, "Todas")},
			{Label: "Grupo", Value: scopeLabel(snap.Filter.Group, "Todos")},
			{Label: "Periodo", Value: periodLabel(snap.Range.Tag)},
			{Label: "Días hábiles", Value: strconv.Itoa(snap.Range.BusinessDays)},
		},
		Summary: []render.Pair{
			{Label: model.OutcomeReceived.Label(), Value: strconv.Itoa(sum.Received)},
			{Label: model.OutcomeNotReceived.Label(), Value: strconv.Itoa(sum.NotReceived)},
			{Label: model.OutcomeAbsent.Label(), Value: strconv.Itoa(sum.Absent)},
			{Label: "Estudiantes activos", Value: strconv.Itoa(sum.ActiveStudents)},
			{Label: "Estudiantes inactivos", Value: strconv.Itoa(sum.InactiveStudents)},
			{Label: "Grupos pendientes", Value: fmt.Sprintf("%d de %d", sum.PendingGroups, sum.ActiveGroups)},
			{Label: "% Asistencia", Value: fmt.Sprintf("%d%%", sum.OverallPercent)},
		},
		Legend: report.Legend(),
	}
}

func scopeLabel(v, all string) string {
	if model.IsUnfiltered(v) {
		return all
	}
	return v
}

func periodLabel(tag report.PeriodTag) string {
	switch tag {
	case report.PeriodToday:
		return "Hoy"
	case report.PeriodWeek:
		return "Semana"
	case report.PeriodMonth:
		return "Mes"
	case report.PeriodSpecificDate:
		return "Fecha específica"
	default:
		return string(tag)
	}
}
