package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"pae-asistencia/internal/report"
	pkgerrors "pae-asistencia/pkg/errors"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *testEnv) {
	reports, env := setupTestReportService()
	svc := NewExportService(env.cfg, reports, env.logger).(*exportService)
	svc.now = fixedNow
	return svc, env
}

// ── Spreadsheet 测试 ──

func TestExportService_Spreadsheet_Sections(t *testing.T) {
	svc, env := setupTestExportService()
	seedMonday(env)

	buf, filename, err := svc.Spreadsheet(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte", Group: "601"})
	if err != nil {
		t.Fatalf("Spreadsheet 应成功: %v", err)
	}
	if filename != "reporte_pae_norte_today_2024-01-08.xlsx" {
		t.Errorf("文件名不符合预期: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("生成的文件应可打开: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Asistencia")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	var titles []string
	for _, r := range rows {
		if len(r) == 1 && strings.HasPrefix(r[0], "Detalle del grupo") {
			titles = append(titles, r[0])
		}
	}
	if len(titles) != 1 || titles[0] != "Detalle del grupo 601" {
		t.Errorf("期望包含 601 班明细分区，实际 %v", titles)
	}
	if rows[0][0] != "Reporte de asistencia PAE" {
		t.Errorf("A1 应为报表标题，实际 %q", rows[0][0])
	}
}

func TestExportService_Spreadsheet_ConsolidatedIgnoresGroup(t *testing.T) {
	svc, env := setupTestExportService()
	seedMonday(env)

	buf, _, err := svc.Spreadsheet(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte", Group: "601"})
	if err != nil {
		t.Fatalf("Spreadsheet 应成功: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("生成的文件应可打开: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Asistencia")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 班级汇总区：标题行之后到下一个单格标题行为止
	groups := make(map[string]bool)
	inSection := false
	for _, r := range rows {
		if len(r) == 1 {
			inSection = r[0] == "Resumen por grupo"
			continue
		}
		if inSection && len(r) > 0 {
			groups[r[0]] = true
		}
	}
	if !groups["601"] || !groups["602"] {
		t.Errorf("班级汇总不应受班级筛选影响，期望含 601 与 602，实际 %v", groups)
	}
	if groups["2025"] {
		t.Error("班级汇总不应包含预备届次")
	}
}

func TestExportService_Spreadsheet_FetchFailure(t *testing.T) {
	svc, env := setupTestExportService()
	env.students.listErr = errMockDB

	_, _, err := svc.Spreadsheet(context.Background(), ReportRequest{Period: report.PeriodToday})
	if !errors.Is(err, pkgerrors.ErrAggregationFailed) {
		t.Errorf("期望 ErrAggregationFailed，实际: %v", err)
	}
}

// ── PDF 测试 ──

func TestExportService_PDF(t *testing.T) {
	svc, env := setupTestExportService()
	seedMonday(env)

	buf, filename, err := svc.PDF(context.Background(), ReportRequest{Period: report.PeriodWeek})
	if err != nil {
		t.Fatalf("PDF 应成功: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("输出应为 PDF")
	}
	if filename != "reporte_pae_todas-las-sedes_week_2024-01-08.pdf" {
		t.Errorf("文件名不符合预期: %s", filename)
	}
}
