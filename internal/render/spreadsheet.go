package render

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"pae-asistencia/internal/report"
)

const (
	defaultSheetName   = "Reporte"
	defaultMaxColWidth = 50
	minColWidth        = 8
)

// Excel 工作表名禁用字符
var sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// SpreadsheetOptions 工作簿选项
type SpreadsheetOptions struct {
	SheetName      string
	MaxColumnWidth int
}

// SpreadsheetFilename 文件名包含校区、周期与日期
func SpreadsheetFilename(site string, period report.PeriodTag, date string) string {
	return fmt.Sprintf("reporte_pae_%s_%s_%s.xlsx", scopeSlug(site), period, date)
}

// sheetWriter 逐行写入单个工作表，同时记录每列最长文本
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	widths map[int]int
	err    error
}

func (w *sheetWriter) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, w.row)
	return name
}

func (w *sheetWriter) writeRow(values []string, style int) {
	w.write(values, style, true)
}

// writeTitle 标题类单元格不参与列宽计算
func (w *sheetWriter) writeTitle(title string, style int) {
	w.write([]string{title}, style, false)
}

func (w *sheetWriter) write(values []string, style int, measure bool) {
	if w.err != nil {
		return
	}
	for i, v := range values {
		col := i + 1
		ref := w.cell(col)
		if err := w.f.SetCellValue(w.sheet, ref, v); err != nil {
			w.err = err
			return
		}
		if style != 0 {
			if err := w.f.SetCellStyle(w.sheet, ref, ref, style); err != nil {
				w.err = err
				return
			}
		}
		if n := utf8.RuneCountInString(v); measure && n > w.widths[col] {
			w.widths[col] = n
		}
	}
	w.row++
}

func (w *sheetWriter) blank() { w.row++ }

// ═══════════════════════════════════════════════════════════
// RenderSpreadsheet 生成 .xlsx
// ═══════════════════════════════════════════════════════════
//
// 布局（单个工作表）：
//   - 第 1 行：标题
//   - 元数据：分析日期、生成时间、筛选条件
//   - 图例
//   - 各分区：空行 + 分区标题行 + 表头 + 数据行
//
// 列宽取该列最长文本，上限为 MaxColumnWidth。

func RenderSpreadsheet(doc Document, opts SpreadsheetOptions) (*bytes.Buffer, error) {
	sheet := sheetNameReplacer.Replace(strings.TrimSpace(opts.SheetName))
	if sheet == "" {
		sheet = defaultSheetName
	}
	if utf8.RuneCountInString(sheet) > 31 {
		sheet = string([]rune(sheet)[:31])
	}
	maxWidth := opts.MaxColumnWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxColWidth
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	// 样式
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	sectionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	labelStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2E7D32"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	w := &sheetWriter{f: f, sheet: sheet, row: 1, widths: make(map[int]int)}

	// ── 表头区 ──
	w.writeTitle(doc.Title, titleStyle)

	meta := []Pair{
		{Label: "Fecha de análisis", Value: doc.AnalysisDate},
		{Label: "Generado", Value: doc.GeneratedAt.Format("2006-01-02 15:04")},
	}
	for _, p := range append(meta, doc.Filters...) {
		w.writeRow([]string{p.Label, p.Value}, 0)
		_ = f.SetCellStyle(sheet, cellName(1, w.row-1), cellName(1, w.row-1), labelStyle)
	}

	if len(doc.Legend) > 0 {
		w.blank()
		w.writeTitle("Leyenda", sectionStyle)
		for _, l := range doc.Legend {
			w.writeTitle(l, 0)
		}
	}

	// ── 分区 ──
	for _, t := range doc.Sections {
		writeSection(w, t, sectionStyle, headerStyle)
	}

	if w.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, w.err)
	}

	for col, n := range w.widths {
		width := n + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxWidth {
			width = maxWidth
		}
		name, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf, nil
}

func writeSection(w *sheetWriter, t report.Table, sectionStyle, headerStyle int) {
	w.blank()
	w.writeTitle(t.Title, sectionStyle)
	w.writeRow(t.Header, headerStyle)
	for _, r := range t.Rows {
		w.writeRow(r, 0)
	}
	if len(t.Rows) == 0 {
		w.writeTitle("Sin registros", 0)
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
