package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"pae-asistencia/internal/report"
)

// DefaultDetailLimit PDF 明细表默认只展示最近 50 条
const DefaultDetailLimit = 50

// PDFFilename 与 Excel 文件名同样的命名规则
func PDFFilename(site string, period report.PeriodTag, date string) string {
	return fmt.Sprintf("reporte_pae_%s_%s_%s.pdf", scopeSlug(site), period, date)
}

// PDFOptions PDF 选项
type PDFOptions struct {
	// DetailLimit 明细表最多展示的记录数，<= 0 时取默认值
	DetailLimit int
}

const (
	pdfMargin     = 10.0
	pdfLineHeight = 7.0
	pdfRowHeight  = 6.5
)

var detailColumns = []struct {
	title string
	width float64
	align string
}{
	{"Estudiante", 65, "L"},
	{"Grupo", 30, "C"},
	{"Estado", 35, "C"},
	{"Hora", 25, "C"},
	{"Fecha", 35, "C"},
}

// RenderPDF 生成 A4 纵向 PDF，每页页脚显示「Página i de n」
func RenderPDF(doc Document, opts PDFOptions) (*bytes.Buffer, error) {
	pdf := buildPDF(doc, opts)
	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf, nil
}

func buildPDF(doc Document, opts PDFOptions) *fpdf.Fpdf {
	limit := opts.DetailLimit
	if limit <= 0 {
		limit = DefaultDetailLimit
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("pae-asistencia", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ── 标题区 ──
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(46, 125, 50)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, pdfLineHeight, tr("Fecha de análisis: "+doc.AnalysisDate), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, tr("Generado: "+doc.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	for _, p := range doc.Filters {
		pdf.CellFormat(0, pdfLineHeight, tr(p.Label+": "+p.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── 汇总表 ──
	if len(doc.Summary) > 0 {
		sectionTitle(pdf, tr, "Resumen")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(46, 125, 50)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(110, pdfRowHeight, tr("Concepto"), "1", 0, "L", true, 0, "")
		pdf.CellFormat(50, pdfRowHeight, tr("Valor"), "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
		for _, p := range doc.Summary {
			pdf.CellFormat(110, pdfRowHeight, tr(p.Label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, pdfRowHeight, tr(p.Value), "1", 1, "C", false, 0, "")
		}
		pdf.Ln(4)
	}

	// ── 校区 / 班级汇总 ──
	for _, t := range doc.Sections {
		tableSection(pdf, tr, t)
	}

	// ── 明细表 ──
	records := doc.Records
	total := len(records)
	if total > limit {
		records = records[:limit]
	}
	sectionTitle(pdf, tr, "Detalle de registros")
	if total == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, pdfLineHeight, tr("Sin registros en el periodo seleccionado."), "", 1, "L", false, 0, "")
		return pdf
	}
	if total > limit {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, pdfLineHeight, tr(fmt.Sprintf("Se muestran los %d registros más recientes de %d.", limit, total)), "", 1, "L", false, 0, "")
	}

	detailHeader(pdf, tr)
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, r := range records {
		if pdf.GetY()+pdfRowHeight > pageH-bottom {
			pdf.AddPage()
			detailHeader(pdf, tr)
		}
		detailRow(pdf, tr, r, i%2 == 1)
	}
	return pdf
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, pdfLineHeight+1, tr(title), "", 1, "L", false, 0, "")
}

// tableSection 通用表格，各列等宽铺满版心，跨页时重复表头
func tableSection(pdf *fpdf.Fpdf, tr func(string) string, t report.Table) {
	sectionTitle(pdf, tr, t.Title)
	if len(t.Header) == 0 {
		return
	}
	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	width := (pageW - left - right) / float64(len(t.Header))

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(46, 125, 50)
		pdf.SetTextColor(255, 255, 255)
		for _, h := range t.Header {
			pdf.CellFormat(width, pdfRowHeight, fit(pdf, tr(h), width-2), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}

	header()
	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, pdfLineHeight, tr("Sin registros"), "", 1, "L", false, 0, "")
	}
	for _, row := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for i := range t.Header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(width, pdfRowHeight, fit(pdf, tr(v), width-2), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func detailHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(46, 125, 50)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range detailColumns {
		pdf.CellFormat(c.width, pdfRowHeight, tr(c.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
}

// detailRow 斑马纹行
func detailRow(pdf *fpdf.Fpdf, tr func(string) string, r report.RecentRecord, striped bool) {
	if striped {
		pdf.SetFillColor(232, 245, 233)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	values := []string{r.StudentName, r.Group, r.Outcome, r.Time, r.Date}
	for i, c := range detailColumns {
		pdf.CellFormat(c.width, pdfRowHeight, fit(pdf, tr(values[i]), c.width-2), "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
}

// fit 超出列宽时截断并补省略号
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
