package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"pae-asistencia/internal/model"
)

const (
	// NotRecordedLabel 当日无记录的学生
	NotRecordedLabel = "No registrado"
	// NoDataGlyph 矩阵中无数据的单元格
	NoDataGlyph = "-"
)

// Table 渲染器共用的行列结构，第一列总是名称类字段
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Band 出勤等级
func Band(percent int) string {
	switch {
	case percent >= 90:
		return "Excelente"
	case percent >= 70:
		return "Bueno"
	case percent >= 50:
		return "Regular"
	default:
		return "Crítico"
	}
}

// Legend 导出文件中的图例
func Legend() []string {
	return []string{
		fmt.Sprintf("%s = %s", model.OutcomeReceived.Glyph(), model.OutcomeReceived.Label()),
		fmt.Sprintf("%s = %s", model.OutcomeNotReceived.Glyph(), model.OutcomeNotReceived.Label()),
		fmt.Sprintf("%s = %s", model.OutcomeAbsent.Glyph(), model.OutcomeAbsent.Label()),
		fmt.Sprintf("%s = Sin datos", NoDataGlyph),
		"Desempeño: Excelente ≥90%, Bueno ≥70%, Regular ≥50%, Crítico <50%",
	}
}

// eventsByStudentDay studentID → 日期 → 记录
func eventsByStudentDay(events []model.AttendanceEvent) map[string]map[string]model.AttendanceEvent {
	idx := make(map[string]map[string]model.AttendanceEvent)
	for _, e := range events {
		days, ok := idx[e.StudentID]
		if !ok {
			days = make(map[string]model.AttendanceEvent)
			idx[e.StudentID] = days
		}
		days[FormatDay(e.Date)] = e
	}
	return idx
}

// ── 单日明细 ──

// DetailRow 单日单个学生的状态
type DetailRow struct {
	StudentName      string `json:"student_name"`
	Outcome          string `json:"outcome"`
	IncidentCategory string `json:"incident_category"`
	IncidentNote     string `json:"incident_note"`
	Recorded         bool   `json:"recorded"`
}

// BuildDetailList 单日明细：每个学生一行，无记录标记为 No registrado，按姓名升序
func BuildDetailList(day time.Time, students []model.Student, events []model.AttendanceEvent) []DetailRow {
	idx := eventsByStudentDay(events)
	key := FormatDay(day)

	rows := make([]DetailRow, 0, len(students))
	for _, st := range SortedByName(students) {
		row := DetailRow{StudentName: st.FullName, Outcome: NotRecordedLabel}
		if e, ok := idx[st.StudentID][key]; ok {
			row.Outcome = e.Outcome.Label()
			row.IncidentCategory = e.IncidentCategory
			row.IncidentNote = e.IncidentNote
			row.Recorded = true
		}
		rows = append(rows, row)
	}
	return rows
}

// DetailTable 单日明细表
func DetailTable(title string, rows []DetailRow) Table {
	t := Table{
		Title:  title,
		Header: []string{"Estudiante", "Estado", "Categoría de novedad", "Descripción de novedad"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.StudentName, r.Outcome, r.IncidentCategory, r.IncidentNote})
	}
	return t
}

// ── 多日矩阵 ──

// MatrixRow 矩阵中的一个学生
type MatrixRow struct {
	StudentName string   `json:"student_name"`
	Cells       []string `json:"cells"`
	Received    int      `json:"received"`
	Percent     int      `json:"percent"`
	Band        string   `json:"band"`
}

// Matrix 学生 × 工作日矩阵
// 不记录入学日期，期中入学的学生在入学前的日期同样显示无数据
type Matrix struct {
	Days         []time.Time `json:"days"`
	RecordedDays int         `json:"recorded_days"`
	Rows         []MatrixRow `json:"rows"`
}

// BuildMatrix 日期轴为区间内工作日；百分比分母为该班至少有一条记录的天数
func BuildMatrix(rng Range, students []model.Student, events []model.AttendanceEvent) Matrix {
	days := rng.Days()
	idx := eventsByStudentDay(events)

	members := make(map[string]bool, len(students))
	for _, st := range students {
		members[st.StudentID] = true
	}
	recorded := make(map[string]bool)
	for _, e := range events {
		if members[e.StudentID] && rng.Contains(e.Date) && !IsWeekend(DayOf(e.Date)) {
			recorded[FormatDay(e.Date)] = true
		}
	}

	m := Matrix{Days: days, RecordedDays: len(recorded)}
	for _, st := range SortedByName(students) {
		row := MatrixRow{StudentName: st.FullName, Cells: make([]string, len(days))}
		for i, d := range days {
			e, ok := idx[st.StudentID][FormatDay(d)]
			if !ok {
				row.Cells[i] = NoDataGlyph
				continue
			}
			row.Cells[i] = e.Outcome.Glyph()
			if e.Outcome == model.OutcomeReceived {
				row.Received++
			}
		}
		row.Percent = Percent(row.Received, m.RecordedDays)
		row.Band = Band(row.Percent)
		m.Rows = append(m.Rows, row)
	}
	return m
}

var weekdayShort = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// DayHeader 矩阵列标题，如 "Lun 08/01"
func DayHeader(d time.Time) string {
	return fmt.Sprintf("%s %s", weekdayShort[d.Weekday()], d.Format("02/01"))
}

// Table 矩阵转表格，列顺序与日期轴严格一致
func (m Matrix) Table(title string) Table {
	header := make([]string, 0, len(m.Days)+4)
	header = append(header, "Estudiante")
	for _, d := range m.Days {
		header = append(header, DayHeader(d))
	}
	header = append(header, "Total recibidas", "% Asistencia", "Desempeño")

	t := Table{Title: title, Header: header}
	for _, r := range m.Rows {
		row := make([]string, 0, len(header))
		row = append(row, r.StudentName)
		row = append(row, r.Cells...)
		row = append(row, strconv.Itoa(r.Received), fmt.Sprintf("%d%%", r.Percent), r.Band)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ── 校区 / 班级汇总 ──

// ConsolidatedRow 校区或班级汇总行
type ConsolidatedRow struct {
	Site           string `json:"site"`
	Group          string `json:"group,omitempty"`
	ActiveStudents int    `json:"active_students"`
	Received       int    `json:"received"`
	NotReceived    int    `json:"not_received"`
	Absent         int    `json:"absent"`
	RecordedDays   int    `json:"recorded_days"`
	Percent        int    `json:"percent"`
}

type consolidatedAcc struct {
	row  ConsolidatedRow
	days map[string]bool
	// receivedActive 在读学生的领餐数，百分比分子
	receivedActive int
}

// consolidate 按 keyOf 分桶累计；百分比分母 = 在读人数 × 该范围内有记录的天数
// 分子只计在读学生，已停用学生的记录只计入各结果列
func consolidate(rng Range, students []model.Student, events []model.AttendanceEvent, keyOf func(model.Student) GroupKey) []ConsolidatedRow {
	accs := make(map[GroupKey]*consolidatedAcc)
	owner := make(map[string]GroupKey, len(students))
	active := make(map[string]bool, len(students))
	get := func(k GroupKey) *consolidatedAcc {
		a, ok := accs[k]
		if !ok {
			a = &consolidatedAcc{row: ConsolidatedRow{Site: k.Site, Group: k.Group}, days: make(map[string]bool)}
			accs[k] = a
		}
		return a
	}

	for _, st := range students {
		k := keyOf(st)
		owner[st.StudentID] = k
		a := get(k)
		if st.IsActive() {
			a.row.ActiveStudents++
			active[st.StudentID] = true
		}
	}

	for _, e := range events {
		k, ok := owner[e.StudentID]
		if !ok || !rng.Contains(e.Date) {
			continue
		}
		a := get(k)
		switch e.Outcome {
		case model.OutcomeReceived:
			a.row.Received++
			if active[e.StudentID] {
				a.receivedActive++
			}
		case model.OutcomeNotReceived:
			a.row.NotReceived++
		case model.OutcomeAbsent:
			a.row.Absent++
		default:
			continue
		}
		a.days[FormatDay(e.Date)] = true
	}

	keys := make([]GroupKey, 0, len(accs))
	for k := range accs {
		keys = append(keys, k)
	}
	sortGroupKeys(keys)

	rows := make([]ConsolidatedRow, 0, len(keys))
	for _, k := range keys {
		a := accs[k]
		a.row.RecordedDays = len(a.days)
		a.row.Percent = Percent(a.receivedActive, a.row.ActiveStudents*a.row.RecordedDays)
		rows = append(rows, a.row)
	}
	return rows
}

// BuildSiteSummary 每个校区一行
func BuildSiteSummary(rng Range, students []model.Student, events []model.AttendanceEvent) []ConsolidatedRow {
	return consolidate(rng, students, events, func(st model.Student) GroupKey {
		return GroupKey{Site: st.Site}
	})
}

// BuildGroupSummary 每个 (校区, 班级) 一行
func BuildGroupSummary(rng Range, students []model.Student, events []model.AttendanceEvent) []ConsolidatedRow {
	return consolidate(rng, students, events, func(st model.Student) GroupKey {
		return GroupKey{Site: st.Site, Group: st.Group}
	})
}

func consolidatedCells(r ConsolidatedRow) []string {
	return []string{
		strconv.Itoa(r.ActiveStudents),
		strconv.Itoa(r.Received),
		strconv.Itoa(r.NotReceived),
		strconv.Itoa(r.Absent),
		strconv.Itoa(r.RecordedDays),
		fmt.Sprintf("%d%%", r.Percent),
	}
}

var consolidatedHeader = []string{"Estudiantes activos", "Recibió", "No recibió", "Ausente", "Días con registro", "% Asistencia"}

// SiteSummaryTable 校区汇总表
func SiteSummaryTable(rows []ConsolidatedRow) Table {
	t := Table{Title: "Resumen por sede", Header: append([]string{"Sede"}, consolidatedHeader...)}
	for _, r := range rows {
		t.Rows = append(t.Rows, append([]string{r.Site}, consolidatedCells(r)...))
	}
	return t
}

// GroupSummaryTable 班级汇总表
func GroupSummaryTable(rows []ConsolidatedRow) Table {
	t := Table{Title: "Resumen por grupo", Header: append([]string{"Grupo", "Sede"}, consolidatedHeader...)}
	for _, r := range rows {
		t.Rows = append(t.Rows, append([]string{r.Group, r.Site}, consolidatedCells(r)...))
	}
	return t
}

// ── 最近记录（PDF 明细） ──

// RecentRecord PDF 明细表中的一条记录
type RecentRecord struct {
	StudentName string
	Group       string
	Outcome     string
	Time        string
	Date        string
	createdAt   time.Time
}

// BuildRecentRecords 区间内全部记录按录入时间倒序；截断交给渲染器
func BuildRecentRecords(rng Range, students []model.Student, events []model.AttendanceEvent, loc *time.Location) []RecentRecord {
	if loc == nil {
		loc = time.UTC
	}
	index := make(map[string]model.Student, len(students))
	for _, st := range students {
		index[st.StudentID] = st
	}

	var out []RecentRecord
	for _, e := range events {
		st, ok := index[e.StudentID]
		if !ok || !rng.Contains(e.Date) {
			continue
		}
		out = append(out, RecentRecord{
			StudentName: st.FullName,
			Group:       st.Group,
			Outcome:     e.Outcome.Label(),
			Time:        e.CreatedAt.In(loc).Format("15:04"),
			Date:        FormatDay(e.Date),
			createdAt:   e.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].createdAt.After(out[j].createdAt)
	})
	return out
}

// RecentRecordsTable 最近记录表
func RecentRecordsTable(records []RecentRecord) Table {
	t := Table{
		Title:  "Detalle de registros",
		Header: []string{"Estudiante", "Grupo", "Estado", "Hora", "Fecha"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.StudentName, r.Group, r.Outcome, r.Time, r.Date})
	}
	return t
}
