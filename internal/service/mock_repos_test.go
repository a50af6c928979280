package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/repository"
)

var errMockDB = errors.New("mock: conexión perdida")

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
	// failUpsert 第 n 次 UpsertBatch 调用（从 1 开始）返回错误
	failUpsert map[int]bool
	upserts    int
	listErr    error
	seq        int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student), failUpsert: make(map[int]bool)}
}

func (m *mockStudentRepo) add(st model.Student) {
	if st.StudentID == "" {
		m.seq++
		st.StudentID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	}
	if st.Status == "" {
		st.Status = model.StudentActive
	}
	m.students[st.StudentID] = &st
}

func (m *mockStudentRepo) matches(st *model.Student, filter model.StudentFilter) bool {
	if !model.MatchesFilter(st.Site, filter.Site) || !model.MatchesFilter(st.Group, filter.Group) {
		return false
	}
	if filter.Status != "" && st.Status != filter.Status {
		return false
	}
	return true
}

func (m *mockStudentRepo) sorted() []model.Student {
	out := make([]model.Student, 0, len(m.students))
	for _, st := range m.students {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	for _, st := range m.students {
		if st.EnrollmentCode == student.EnrollmentCode {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_students_enrollment_code"}
		}
	}
	m.seq++
	student.StudentID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	m.add(*student)
	return nil
}

func (m *mockStudentRepo) List(_ context.Context, filter model.StudentFilter) ([]model.Student, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Student
	for _, st := range m.sorted() {
		if m.matches(&st, filter) {
			result = append(result, st)
		}
	}
	return result, nil
}

func (m *mockStudentRepo) Page(ctx context.Context, filter model.StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	all, err := m.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Student{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockStudentRepo) GetByIDs(_ context.Context, ids []string) ([]model.Student, error) {
	var result []model.Student
	for _, id := range ids {
		if st, ok := m.students[id]; ok {
			result = append(result, *st)
		}
	}
	return result, nil
}

func (m *mockStudentRepo) UpsertBatch(_ context.Context, students []model.Student) error {
	m.upserts++
	if m.failUpsert[m.upserts] {
		return errMockDB
	}
	for _, in := range students {
		found := false
		for _, st := range m.students {
			if st.EnrollmentCode == in.EnrollmentCode {
				st.FullName, st.Grade, st.Group, st.Site, st.Status = in.FullName, in.Grade, in.Group, in.Site, in.Status
				found = true
				break
			}
		}
		if !found {
			m.add(in)
		}
	}
	return nil
}

func (m *mockStudentRepo) UpdateStatus(_ context.Context, ids []string, status model.StudentStatus) (int64, error) {
	var n int64
	for _, id := range ids {
		if st, ok := m.students[id]; ok {
			st.Status = status
			n++
		}
	}
	return n, nil
}

func (m *mockStudentRepo) MoveGroup(_ context.Context, ids []string, grade, group string) (int64, error) {
	var n int64
	for _, id := range ids {
		if st, ok := m.students[id]; ok {
			st.Group = group
			if grade != "" {
				st.Grade = grade
			}
			n++
		}
	}
	return n, nil
}

func (m *mockStudentRepo) RenameGroup(_ context.Context, site, from, to string) (int64, error) {
	var n int64
	for _, st := range m.students {
		if st.Site == site && st.Group == from {
			st.Group = to
			n++
		}
	}
	return n, nil
}

func (m *mockStudentRepo) ListSites(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var sites []string
	for _, st := range m.sorted() {
		if !seen[st.Site] {
			seen[st.Site] = true
			sites = append(sites, st.Site)
		}
	}
	return sites, nil
}

func (m *mockStudentRepo) ListGroups(_ context.Context, site string) ([]model.GroupRef, error) {
	seen := map[model.GroupRef]bool{}
	var groups []model.GroupRef
	for _, st := range m.sorted() {
		if !st.IsActive() || !model.MatchesFilter(st.Site, site) {
			continue
		}
		ref := model.GroupRef{Site: st.Site, Grade: st.Grade, Group: st.Group}
		if !seen[ref] {
			seen[ref] = true
			groups = append(groups, ref)
		}
	}
	return groups, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	students *mockStudentRepo
	// key: student_id|date
	events  map[string]model.AttendanceEvent
	listErr error
	lists   int
}

func newMockAttendanceRepo(students *mockStudentRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{students: students, events: make(map[string]model.AttendanceEvent)}
}

func (m *mockAttendanceRepo) add(e model.AttendanceEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.Date.Add(12 * time.Hour)
	}
	m.events[e.StudentID+"|"+report.FormatDay(e.Date)] = e
}

func (m *mockAttendanceRepo) List(_ context.Context, filter model.AttendanceFilter) ([]model.AttendanceEvent, error) {
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.AttendanceEvent
	for _, e := range m.events {
		if e.Date.Before(filter.From) || e.Date.After(filter.To) {
			continue
		}
		st, ok := m.students.students[e.StudentID]
		if !ok || !model.MatchesFilter(st.Site, filter.Site) || !model.MatchesFilter(st.Group, filter.Group) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result, nil
}

func (m *mockAttendanceRepo) UpsertBatch(_ context.Context, events []model.AttendanceEvent) error {
	for _, e := range events {
		m.add(e)
	}
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	items map[string][]model.ScheduleItem
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{items: make(map[string][]model.ScheduleItem)}
}

func (m *mockScheduleRepo) ListByDate(_ context.Context, date time.Time) ([]model.ScheduleItem, error) {
	return m.items[report.FormatDay(date)], nil
}

func (m *mockScheduleRepo) ReplaceForDate(_ context.Context, date time.Time, items []model.ScheduleItem) error {
	m.items[report.FormatDay(date)] = append([]model.ScheduleItem(nil), items...)
	return nil
}

// ── 测试辅助 ──

type testEnv struct {
	repo       *repository.Repository
	students   *mockStudentRepo
	attendance *mockAttendanceRepo
	schedule   *mockScheduleRepo
	cfg        *config.ReportConfig
	logger     *zap.Logger
}

func newTestEnv() *testEnv {
	students := newMockStudentRepo()
	attendance := newMockAttendanceRepo(students)
	schedule := newMockScheduleRepo()
	return &testEnv{
		repo: &repository.Repository{
			Student:    students,
			Attendance: attendance,
			Schedule:   schedule,
		},
		students:   students,
		attendance: attendance,
		schedule:   schedule,
		cfg: &config.ReportConfig{
			Timezone:        "America/Bogota",
			PDFDetailLimit:  50,
			ImportBatchSize: 100,
			MaxColumnWidth:  50,
			CohortPattern:   `(19|20)\d{2}`,
		},
		logger: zap.NewNop(),
	}
}

// fixedNow 2024-01-08（周一）上午，波哥大时间
func fixedNow() time.Time {
	loc, _ := time.LoadLocation("America/Bogota")
	return time.Date(2024, 1, 8, 10, 0, 0, 0, loc)
}

func civil(s string) time.Time {
	d, err := report.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}
