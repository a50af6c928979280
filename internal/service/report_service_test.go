package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pae-asistencia/internal/model"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/repository"
	pkgerrors "pae-asistencia/pkg/errors"
)

// ── 测试辅助 ──

func setupTestReportService() (*reportService, *testEnv) {
	env := newTestEnv()
	svc := NewReportService(env.cfg, env.repo, env.logger).(*reportService)
	svc.now = fixedNow
	return svc, env
}

// seedMonday 周一 601 班：两人领餐、一人未领、一人已停用；602 班无记录
func seedMonday(env *testEnv) {
	env.students.add(model.Student{StudentID: "a", FullName: "Ana", EnrollmentCode: "1", Grade: "6", Group: "601", Site: "Norte"})
	env.students.add(model.Student{StudentID: "b", FullName: "Bruno", EnrollmentCode: "2", Grade: "6", Group: "601", Site: "Norte"})
	env.students.add(model.Student{StudentID: "c", FullName: "Carla", EnrollmentCode: "3", Grade: "6", Group: "601", Site: "Norte"})
	env.students.add(model.Student{StudentID: "d", FullName: "Dario", EnrollmentCode: "4", Grade: "6", Group: "601", Site: "Norte", Status: model.StudentInactive})
	env.students.add(model.Student{StudentID: "e", FullName: "Elena", EnrollmentCode: "5", Grade: "6", Group: "602", Site: "Norte"})
	env.students.add(model.Student{StudentID: "f", FullName: "Fabio", EnrollmentCode: "6", Grade: "6", Group: "2025", Site: "Norte"})

	monday := civil("2024-01-08")
	env.attendance.add(model.AttendanceEvent{StudentID: "a", Date: monday, Outcome: model.OutcomeReceived})
	env.attendance.add(model.AttendanceEvent{StudentID: "b", Date: monday, Outcome: model.OutcomeReceived})
	env.attendance.add(model.AttendanceEvent{StudentID: "c", Date: monday, Outcome: model.OutcomeNotReceived})
}

// ── Summary 测试 ──

func TestReportService_Summary_Today(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	resp, err := svc.Summary(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte"})
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if resp.Range.StartDate != "2024-01-08" || resp.Range.BusinessDays != 1 {
		t.Errorf("区间不符合预期: %+v", resp.Range)
	}
	if resp.Received != 2 || resp.NotReceived != 1 || resp.Absent != 0 {
		t.Errorf("期望 2/1/0，实际 %d/%d/%d", resp.Received, resp.NotReceived, resp.Absent)
	}
	if resp.InactiveStudents != 1 {
		t.Errorf("期望 1 名停用学生，实际 %d", resp.InactiveStudents)
	}
	// 2025 班属于预备届次，被排除：在读 4 人（a b c e）
	if resp.ActiveStudents != 4 {
		t.Errorf("期望 4 名在读学生，实际 %d", resp.ActiveStudents)
	}
	if resp.OverallPercent != 50 {
		t.Errorf("期望总体 50%%（2 / 4×1），实际 %d", resp.OverallPercent)
	}
	if resp.PendingGroups != 1 || len(resp.Pending) != 1 || resp.Pending[0].Group != "602" {
		t.Errorf("期望 602 班待登记，实际 %+v", resp.Pending)
	}
	if len(resp.ByOutcome) != 3 || resp.ByOutcome[0].Outcome != "received" {
		t.Fatalf("结果分布顺序错误: %+v", resp.ByOutcome)
	}
	if resp.Detail != nil || resp.Matrix != nil {
		t.Error("未选班级时不应返回明细")
	}
}

func TestReportService_Summary_GroupDetail(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	resp, err := svc.Summary(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte", Group: "601"})
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if len(resp.Detail) != 3 {
		t.Fatalf("期望 3 名在读学生的明细，实际 %d", len(resp.Detail))
	}
	if resp.OverallPercent != 67 {
		t.Errorf("期望 601 班 67%%，实际 %d", resp.OverallPercent)
	}
}

func TestReportService_Summary_WeekMatrix(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	resp, err := svc.Summary(context.Background(), ReportRequest{Period: report.PeriodWeek, Site: "Norte", Group: "601"})
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if resp.Matrix == nil {
		t.Fatal("多日周期选定班级时应返回矩阵")
	}
	if len(resp.Matrix.Rows) != 3 {
		t.Errorf("期望 3 行，实际 %d", len(resp.Matrix.Rows))
	}
}

func TestReportService_Summary_FetchFailure(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)
	env.attendance.listErr = errMockDB

	resp, err := svc.Summary(context.Background(), ReportRequest{Period: report.PeriodToday})
	if resp != nil {
		t.Error("读取失败时不应返回部分结果")
	}
	if !errors.Is(err, pkgerrors.ErrAggregationFailed) || !errors.Is(err, pkgerrors.ErrFetchFailed) {
		t.Errorf("期望 ErrAggregationFailed 包裹 ErrFetchFailed，实际: %v", err)
	}
}

func TestReportService_Summary_InvalidDate(t *testing.T) {
	svc, _ := setupTestReportService()

	_, err := svc.Summary(context.Background(), ReportRequest{Period: report.PeriodSpecificDate, Date: "08/01/2024"})
	if !IsInputError(err) {
		t.Errorf("期望输入错误，实际: %v", err)
	}
}

func TestReportService_Snapshot_Concurrent(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := svc.Snapshot(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte", Group: "601"})
			if err == nil && len(snap.Events) != 3 {
				err = errors.New("事件数不符")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("并发 Snapshot 失败: %v", err)
		}
	}
}

func TestReportService_Snapshot_SiteScopeIgnoresGroup(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	snap, err := svc.Snapshot(context.Background(), ReportRequest{Period: report.PeriodToday, Site: "Norte", Group: "601"})
	if err != nil {
		t.Fatalf("Snapshot 应成功: %v", err)
	}
	groups := make(map[string]bool)
	for _, st := range snap.SiteStudents {
		groups[st.Group] = true
	}
	if !groups["601"] || !groups["602"] {
		t.Errorf("校区范围应同时包含 601 与 602，实际 %v", groups)
	}
	if groups["2025"] {
		t.Error("校区范围仍应排除预备届次")
	}
	for _, st := range snap.Students {
		if st.Group != "601" {
			t.Errorf("班级范围只应包含 601，出现 %s", st.Group)
		}
	}
}

// gatedStudentRepo 在 List 中阻塞直到 gate 关闭，并记录当时 ctx 的状态
type gatedStudentRepo struct {
	repository.StudentRepository
	entered chan struct{}
	gate    chan struct{}
	done    chan struct{}
	ctxErr  error
}

func (g *gatedStudentRepo) List(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	defer close(g.done)
	close(g.entered)
	<-g.gate
	g.ctxErr = ctx.Err()
	return g.StudentRepository.List(ctx, filter)
}

func TestReportService_Fetch_DetachedFromCaller(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)
	gated := &gatedStudentRepo{
		StudentRepository: env.students,
		entered:           make(chan struct{}),
		gate:              make(chan struct{}),
		done:              make(chan struct{}),
	}
	env.repo.Student = gated

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx, ReportRequest{Period: report.PeriodToday, Site: "Norte"})
		errc <- err
	}()

	<-gated.entered
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("取消的调用方应收到 context.Canceled，实际: %v", err)
	}

	close(gated.gate)
	<-gated.done
	if gated.ctxErr != nil {
		t.Errorf("共享读取不应随调用方取消，实际 ctx 错误: %v", gated.ctxErr)
	}
}

func TestReportService_Snapshot_CanceledBeforeStart(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Snapshot(ctx, ReportRequest{Period: report.PeriodToday, Site: "Norte"})
	if !errors.Is(err, pkgerrors.ErrFetchFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("期望读取失败并携带 context.Canceled，实际: %v", err)
	}
}

// ── Filters 测试 ──

func TestReportService_Filters(t *testing.T) {
	svc, env := setupTestReportService()
	seedMonday(env)
	env.students.add(model.Student{StudentID: "g", FullName: "Gina", EnrollmentCode: "7", Grade: "10", Group: "1001", Site: "Sur"})

	resp, err := svc.Filters(context.Background(), "")
	if err != nil {
		t.Fatalf("Filters 应成功: %v", err)
	}
	if len(resp.Sites) != 2 || resp.Sites[0] != "Norte" {
		t.Errorf("校区列表不符合预期: %v", resp.Sites)
	}
	for _, g := range resp.Groups {
		if g.Group == "2025" {
			t.Error("预备届次班级不应出现在筛选项中")
		}
	}
	if len(resp.Groups) != 3 {
		t.Errorf("期望 3 个班级（601 602 1001），实际 %+v", resp.Groups)
	}
}
