//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkgerrors "pae-asistencia/pkg/errors"

	"pae-asistencia/internal/model"
	"pae-asistencia/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=pae password=pae_password dbname=pae_asistencia_test sslmode=disable TimeZone=America/Bogota"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 自动迁移测试表结构
	err = testDB.AutoMigrate(
		&model.Student{},
		&model.AttendanceEvent{},
		&model.ScheduleItem{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupStudents 创建同一班级的学生并返回清理函数
func setupStudents(t *testing.T, site, group string, n int) ([]model.Student, func()) {
	t.Helper()
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	students := make([]model.Student, n)
	for i := range students {
		students[i] = model.Student{
			FullName:       fmt.Sprintf("Estudiante %d", i),
			EnrollmentCode: fmt.Sprintf("T%d-%d", stamp, i),
			Grade:          "6",
			Group:          group,
			Site:           site,
			Status:         model.StudentActive,
		}
	}
	if err := testDB.WithContext(ctx).Create(&students).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	cleanup := func() {
		ids := make([]string, len(students))
		for i, st := range students {
			ids[i] = st.StudentID
		}
		testDB.Where("student_id IN ?", ids).Delete(&model.AttendanceEvent{})
		testDB.Where("student_id IN ?", ids).Delete(&model.Student{})
	}
	return students, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Student upsert
// ═══════════════════════════════════════════════════════════

func TestStudentRepo_UpsertBatch_OverwritesByEnrollmentCode(t *testing.T) {
	students, cleanup := setupStudents(t, "Sede Test", "601", 2)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	update := []model.Student{{
		FullName:       "Nombre Nuevo",
		EnrollmentCode: students[0].EnrollmentCode,
		Grade:          "7",
		Group:          "701",
		Site:           "Sede Test",
		Status:         model.StudentInactive,
	}}
	if err := repo.Student.UpsertBatch(ctx, update); err != nil {
		t.Fatalf("UpsertBatch 失败: %v", err)
	}

	found, err := repo.Student.GetByIDs(ctx, []string{students[0].StudentID})
	if err != nil || len(found) != 1 {
		t.Fatalf("查询失败: %v", err)
	}
	if found[0].FullName != "Nombre Nuevo" || found[0].Group != "701" || found[0].Status != model.StudentInactive {
		t.Errorf("upsert 未覆盖: %+v", found[0])
	}
}

func TestStudentRepo_Create_DuplicateCode(t *testing.T) {
	students, cleanup := setupStudents(t, "Sede Test", "601", 1)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	dup := &model.Student{
		FullName:       "Duplicado",
		EnrollmentCode: students[0].EnrollmentCode,
		Group:          "601",
		Site:           "Sede Test",
		Status:         model.StudentActive,
	}
	err := repo.Student.Create(context.Background(), dup)
	if !pkgerrors.IsUniqueViolation(err) {
		t.Errorf("期望唯一约束冲突，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Attendance upsert & filter
// ═══════════════════════════════════════════════════════════

func TestAttendanceRepo_UpsertAndFilter(t *testing.T) {
	students, cleanup := setupStudents(t, "Sede Filtro", "602", 2)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	first := []model.AttendanceEvent{
		{StudentID: students[0].StudentID, Date: day, Outcome: model.OutcomeReceived},
		{StudentID: students[1].StudentID, Date: day, Outcome: model.OutcomeAbsent},
	}
	if err := repo.Attendance.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("UpsertBatch 失败: %v", err)
	}

	// 重复提交覆盖
	again := []model.AttendanceEvent{
		{StudentID: students[1].StudentID, Date: day, Outcome: model.OutcomeNotReceived, IncidentNote: "corrección"},
	}
	if err := repo.Attendance.UpsertBatch(ctx, again); err != nil {
		t.Fatalf("重复 UpsertBatch 失败: %v", err)
	}

	events, err := repo.Attendance.List(ctx, model.AttendanceFilter{
		From:  day,
		To:    day,
		Site:  "Sede Filtro",
		Group: "602",
	})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d", len(events))
	}
	for _, e := range events {
		if e.StudentID == students[1].StudentID && e.Outcome != model.OutcomeNotReceived {
			t.Errorf("重复提交应覆盖旧记录，实际 %s", e.Outcome)
		}
		if e.Date.Format("2006-01-02") != "2024-01-08" {
			t.Errorf("日期读取错误: %s", e.Date)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Schedule replace
// ═══════════════════════════════════════════════════════════

func TestScheduleRepo_ReplaceForDate(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	defer testDB.Where("service_date = ?", "2030-03-04").Delete(&model.ScheduleItem{})

	items := []model.ScheduleItem{
		{Date: day, Position: 0, StartTime: "11:30", EndTime: "11:50", GroupLabel: "601 + 602"},
		{Date: day, Position: 1, StartTime: "11:50", EndTime: "12:10", GroupLabel: "701"},
	}
	if err := repo.Schedule.ReplaceForDate(ctx, day, items); err != nil {
		t.Fatalf("ReplaceForDate 失败: %v", err)
	}
	if err := repo.Schedule.ReplaceForDate(ctx, day, items[:1]); err != nil {
		t.Fatalf("第二次 ReplaceForDate 失败: %v", err)
	}

	found, err := repo.Schedule.ListByDate(ctx, day)
	if err != nil {
		t.Fatalf("ListByDate 失败: %v", err)
	}
	if len(found) != 1 || found[0].GroupLabel != "601 + 602" {
		t.Errorf("整日替换失败: %+v", found)
	}
}
