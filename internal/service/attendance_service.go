package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/repository"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/metrics"
)

// ── 出勤模块业务错误 ──

var (
	ErrFutureDate        = errors.New("no se puede registrar asistencia de una fecha futura")
	ErrSiteForbidden     = errors.New("solo puede registrar asistencia de su propia sede")
	ErrStudentNotInGroup = errors.New("el estudiante no pertenece al grupo indicado")
	ErrStudentInactive   = errors.New("el estudiante está inactivo")
	ErrDuplicateEntry    = errors.New("el estudiante aparece más de una vez en la planilla")
	ErrInvalidOutcome    = errors.New("estado de asistencia no válido")
)

// AttendanceService 出勤登记业务接口
type AttendanceService interface {
	// Classroom 班级当日点名视图，未登记的学生显示「No registrado」
	Classroom(ctx context.Context, q *dto.ClassroomQuery) (*dto.ClassroomResponse, error)
	// Register 按班级整体提交某日出勤；callerSite 非空时只允许本校区
	Register(ctx context.Context, req *dto.RegisterAttendanceRequest, callerSite string) (*dto.RegisterAttendanceResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.ReportConfig, repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger, loc: cfg.Location(), now: time.Now}
}

func (s *attendanceService) today() time.Time {
	return report.DayOf(s.now().In(s.loc))
}

// ────────────────────── Classroom ──────────────────────

func (s *attendanceService) Classroom(ctx context.Context, q *dto.ClassroomQuery) (*dto.ClassroomResponse, error) {
	day := s.today()
	if q.Date != "" {
		d, err := report.ParseDay(q.Date)
		if err != nil {
			return nil, err
		}
		day = d
	}

	students, err := s.repo.Student.List(ctx, model.StudentFilter{
		Site:   q.Site,
		Group:  q.Group,
		Status: model.StudentActive,
	})
	if err != nil {
		s.logger.Error("查询班级名单失败", zap.String("site", q.Site), zap.String("group", q.Group), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	events, err := s.repo.Attendance.List(ctx, model.AttendanceFilter{
		From:  day,
		To:    day,
		Site:  q.Site,
		Group: q.Group,
	})
	if err != nil {
		s.logger.Error("查询班级出勤失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	byStudent := make(map[string]model.AttendanceEvent, len(events))
	for _, e := range events {
		byStudent[e.StudentID] = e
	}

	resp := &dto.ClassroomResponse{
		Date:    report.FormatDay(day),
		Site:    q.Site,
		Group:   q.Group,
		Entries: make([]dto.ClassroomEntry, 0, len(students)),
	}
	for _, st := range report.SortedByName(students) {
		entry := dto.ClassroomEntry{StudentID: st.StudentID, FullName: st.FullName, Label: report.NotRecordedLabel}
		if e, ok := byStudent[st.StudentID]; ok {
			entry.Outcome = string(e.Outcome)
			entry.Label = e.Outcome.Label()
			entry.IncidentCategory = e.IncidentCategory
			entry.IncidentNote = e.IncidentNote
			entry.Recorded = true
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// Register 提交班级出勤
// ═══════════════════════════════════════════════════════════
//
// 校验顺序：
//  1. 校区权限（docente 只能提交本校区）
//  2. 日期不能晚于今天
//  3. 每个条目：结果合法、不重复、学生属于该班级且在读
//
// 全部通过后一次性 upsert，重复提交覆盖当日旧记录。

func (s *attendanceService) Register(ctx context.Context, req *dto.RegisterAttendanceRequest, callerSite string) (*dto.RegisterAttendanceResponse, error) {
	if callerSite != "" && !strings.EqualFold(callerSite, req.Site) {
		return nil, ErrSiteForbidden
	}

	day, err := report.ParseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if day.After(s.today()) {
		return nil, ErrFutureDate
	}

	ids := make([]string, 0, len(req.Entries))
	seen := make(map[string]bool, len(req.Entries))
	for _, e := range req.Entries {
		if !model.Outcome(e.Outcome).Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOutcome, e.Outcome)
		}
		if seen[e.StudentID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.StudentID)
		}
		seen[e.StudentID] = true
		ids = append(ids, e.StudentID)
	}

	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	if len(students) != len(ids) {
		return nil, ErrStudentNotFound
	}
	for _, st := range students {
		if st.Site != req.Site || st.Group != req.Group {
			return nil, fmt.Errorf("%w: %s", ErrStudentNotInGroup, st.FullName)
		}
		if !st.IsActive() {
			return nil, fmt.Errorf("%w: %s", ErrStudentInactive, st.FullName)
		}
	}

	events := make([]model.AttendanceEvent, 0, len(req.Entries))
	for _, e := range req.Entries {
		events = append(events, model.AttendanceEvent{
			StudentID:        e.StudentID,
			Date:             day,
			Outcome:          model.Outcome(e.Outcome),
			IncidentCategory: strings.TrimSpace(e.IncidentCategory),
			IncidentNote:     strings.TrimSpace(e.IncidentNote),
		})
	}

	err = s.repo.Attendance.UpsertBatch(ctx, events)
	metrics.ObserveBatch("register_attendance", err)
	if err != nil {
		s.logger.Error("写入出勤失败",
			zap.String("site", req.Site),
			zap.String("group", req.Group),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("登记出勤",
		zap.String("site", req.Site),
		zap.String("group", req.Group),
		zap.String("date", req.Date),
		zap.Int("entries", len(events)),
	)
	return &dto.RegisterAttendanceResponse{Date: report.FormatDay(day), Saved: len(events)}, nil
}
