package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/render"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/repository"
	pkgerrors "pae-asistencia/pkg/errors"
)

// ── 供餐时段模块业务错误 ──

var (
	ErrInvalidTimeWindow = errors.New("la hora de fin debe ser posterior a la hora de inicio")
	ErrScheduleOverflow  = errors.New("la franja horaria no alcanza para todos los grupos")
	ErrNoGroups          = errors.New("la sede no tiene grupos con estudiantes activos")
)

const clockLayout = "15:04"

// ScheduleService 每日供餐时段业务接口
type ScheduleService interface {
	Get(ctx context.Context, date string) (*dto.ScheduleResponse, error)
	// Replace 整日替换，空列表表示清空
	Replace(ctx context.Context, date string, req *dto.ReplaceScheduleRequest) (*dto.ScheduleResponse, error)
	// Generate 按时间窗与容量自动排出时段；Save=true 时写入并覆盖当日
	Generate(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error)
	// ExportCalendar 导出当日 .ics
	ExportCalendar(ctx context.Context, date string) (string, string, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.ReportConfig, repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger, loc: cfg.Location(), now: time.Now}
}

// ────────────────────── Get / Replace ──────────────────────

func (s *scheduleService) Get(ctx context.Context, date string) (*dto.ScheduleResponse, error) {
	day, err := report.ParseDay(date)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Schedule.ListByDate(ctx, day)
	if err != nil {
		s.logger.Error("查询供餐时段失败", zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	return toScheduleResponse(day, items), nil
}

func (s *scheduleService) Replace(ctx context.Context, date string, req *dto.ReplaceScheduleRequest) (*dto.ScheduleResponse, error) {
	day, err := report.ParseDay(date)
	if err != nil {
		return nil, err
	}

	items := make([]model.ScheduleItem, 0, len(req.Items))
	for i, it := range req.Items {
		if _, _, err := parseWindow(it.StartTime, it.EndTime); err != nil {
			return nil, fmt.Errorf("%w (fila %d)", err, i+1)
		}
		items = append(items, model.ScheduleItem{
			Date:       day,
			Position:   i,
			StartTime:  it.StartTime,
			EndTime:    it.EndTime,
			GroupLabel: it.GroupLabel,
			Note:       it.Note,
		})
	}

	if err := s.repo.Schedule.ReplaceForDate(ctx, day, items); err != nil {
		s.logger.Error("替换供餐时段失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	s.logger.Info("替换供餐时段", zap.String("date", date), zap.Int("items", len(items)))
	return toScheduleResponse(day, items), nil
}

// ═══════════════════════════════════════════════════════════
// Generate 自动排时段
// ═══════════════════════════════════════════════════════════
//
// 步骤：
//  1. 将 [start, end) 按 slot_minutes 切分为时段
//  2. 读取校区在读学生，统计各班人数
//  3. 相邻且同年级的两个班合计人数不超过容量时合并为一个时段
//  4. 时段不足时返回 ErrScheduleOverflow

func (s *scheduleService) Generate(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error) {
	day, err := report.ParseDay(req.Date)
	if err != nil {
		return nil, err
	}
	slots, err := TimeSlots(req.StartTime, req.EndTime, req.SlotMinutes)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.Student.List(ctx, model.StudentFilter{Site: req.Site, Status: model.StudentActive})
	if err != nil {
		s.logger.Error("查询校区名单失败", zap.String("site", req.Site), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	sizes := groupSizes(students)
	if len(sizes) == 0 {
		return nil, ErrNoGroups
	}

	labels := PairGroups(sizes, req.Capacity)
	if len(labels) > len(slots) {
		return nil, fmt.Errorf("%w: %d grupos, %d franjas", ErrScheduleOverflow, len(labels), len(slots))
	}

	items := make([]model.ScheduleItem, 0, len(labels))
	for i, label := range labels {
		items = append(items, model.ScheduleItem{
			Date:       day,
			Position:   i,
			StartTime:  slots[i].Start,
			EndTime:    slots[i].End,
			GroupLabel: label,
			Note:       req.Site,
		})
	}

	if req.Save {
		if err := s.repo.Schedule.ReplaceForDate(ctx, day, items); err != nil {
			s.logger.Error("保存生成的供餐时段失败", zap.String("date", req.Date), zap.Error(err))
			return nil, err
		}
		s.logger.Info("生成并保存供餐时段",
			zap.String("date", req.Date),
			zap.String("site", req.Site),
			zap.Int("items", len(items)),
		)
	}
	return toScheduleResponse(day, items), nil
}

// ────────────────────── ExportCalendar ──────────────────────

func (s *scheduleService) ExportCalendar(ctx context.Context, date string) (string, string, error) {
	day, err := report.ParseDay(date)
	if err != nil {
		return "", "", err
	}
	items, err := s.repo.Schedule.ListByDate(ctx, day)
	if err != nil {
		s.logger.Error("查询供餐时段失败", zap.String("date", date), zap.Error(err))
		return "", "", fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	content, err := render.RenderScheduleCalendar(day, items, s.loc, s.now())
	if err != nil {
		s.logger.Error("生成 iCalendar 失败", zap.Error(err))
		return "", "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return content, render.CalendarFilename(day), nil
}

// ── 纯函数：时段切分与班级合并 ──

// Slot 一个供餐时段
type Slot struct {
	Start string
	End   string
}

// TimeSlots 将 [start, end) 切分为等长时段，不足一个时段的尾部丢弃
func TimeSlots(start, end string, minutes int) ([]Slot, error) {
	from, to, err := parseWindow(start, end)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: duración de franja no válida", ErrInvalidTimeWindow)
	}

	step := time.Duration(minutes) * time.Minute
	var slots []Slot
	for t := from; !t.Add(step).After(to); t = t.Add(step) {
		slots = append(slots, Slot{Start: t.Format(clockLayout), End: t.Add(step).Format(clockLayout)})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: la franja es más corta que %d minutos", ErrScheduleOverflow, minutes)
	}
	return slots, nil
}

// GroupSize 班级人数
type GroupSize struct {
	Grade string
	Group string
	Size  int
}

// PairGroups 按班级名排序后，相邻且同年级、合计人数不超过容量的两个班合并为 "A + B"
//
// 单个班超过容量时仍独占一个时段。
func PairGroups(groups []GroupSize, capacity int) []string {
	labels := make([]string, 0, len(groups))
	byLabel := make(map[string]GroupSize, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Group)
		byLabel[g.Group] = g
	}
	report.SortLabels(labels)

	out := make([]string, 0, len(labels))
	for i := 0; i < len(labels); i++ {
		cur := byLabel[labels[i]]
		if i+1 < len(labels) {
			next := byLabel[labels[i+1]]
			if next.Grade == cur.Grade && cur.Size+next.Size <= capacity {
				out = append(out, cur.Group+" + "+next.Group)
				i++
				continue
			}
		}
		out = append(out, cur.Group)
	}
	return out
}

func groupSizes(students []model.Student) []GroupSize {
	idx := make(map[string]int)
	var sizes []GroupSize
	for _, st := range students {
		i, ok := idx[st.Group]
		if !ok {
			i = len(sizes)
			idx[st.Group] = i
			sizes = append(sizes, GroupSize{Grade: st.Grade, Group: st.Group})
		}
		sizes[i].Size++
	}
	return sizes
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(clockLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: hora de inicio %q", ErrInvalidTimeWindow, start)
	}
	to, err := time.Parse(clockLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: hora de fin %q", ErrInvalidTimeWindow, end)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrInvalidTimeWindow
	}
	return from, to, nil
}

func toScheduleResponse(day time.Time, items []model.ScheduleItem) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		Date:  report.FormatDay(day),
		Items: make([]dto.ScheduleItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.ScheduleItemResponse{
			ID:         it.ScheduleItemID,
			Position:   it.Position,
			StartTime:  it.StartTime,
			EndTime:    it.EndTime,
			GroupLabel: it.GroupLabel,
			Note:       it.Note,
		})
	}
	return resp
}
