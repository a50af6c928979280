package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pae-asistencia/config"
	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/report"
	"pae-asistencia/internal/repository"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/metrics"
)

// ReportRequest 一次报表调用的输入
type ReportRequest struct {
	Period report.PeriodTag
	Date   string
	Site   string
	Group  string
}

// NewReportRequest 由查询参数构造
func NewReportRequest(q *dto.ReportQuery) (ReportRequest, error) {
	tag, err := report.ParsePeriod(q.Period)
	if err != nil {
		return ReportRequest{}, err
	}
	return ReportRequest{
		Period: tag,
		Date:   q.Date,
		Site:   strings.TrimSpace(q.Site),
		Group:  strings.TrimSpace(q.Group),
	}, nil
}

func (r ReportRequest) filter() report.Filter {
	return report.Filter{Site: r.Site, Group: r.Group}
}

// Snapshot 一次报表调用取到的数据，已按筛选条件裁剪
// 切片可能被并发请求共享，只读
//
// Students/Events 按校区与班级裁剪，用于看板、明细与矩阵；
// SiteStudents/SiteEvents 只按校区裁剪，校区 / 班级汇总表不受班级筛选影响。
type Snapshot struct {
	Range        report.Range
	Filter       report.Filter
	Students     []model.Student
	Events       []model.AttendanceEvent
	SiteStudents []model.Student
	SiteEvents   []model.AttendanceEvent
}

// GroupStudents 选定班级的在读学生；未选班级时为空
func (s *Snapshot) GroupStudents() []model.Student {
	if model.IsUnfiltered(s.Filter.Group) {
		return nil
	}
	out := make([]model.Student, 0, len(s.Students))
	for _, st := range s.Students {
		if st.IsActive() {
			out = append(out, st)
		}
	}
	return out
}

// ReportService 报表汇总业务接口
//
// 设计说明：
//   - 每次调用都是独立的请求/响应值，不共享跨调用状态
//   - 名单与出勤并发读取，任一失败即整体失败，不返回部分结果
//   - 同一 (校区, 区间) 的并发调用合并为一次读取；班级筛选在内存中完成
type ReportService interface {
	Summary(ctx context.Context, req ReportRequest) (*dto.SummaryResponse, error)
	Filters(ctx context.Context, site string) (*dto.FiltersResponse, error)
	Snapshot(ctx context.Context, req ReportRequest) (*Snapshot, error)
}

type reportService struct {
	repo    *repository.Repository
	logger  *zap.Logger
	loc     *time.Location
	exclude report.CohortExcluder
	flight  singleflight.Group
	now     func() time.Time
}

// NewReportService 创建 ReportService 实例
func NewReportService(cfg *config.ReportConfig, repo *repository.Repository, logger *zap.Logger) ReportService {
	// cohort_pattern 已在配置加载时校验
	exclude, err := report.NewCohortExcluder(cfg.CohortPattern)
	if err != nil {
		logger.Warn("cohort_pattern 无效，不排除任何班级", zap.Error(err))
		exclude = nil
	}
	return &reportService{
		repo:    repo,
		logger:  logger,
		loc:     cfg.Location(),
		exclude: exclude,
		now:     time.Now,
	}
}

// fetchTimeout 共享读取的上限，与调用方的 ctx 无关
const fetchTimeout = 30 * time.Second

type fetched struct {
	students []model.Student
	events   []model.AttendanceEvent
}

// fetch 并发读取名单与区间内出勤，只按校区过滤
func (s *reportService) fetch(ctx context.Context, site string, rng report.Range) (*fetched, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrFetchFailed, err)
	}
	key := fmt.Sprintf("%s|%s|%s", site, report.FormatDay(rng.Start), report.FormatDay(rng.End))

	// 读取由多个调用方共享，不能随首个调用方取消；各调用方只在自己的 ctx 上等待
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		out := &fetched{}
		g, gctx := errgroup.WithContext(fctx)
		g.Go(func() error {
			students, err := s.repo.Student.List(gctx, model.StudentFilter{Site: site})
			if err != nil {
				return fmt.Errorf("%w: estudiantes: %v", pkgerrors.ErrFetchFailed, err)
			}
			out.students = students
			return nil
		})
		g.Go(func() error {
			events, err := s.repo.Attendance.List(gctx, model.AttendanceFilter{
				From: rng.Start,
				To:   rng.End,
				Site: site,
			})
			if err != nil {
				return fmt.Errorf("%w: asistencia: %v", pkgerrors.ErrFetchFailed, err)
			}
			out.events = events
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrFetchFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("合并并发报表读取", zap.String("key", key))
		}
		return res.Val.(*fetched), nil
	}
}

// ═══════════════════════════════════════════════════════════
// Snapshot 解析周期、读取并裁剪数据
// ═══════════════════════════════════════════════════════════

func (s *reportService) Snapshot(ctx context.Context, req ReportRequest) (*Snapshot, error) {
	rng, err := report.Resolve(req.Period, req.Date, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	data, err := s.fetch(ctx, req.Site, rng)
	if err != nil {
		s.logger.Error("读取报表数据失败",
			zap.String("site", req.Site),
			zap.String("period", string(req.Period)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrAggregationFailed, err)
	}

	f := req.filter()
	siteStudents := report.ScopeStudents(data.students, report.Filter{Site: f.Site}, s.exclude)
	siteEvents := eventsOf(siteStudents, data.events)

	snap := &Snapshot{
		Range:        rng,
		Filter:       f,
		Students:     siteStudents,
		Events:       siteEvents,
		SiteStudents: siteStudents,
		SiteEvents:   siteEvents,
	}
	if !model.IsUnfiltered(f.Group) {
		snap.Students = report.ScopeStudents(siteStudents, f, nil)
		snap.Events = eventsOf(snap.Students, siteEvents)
	}
	return snap, nil
}

// eventsOf 只保留名单内学生的记录
func eventsOf(students []model.Student, events []model.AttendanceEvent) []model.AttendanceEvent {
	members := make(map[string]bool, len(students))
	for _, st := range students {
		members[st.StudentID] = true
	}
	out := make([]model.AttendanceEvent, 0, len(events))
	for _, e := range events {
		if members[e.StudentID] {
			out = append(out, e)
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════
// Summary 看板汇总
// ═══════════════════════════════════════════════════════════

func (s *reportService) Summary(ctx context.Context, req ReportRequest) (resp *dto.SummaryResponse, err error) {
	start := time.Now()
	defer func() { metrics.ObserveReport("summary", start, err) }()

	snap, err := s.Snapshot(ctx, req)
	if err != nil {
		return nil, err
	}

	// Snapshot 已完成筛选，这里不再重复排除
	sum := report.Aggregate(snap.Range, snap.Students, snap.Events, report.Filter{}, nil)

	resp = &dto.SummaryResponse{
		Range:            toRangeResponse(snap.Range),
		Received:         sum.Received,
		NotReceived:      sum.NotReceived,
		Absent:           sum.Absent,
		InactiveStudents: sum.InactiveStudents,
		ActiveStudents:   sum.ActiveStudents,
		ActiveGroups:     sum.ActiveGroups,
		PendingGroups:    sum.PendingGroups,
		Pending:          sum.Pending,
		OverallPercent:   sum.OverallPercent,
	}
	if resp.Pending == nil {
		resp.Pending = []report.GroupKey{}
	}
	for _, o := range model.Outcomes {
		groups := sum.ByOutcome[o]
		if groups == nil {
			groups = []report.GroupAggregate{}
		}
		resp.ByOutcome = append(resp.ByOutcome, dto.OutcomeBreakdown{
			Outcome: string(o),
			Label:   o.Label(),
			Count:   sum.Count(o),
			Groups:  groups,
		})
	}

	if members := snap.GroupStudents(); members != nil {
		if snap.Range.Tag.MultiDay() {
			m := report.BuildMatrix(snap.Range, members, snap.Events)
			resp.Matrix = &m
		} else {
			resp.Detail = report.BuildDetailList(snap.Range.Start, members, snap.Events)
		}
	}

	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// Filters 可选校区与班级
// ═══════════════════════════════════════════════════════════

func (s *reportService) Filters(ctx context.Context, site string) (*dto.FiltersResponse, error) {
	sites, err := s.repo.Student.ListSites(ctx)
	if err != nil {
		s.logger.Error("查询校区列表失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	groups, err := s.repo.Student.ListGroups(ctx, site)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	report.SortLabels(sites)
	report.SortGroups(groups)

	resp := &dto.FiltersResponse{Sites: sites, Groups: make([]dto.GroupOption, 0, len(groups))}
	if resp.Sites == nil {
		resp.Sites = []string{}
	}
	for _, g := range groups {
		if s.exclude != nil && s.exclude(g.Group) {
			continue
		}
		resp.Groups = append(resp.Groups, dto.GroupOption{Site: g.Site, Grade: g.Grade, Group: g.Group})
	}
	return resp, nil
}

// ── 内部辅助 ──

func toRangeResponse(rng report.Range) dto.RangeResponse {
	return dto.RangeResponse{
		Period:       string(rng.Tag),
		StartDate:    report.FormatDay(rng.Start),
		EndDate:      report.FormatDay(rng.End),
		BusinessDays: rng.BusinessDays,
	}
}

// IsInputError 周期 / 日期参数错误
func IsInputError(err error) bool {
	return errors.Is(err, report.ErrInvalidPeriod) || errors.Is(err, report.ErrInvalidDate)
}
