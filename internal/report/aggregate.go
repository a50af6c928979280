package report

import (
	"fmt"
	"math"
	"regexp"

	"pae-asistencia/internal/model"
)

// Filter 校区 / 班级筛选，空串或 model.FilterAll 表示不限
type Filter struct {
	Site  string
	Group string
}

// GroupKey 班级唯一标识：不同校区可能存在同名班级
type GroupKey struct {
	Site  string `json:"site"`
	Group string `json:"group"`
}

// CohortExcluder 判断班级是否属于预备/停用届次（命名中含四位年份）
type CohortExcluder func(group string) bool

// NewCohortExcluder 由正则构造；空正则表示不排除任何班级
func NewCohortExcluder(pattern string) (CohortExcluder, error) {
	if pattern == "" {
		return func(string) bool { return false }, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("cohort pattern 无效: %w", err)
	}
	return re.MatchString, nil
}

// GroupAggregate 单个班级在某一结果下的统计
type GroupAggregate struct {
	Site        string `json:"site"`
	Group       string `json:"group"`
	Count       int    `json:"count"`
	Denominator int    `json:"denominator"`
	Percent     int    `json:"percent"`
}

// Summary 一次汇总的结果，只在调用期间存在
type Summary struct {
	Range            Range
	Received         int
	NotReceived      int
	Absent           int
	InactiveStudents int
	TotalStudents    int
	ActiveStudents   int
	ActiveGroups     int
	PendingGroups    int
	Pending          []GroupKey
	OverallPercent   int
	ByOutcome        map[model.Outcome][]GroupAggregate
}

// Count 某一结果的记录数
func (s Summary) Count(o model.Outcome) int {
	switch o {
	case model.OutcomeReceived:
		return s.Received
	case model.OutcomeNotReceived:
		return s.NotReceived
	case model.OutcomeAbsent:
		return s.Absent
	default:
		return 0
	}
}

// Percent 四舍五入百分比，分母为 0 时返回 0
func Percent(num, den int) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den) * 100))
}

// ScopeStudents 按校区、班级筛选名单并剔除预备届次
func ScopeStudents(students []model.Student, f Filter, exclude CohortExcluder) []model.Student {
	out := make([]model.Student, 0, len(students))
	for _, st := range students {
		if !model.MatchesFilter(st.Site, f.Site) || !model.MatchesFilter(st.Group, f.Group) {
			continue
		}
		if exclude != nil && exclude(st.Group) {
			continue
		}
		out = append(out, st)
	}
	return out
}

type groupStats struct {
	active   int
	reported bool
	counts   map[model.Outcome]int
	// activeCounts 只计在读学生的记录，作为百分比分子
	activeCounts map[model.Outcome]int
}

// ═══════════════════════════════════════════════════════════
// Aggregate 汇总出勤
// ═══════════════════════════════════════════════════════════
//
// 步骤：
//  1. 名单按校区/班级筛选，剔除预备届次
//  2. 只保留区间内、且学生在筛选后名单中的记录
//  3. 按结果计数
//  4. 停用学生数是名单的时点事实，与区间无关
//  5. 按班级分桶，分母为该班在读人数
//  6. 待报班级 = 有在读学生但区间内无任何记录的班级
//  7. 总体百分比 = 在读学生领餐数 / (在读人数 × 工作日数)
//
// 计数包含已停用学生的历史记录；百分比分子只取在读学生，与分母同口径，不会超过 100%。
//
// 纯函数：不修改入参，相同输入得到相同输出。

func Aggregate(rng Range, students []model.Student, events []model.AttendanceEvent, f Filter, exclude CohortExcluder) Summary {
	scoped := ScopeStudents(students, f, exclude)

	sum := Summary{
		Range:     rng,
		ByOutcome: make(map[model.Outcome][]GroupAggregate, len(model.Outcomes)),
	}

	index := make(map[string]*model.Student, len(scoped))
	groups := make(map[GroupKey]*groupStats)
	for i := range scoped {
		st := &scoped[i]
		index[st.StudentID] = st
		key := GroupKey{Site: st.Site, Group: st.Group}
		g, ok := groups[key]
		if !ok {
			g = &groupStats{counts: make(map[model.Outcome]int), activeCounts: make(map[model.Outcome]int)}
			groups[key] = g
		}

		sum.TotalStudents++
		if st.IsActive() {
			sum.ActiveStudents++
			g.active++
		} else {
			sum.InactiveStudents++
		}
	}

	receivedActive := 0
	for _, e := range events {
		if !rng.Contains(e.Date) || !e.Outcome.Valid() {
			continue
		}
		st, ok := index[e.StudentID]
		if !ok {
			continue
		}
		switch e.Outcome {
		case model.OutcomeReceived:
			sum.Received++
		case model.OutcomeNotReceived:
			sum.NotReceived++
		case model.OutcomeAbsent:
			sum.Absent++
		}
		g := groups[GroupKey{Site: st.Site, Group: st.Group}]
		g.reported = true
		g.counts[e.Outcome]++
		if st.IsActive() {
			g.activeCounts[e.Outcome]++
			if e.Outcome == model.OutcomeReceived {
				receivedActive++
			}
		}
	}

	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortGroupKeys(keys)

	for _, k := range keys {
		g := groups[k]
		if g.active > 0 {
			sum.ActiveGroups++
			if !g.reported {
				sum.PendingGroups++
				sum.Pending = append(sum.Pending, k)
			}
		}
		if g.active == 0 && !g.reported {
			continue
		}
		for _, o := range model.Outcomes {
			sum.ByOutcome[o] = append(sum.ByOutcome[o], GroupAggregate{
				Site:        k.Site,
				Group:       k.Group,
				Count:       g.counts[o],
				Denominator: g.active,
				Percent:     Percent(g.activeCounts[o], g.active),
			})
		}
	}

	sum.OverallPercent = Percent(receivedActive, sum.ActiveStudents*rng.BusinessDays)
	return sum
}
