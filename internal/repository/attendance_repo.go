package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pae-asistencia/internal/model"
)

// AttendanceRepository 出勤记录数据访问接口
type AttendanceRepository interface {
	// List 日期闭区间查询；校区 / 班级条件通过 JOIN students 过滤
	List(ctx context.Context, filter model.AttendanceFilter) ([]model.AttendanceEvent, error)
	// UpsertBatch 按 (student_id, service_date) 覆盖，单条语句
	UpsertBatch(ctx context.Context, events []model.AttendanceEvent) error
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) List(ctx context.Context, filter model.AttendanceFilter) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent

	db := r.db.WithContext(ctx).Model(&model.AttendanceEvent{}).
		Where("attendance_events.service_date BETWEEN ? AND ?", filter.From.Format(dateLayout), filter.To.Format(dateLayout))

	if !model.IsUnfiltered(filter.Site) || !model.IsUnfiltered(filter.Group) {
		db = db.Joins("JOIN students ON students.student_id = attendance_events.student_id")
		if !model.IsUnfiltered(filter.Site) {
			db = db.Where("students.site = ?", filter.Site)
		}
		if !model.IsUnfiltered(filter.Group) {
			db = db.Where("students.group_label = ?", filter.Group)
		}
	}
	if len(filter.StudentIDs) > 0 {
		db = db.Where("attendance_events.student_id IN ?", filter.StudentIDs)
	}

	err := db.Order("attendance_events.service_date ASC, attendance_events.created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *attendanceRepo) UpsertBatch(ctx context.Context, events []model.AttendanceEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "service_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"outcome", "incident_category", "incident_note", "updated_at"}),
	}).Create(&events).Error
}
