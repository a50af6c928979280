package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pae-asistencia/internal/model"
)

// StudentRepository 学生名单数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	List(ctx context.Context, filter model.StudentFilter) ([]model.Student, error)
	Page(ctx context.Context, filter model.StudentFilter, offset, limit int) ([]model.Student, int64, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Student, error)
	// UpsertBatch 按 enrollment_code 插入或覆盖，单条语句
	UpsertBatch(ctx context.Context, students []model.Student) error
	UpdateStatus(ctx context.Context, ids []string, status model.StudentStatus) (int64, error)
	MoveGroup(ctx context.Context, ids []string, grade, group string) (int64, error)
	RenameGroup(ctx context.Context, site, from, to string) (int64, error)
	ListSites(ctx context.Context) ([]string, error)
	ListGroups(ctx context.Context, site string) ([]model.GroupRef, error)
}

// studentRepo StudentRepository 的 GORM 实现
type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func applyStudentFilter(db *gorm.DB, filter model.StudentFilter) *gorm.DB {
	if !model.IsUnfiltered(filter.Site) {
		db = db.Where("site = ?", filter.Site)
	}
	if !model.IsUnfiltered(filter.Group) {
		db = db.Where("group_label = ?", filter.Group)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if len(filter.IDs) > 0 {
		db = db.Where("student_id IN ?", filter.IDs)
	}
	return db
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) List(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	var students []model.Student
	err := applyStudentFilter(r.db.WithContext(ctx).Model(&model.Student{}), filter).
		Order("site ASC, group_label ASC, full_name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) Page(ctx context.Context, filter model.StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := applyStudentFilter(r.db.WithContext(ctx).Model(&model.Student{}), filter)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("site ASC, group_label ASC, full_name ASC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Student, error) {
	var students []model.Student
	if len(ids) == 0 {
		return students, nil
	}
	err := r.db.WithContext(ctx).Where("student_id IN ?", ids).Find(&students).Error
	return students, err
}

func (r *studentRepo) UpsertBatch(ctx context.Context, students []model.Student) error {
	if len(students) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "enrollment_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "grade", "group_label", "site", "status", "updated_at"}),
	}).Create(&students).Error
}

func (r *studentRepo) UpdateStatus(ctx context.Context, ids []string, status model.StudentStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("student_id IN ?", ids).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *studentRepo) MoveGroup(ctx context.Context, ids []string, grade, group string) (int64, error) {
	fields := map[string]interface{}{"group_label": group, "updated_at": time.Now()}
	if grade != "" {
		fields["grade"] = grade
	}
	res := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("student_id IN ?", ids).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *studentRepo) RenameGroup(ctx context.Context, site, from, to string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("site = ? AND group_label = ?", site, from).
		Updates(map[string]interface{}{"group_label": to, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *studentRepo) ListSites(ctx context.Context) ([]string, error) {
	var sites []string
	err := r.db.WithContext(ctx).Model(&model.Student{}).
		Distinct("site").
		Order("site ASC").
		Pluck("site", &sites).Error
	return sites, err
}

func (r *studentRepo) ListGroups(ctx context.Context, site string) ([]model.GroupRef, error) {
	var groups []model.GroupRef
	db := r.db.WithContext(ctx).Model(&model.Student{}).
		Select("DISTINCT site, grade, group_label AS \"group\"").
		Where("status = ?", model.StudentActive)
	if !model.IsUnfiltered(site) {
		db = db.Where("site = ?", site)
	}
	err := db.Order("site ASC, group_label ASC").Scan(&groups).Error
	return groups, err
}
