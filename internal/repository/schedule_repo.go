package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pae-asistencia/internal/model"
)

// ScheduleRepository 每日供餐时段数据访问接口
type ScheduleRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]model.ScheduleItem, error)
	// ReplaceForDate 在事务中整日替换：先删除当日旧时段，再批量插入
	ReplaceForDate(ctx context.Context, date time.Time, items []model.ScheduleItem) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) ListByDate(ctx context.Context, date time.Time) ([]model.ScheduleItem, error) {
	var items []model.ScheduleItem
	err := r.db.WithContext(ctx).
		Where("service_date = ?", date.Format(dateLayout)).
		Order("position ASC, start_time ASC").
		Find(&items).Error
	return items, err
}

func (r *scheduleRepo) ReplaceForDate(ctx context.Context, date time.Time, items []model.ScheduleItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_date = ?", date.Format(dateLayout)).
			Delete(&model.ScheduleItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
