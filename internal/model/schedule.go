package model

import "time"

// ScheduleItem 每日供餐时段，对应 schedule_items
// 以日期为单位整体替换，不保留单项历史
type ScheduleItem struct {
	ScheduleItemID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_item_id"`
	Date           time.Time `gorm:"column:service_date;type:date;not null;index"   json:"date"`
	Position       int       `gorm:"type:smallint;not null;default:0"               json:"position"`
	StartTime      string    `gorm:"type:varchar(5);not null"                       json:"start_time"` // "11:30"
	EndTime        string    `gorm:"type:varchar(5);not null"                       json:"end_time"`
	GroupLabel     string    `gorm:"type:varchar(120);not null"                     json:"group_label"` // "601" 或 "601 + 602"
	Note           string    `gorm:"type:varchar(500);not null;default:''"          json:"note,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (ScheduleItem) TableName() string { return "schedule_items" }
