package model

import "time"

// FilterAll 筛选哨兵值：不限校区 / 不限班级
const FilterAll = "all"

// MatchesFilter 判断取值是否通过筛选条件，空串与 FilterAll 均视为不限
func MatchesFilter(value, filter string) bool {
	return filter == "" || filter == FilterAll || value == filter
}

// IsUnfiltered 判断筛选条件是否为不限
func IsUnfiltered(filter string) bool {
	return filter == "" || filter == FilterAll
}

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

