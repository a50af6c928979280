package repository

import "gorm.io/gorm"

// dateLayout DATE 列统一以字符串比较，避免驱动按会话时区换算
const dateLayout = "2006-01-02"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Student    StudentRepository
	Attendance AttendanceRepository
	Schedule   ScheduleRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Student:    NewStudentRepo(db),
		Attendance: NewAttendanceRepo(db),
		Schedule:   NewScheduleRepo(db),
	}
}
