package model

// StudentStatus 学生状态：只在 active 与 inactive 之间切换，不做物理删除，
// 以保留历史出勤记录的引用
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentInactive StudentStatus = "inactive"
)

// Valid 是否为合法状态
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentActive, StudentInactive:
		return true
	default:
		return false
	}
}

// CanTransition 状态机：active ⇄ inactive
func (s StudentStatus) CanTransition(to StudentStatus) bool {
	return s.Valid() && to.Valid() && s != to
}

// Student 学生名单，对应 students
type Student struct {
	StudentID      string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	FullName       string        `gorm:"type:varchar(200);not null"                     json:"full_name"`
	EnrollmentCode string        `gorm:"type:varchar(50);not null;uniqueIndex:uq_students_enrollment_code" json:"enrollment_code"`
	Grade          string        `gorm:"type:varchar(50);not null;default:''"           json:"grade"`
	Group          string        `gorm:"column:group_label;type:varchar(50);not null"   json:"group"`
	Site           string        `gorm:"type:varchar(100);not null"                     json:"site"`
	Status         StudentStatus `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel
}

func (Student) TableName() string { return "students" }

// IsActive 是否在读
func (s *Student) IsActive() bool { return s.Status == StudentActive }

// StudentFilter 名单查询条件
type StudentFilter struct {
	Site   string
	Group  string
	Status StudentStatus // 空串表示不限
	IDs    []string
}

// GroupRef 校区下的班级
type GroupRef struct {
	Site  string `json:"site"`
	Grade string `json:"grade"`
	Group string `json:"group"`
}
