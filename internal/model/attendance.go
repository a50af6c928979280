package model

import "time"

// Outcome 出勤结果
type Outcome string

const (
	OutcomeReceived    Outcome = "received"
	OutcomeNotReceived Outcome = "not_received"
	OutcomeAbsent      Outcome = "absent"
)

// Outcomes 固定展示顺序
var Outcomes = []Outcome{OutcomeReceived, OutcomeNotReceived, OutcomeAbsent}

// Valid 是否为合法结果
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeReceived, OutcomeNotReceived, OutcomeAbsent:
		return true
	default:
		return false
	}
}

// Label 报表展示文字
func (o Outcome) Label() string {
	switch o {
	case OutcomeReceived:
		return "Recibió"
	case OutcomeNotReceived:
		return "No recibió"
	case OutcomeAbsent:
		return "Ausente"
	default:
		return string(o)
	}
}

// Glyph 矩阵单元格代码
func (o Outcome) Glyph() string {
	switch o {
	case OutcomeReceived:
		return "R"
	case OutcomeNotReceived:
		return "N"
	case OutcomeAbsent:
		return "A"
	default:
		return "?"
	}
}

// AttendanceEvent 每日出勤记录，对应 attendance_events
// (student_id, service_date) 唯一，重复提交覆盖旧记录
type AttendanceEvent struct {
	AttendanceID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	StudentID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_student_date,priority:1" json:"student_id"`
	Date             time.Time `gorm:"column:service_date;type:date;not null;uniqueIndex:uq_attendance_student_date,priority:2" json:"date"`
	Outcome          Outcome   `gorm:"type:varchar(20);not null"                      json:"outcome"`
	IncidentCategory string    `gorm:"type:varchar(100);not null;default:''"          json:"incident_category,omitempty"`
	IncidentNote     string    `gorm:"type:text;not null;default:''"                  json:"incident_note,omitempty"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

func (AttendanceEvent) TableName() string { return "attendance_events" }

// AttendanceFilter 出勤查询条件，日期区间闭区间
type AttendanceFilter struct {
	From       time.Time
	To         time.Time
	Site       string
	Group      string
	StudentIDs []string
}
