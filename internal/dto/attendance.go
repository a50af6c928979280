package dto

// ── 出勤登记 DTO ──

// ClassroomQuery 教室点名视图
type ClassroomQuery struct {
	Site  string `form:"site"  binding:"required,max=100"`
	Group string `form:"group" binding:"required,max=50"`
	Date  string `form:"date"  binding:"omitempty,civildate"`
}

// ClassroomEntry 教室中一个学生当日的状态
type ClassroomEntry struct {
	StudentID        string `json:"student_id"`
	FullName         string `json:"full_name"`
	Outcome          string `json:"outcome,omitempty"`
	Label            string `json:"label"`
	IncidentCategory string `json:"incident_category,omitempty"`
	IncidentNote     string `json:"incident_note,omitempty"`
	Recorded         bool   `json:"recorded"`
}

// ClassroomResponse 教室点名视图响应
type ClassroomResponse struct {
	Date    string           `json:"date"`
	Site    string           `json:"site"`
	Group   string           `json:"group"`
	Entries []ClassroomEntry `json:"entries"`
}

// AttendanceEntry 单个学生的登记
type AttendanceEntry struct {
	StudentID        string `json:"student_id"        binding:"required,uuid"`
	Outcome          string `json:"outcome"           binding:"required,outcome"`
	IncidentCategory string `json:"incident_category" binding:"omitempty,max=100"`
	IncidentNote     string `json:"incident_note"     binding:"omitempty,max=500"`
}

// RegisterAttendanceRequest 按班级整体提交某日出勤
type RegisterAttendanceRequest struct {
	Date    string            `json:"date"    binding:"required,civildate"`
	Site    string            `json:"site"    binding:"required,max=100"`
	Group   string            `json:"group"   binding:"required,max=50"`
	Entries []AttendanceEntry `json:"entries" binding:"required,min=1,max=200,dive"`
}

// RegisterAttendanceResponse 登记结果
type RegisterAttendanceResponse struct {
	Date  string `json:"date"`
	Saved int    `json:"saved"`
}
