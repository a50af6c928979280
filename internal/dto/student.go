package dto

// ── 学生名单 DTO ──

// StudentListRequest 名单查询参数
type StudentListRequest struct {
	PaginationRequest
	Site   string `form:"site"   binding:"omitempty,max=100"`
	Group  string `form:"group"  binding:"omitempty,max=50"`
	Status string `form:"status" binding:"omitempty,student_status"`
}

// StudentResponse 学生信息
type StudentResponse struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	EnrollmentCode string `json:"enrollment_code"`
	Grade          string `json:"grade"`
	Group          string `json:"group"`
	Site           string `json:"site"`
	Status         string `json:"status"`
}

// ImportStudentResponse 批量导入结果
type ImportStudentResponse struct {
	Total         int              `json:"total"`
	Success       int              `json:"success"`
	Failed        int              `json:"failed"`
	Batches       int              `json:"batches"`
	FailedBatches int              `json:"failed_batches"`
	Message       string           `json:"message"`
	Errors        []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 单行解析失败
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// UpdateStatusRequest 批量启用 / 停用
type UpdateStatusRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,max=1000,dive,uuid"`
	Status     string   `json:"status"      binding:"required,student_status"`
}

// MoveGroupRequest 批量调班
type MoveGroupRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,max=1000,dive,uuid"`
	Group      string   `json:"group"       binding:"required,max=50"`
	Grade      string   `json:"grade"       binding:"omitempty,max=50"`
}

// RenameGroupRequest 班级改名（同一校区内）
type RenameGroupRequest struct {
	Site string `json:"site" binding:"required,max=100"`
	From string `json:"from" binding:"required,max=50"`
	To   string `json:"to"   binding:"required,max=50,nefield=From"`
}

// CreateStudentRequest 新增单个学生
type CreateStudentRequest struct {
	FullName       string `json:"full_name"       binding:"required,min=2,max=200"`
	EnrollmentCode string `json:"enrollment_code" binding:"required,max=50"`
	Grade          string `json:"grade"           binding:"omitempty,max=50"`
	Group          string `json:"group"           binding:"required,max=50"`
	Site           string `json:"site"            binding:"required,max=100"`
}
