package dto

// ── 供餐时段 DTO ──

// ScheduleItemRequest 单个时段
type ScheduleItemRequest struct {
	StartTime  string `json:"start_time"  binding:"required,clock"`
	EndTime    string `json:"end_time"    binding:"required,clock"`
	GroupLabel string `json:"group_label" binding:"required,max=120"`
	Note       string `json:"note"        binding:"omitempty,max=500"`
}

// ReplaceScheduleRequest 整日替换；空列表表示清空当日
type ReplaceScheduleRequest struct {
	Items []ScheduleItemRequest `json:"items" binding:"max=100,dive"`
}

// GenerateScheduleRequest 按时间窗自动生成时段
type GenerateScheduleRequest struct {
	Date        string `json:"date"         binding:"required,civildate"`
	Site        string `json:"site"         binding:"required,max=100"`
	StartTime   string `json:"start_time"   binding:"required,clock"`
	EndTime     string `json:"end_time"     binding:"required,clock"`
	SlotMinutes int    `json:"slot_minutes" binding:"required,min=5,max=180"`
	Capacity    int    `json:"capacity"     binding:"required,min=1,max=2000"`
	Save        bool   `json:"save"`
}

// ScheduleItemResponse 时段响应
type ScheduleItemResponse struct {
	ID         string `json:"id,omitempty"`
	Position   int    `json:"position"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	GroupLabel string `json:"group_label"`
	Note       string `json:"note,omitempty"`
}

// ScheduleResponse 某日的时段列表
type ScheduleResponse struct {
	Date  string                 `json:"date"`
	Items []ScheduleItemResponse `json:"items"`
}
