package dto

// ── 课次模块 DTO ──

// UpdateSessionStatusRequest 修改课次状态
type UpdateSessionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=scheduled held cancelled postponed"`
}

// ClassSessionResponse 课次信息响应
type ClassSessionResponse struct {
	ID            int64   `json:"id"`
	CourseID      int64   `json:"course_id"`
	Title         string  `json:"title"`
	SessionNumber int     `json:"session_number"`
	SessionDate   string  `json:"session_date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	MeetingLink   *string `json:"meeting_link,omitempty"`
	Status        string  `json:"status"`
}

// ── 考勤模块 DTO ──

// AttendanceItem 单个学生的考勤记录
type AttendanceItem struct {
	StudentID int64   `json:"student_id" binding:"required,min=1"`
	Status    string  `json:"status"     binding:"required,oneof=present absent late excused"`
	Note      *string `json:"note"       binding:"omitempty,max=1000"`
}

// UpsertAttendanceRequest 批量登记考勤
type UpsertAttendanceRequest struct {
	Items []AttendanceItem `json:"items" binding:"required,min=1,dive"`
}

// AttendanceResponse 考勤记录响应
type AttendanceResponse struct {
	StudentID int64   `json:"student_id"`
	Status    string  `json:"status"`
	Note      *string `json:"note,omitempty"`
}

// ── 站内通知 DTO ──

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
}

// NotificationResponse 站内通知响应
type NotificationResponse struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Body      *string `json:"body,omitempty"`
	Link      *string `json:"link,omitempty"`
	ReadAt    *string `json:"read_at"`
	CreatedAt string  `json:"created_at"`
}
