package dto

import (
	"encoding/json"
	"time"
)

// ── 作业模块 DTO ──

// CreateAssignmentRequest 创建作业请求
type CreateAssignmentRequest struct {
	SessionID     int64           `json:"session_id"     binding:"required,min=1"`
	Title         string          `json:"title"          binding:"required,max=255"`
	Description   *string         `json:"description"`
	Type          string          `json:"type"           binding:"required,assignment_type"`
	CorrectAnswer *string         `json:"correct_answer"`
	Options       json.RawMessage `json:"options"`
	Score         int             `json:"score"          binding:"omitempty,min=1,max=1000"`
	Deadline      time.Time       `json:"deadline"       binding:"required"`
	AllowLate     bool            `json:"allow_late"`
	Status        string          `json:"status"         binding:"omitempty,oneof=draft published closed"`
}

// UpdateAssignmentRequest 更新作业请求
type UpdateAssignmentRequest struct {
	Title         *string         `json:"title"          binding:"omitempty,max=255"`
	Description   *string         `json:"description"`
	Type          *string         `json:"type"           binding:"omitempty,assignment_type"`
	CorrectAnswer *string         `json:"correct_answer"`
	Options       json.RawMessage `json:"options"`
	Score         *int            `json:"score"          binding:"omitempty,min=1,max=1000"`
	Deadline      *time.Time      `json:"deadline"`
	AllowLate     *bool           `json:"allow_late"`
	Status        *string         `json:"status"         binding:"omitempty,oneof=draft published closed"`
}

// PersonalizationItem 单个学生的作业个性化设置
type PersonalizationItem struct {
	StudentID           int64           `json:"student_id"            binding:"required,min=1"`
	CustomTitle         *string         `json:"custom_title"          binding:"omitempty,max=255"`
	CustomDescription   *string         `json:"custom_description"`
	CustomType          *string         `json:"custom_type"           binding:"omitempty,assignment_type"`
	CustomOptions       json.RawMessage `json:"custom_options"`
	CustomCorrectAnswer *string         `json:"custom_correct_answer"`
	CustomDeadline      *time.Time      `json:"custom_deadline"`
	CustomScore         *int            `json:"custom_score"          binding:"omitempty,min=1,max=1000"`
}

// UpsertPersonalizationsRequest 批量设置作业个性化
type UpsertPersonalizationsRequest struct {
	Items []PersonalizationItem `json:"items" binding:"required,min=1,dive"`
}

// AssignmentResponse 作业信息响应（不含标准答案）
type AssignmentResponse struct {
	ID          int64           `json:"id"`
	SessionID   int64           `json:"session_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Type        string          `json:"type"`
	Options     json.RawMessage `json:"options,omitempty"`
	Score       int             `json:"score"`
	Deadline    string          `json:"deadline"`
	AllowLate   bool            `json:"allow_late"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
}

// AssignmentDetailResponse 教师视角的作业详情（含标准答案与个性化）
type AssignmentDetailResponse struct {
	AssignmentResponse
	CorrectAnswer    *string                   `json:"correct_answer,omitempty"`
	Personalizations []PersonalizationResponse `json:"personalizations"`
}

// PersonalizationResponse 个性化设置响应
type PersonalizationResponse struct {
	StudentID           int64           `json:"student_id"`
	CustomTitle         *string         `json:"custom_title,omitempty"`
	CustomDescription   *string         `json:"custom_description,omitempty"`
	CustomType          *string         `json:"custom_type,omitempty"`
	CustomOptions       json.RawMessage `json:"custom_options,omitempty"`
	CustomCorrectAnswer *string         `json:"custom_correct_answer,omitempty"`
	CustomDeadline      *string         `json:"custom_deadline,omitempty"`
	CustomScore         *int            `json:"custom_score,omitempty"`
}
