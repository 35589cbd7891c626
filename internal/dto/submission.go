package dto

import "encoding/json"

// ── 作业提交模块 DTO ──

// SubmitAssignmentRequest 提交作业请求（multipart 表单或 JSON）
// 附件通过表单字段 file 上传
type SubmitAssignmentRequest struct {
	AnswerText *string         `json:"answer_text" form:"answer_text" binding:"omitempty,max=10000"`
	AnswerJSON json.RawMessage `json:"answer_json" form:"-"`
	// AnswerJSONForm multipart 表单中的 answer_json 原始字符串
	AnswerJSONForm string `json:"-" form:"answer_json"`
}

// GradeSubmissionRequest 人工评分请求
type GradeSubmissionRequest struct {
	ScoreObtained *int    `json:"score_obtained" binding:"required,min=0"`
	FeedbackText  *string `json:"feedback_text"  binding:"omitempty,max=5000"`
}

// SubmissionResponse 提交记录响应
type SubmissionResponse struct {
	ID              int64           `json:"id"`
	AssignmentID    int64           `json:"assignment_id"`
	Student         *UserBrief      `json:"student,omitempty"`
	StudentID       int64           `json:"student_id"`
	AttemptNumber   int             `json:"attempt_number"`
	Status          string          `json:"status"`
	SubmittedAt     *string         `json:"submitted_at"`
	GradedAt        *string         `json:"graded_at"`
	GradedBy        *int64          `json:"graded_by"`
	AutoGraded      bool            `json:"auto_graded"`
	ScoreObtained   *int            `json:"score_obtained"`
	MaxScore        int             `json:"max_score"`
	ScorePercentage float64         `json:"score_percentage"`
	IsPassed        bool            `json:"is_passed"`
	IsLate          bool            `json:"is_late"`
	AnswerText      *string         `json:"answer_text,omitempty"`
	AnswerJSON      json.RawMessage `json:"answer_json,omitempty"`
	FileURL         string          `json:"file_url,omitempty"`
	FeedbackText    *string         `json:"feedback_text,omitempty"`
}

// AssignmentSubmissionsResponse 一个作业及其提交列表
type AssignmentSubmissionsResponse struct {
	Assignment  AssignmentResponse   `json:"assignment"`
	Submissions []SubmissionResponse `json:"submissions"`
}
