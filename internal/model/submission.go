package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubmissionStatusDraft         = "draft"
	SubmissionStatusSubmitted     = "submitted"
	SubmissionStatusGraded        = "graded"
	SubmissionStatusReturned      = "returned"
	SubmissionStatusCancelled     = "cancelled"
	SubmissionStatusLateSubmitted = "late_submitted"
)

// PassingPercentage 及格线（百分比）
const PassingPercentage = 50

// Submission 作业提交表 — 对应 submissions
type Submission struct {
	ID             int64          `gorm:"primaryKey"                json:"id"`
	AssignmentID   int64          `gorm:"not null"                  json:"assignment_id"`
	StudentID      int64          `gorm:"not null"                  json:"student_id"`
	EnrollmentID   *int64         `json:"enrollment_id,omitempty"`
	AttemptNumber  int            `gorm:"type:smallint;not null"    json:"attempt_number"`
	Status         string         `gorm:"type:varchar(20);not null" json:"status"`
	SubmittedAt    *time.Time     `json:"submitted_at,omitempty"`
	GradedAt       *time.Time     `json:"graded_at,omitempty"`
	GradedBy       *int64         `json:"graded_by,omitempty"`
	AutoGraded     bool           `gorm:"not null"                  json:"auto_graded"`
	ScoreObtained  *int           `json:"score_obtained,omitempty"`
	MaxScoreCached int            `gorm:"not null"                  json:"max_score_cached"`
	IsLate         bool           `gorm:"not null"                  json:"is_late"`
	AnswerText     *string        `gorm:"type:text"                 json:"answer_text,omitempty"`
	AnswerJSON     datatypes.JSON `gorm:"column:answer_json;type:jsonb" json:"answer_json,omitempty"`
	FilePath       *string        `gorm:"type:varchar(500)"         json:"file_path,omitempty"`
	FeedbackText   *string        `gorm:"type:text"                 json:"feedback_text,omitempty"`
	BaseModel

	// 关联
	Student    *User       `gorm:"foreignKey:StudentID"    json:"student,omitempty"`
	Assignment *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
}

func (Submission) TableName() string { return "submissions" }

func (s *Submission) IsGraded() bool { return s.Status == SubmissionStatusGraded }

// ScorePercentage 得分百分比，未评分或满分为 0 时返回 0
func (s *Submission) ScorePercentage() float64 {
	if s.MaxScoreCached == 0 || s.ScoreObtained == nil {
		return 0
	}
	return float64(*s.ScoreObtained) / float64(s.MaxScoreCached) * 100
}

func (s *Submission) IsPassed() bool { return s.ScorePercentage() >= PassingPercentage }
