package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AssignmentTypeText        = "text"
	AssignmentTypeMCQ         = "mcq"
	AssignmentTypeFillBlank   = "fill_blank"
	AssignmentTypeTranslation = "translation"
	AssignmentTypeFile        = "file"

	AssignmentStatusDraft     = "draft"
	AssignmentStatusPublished = "published"
	AssignmentStatusClosed    = "closed"
)

// Assignment 作业表 — 对应 assignments
type Assignment struct {
	ID            int64          `gorm:"primaryKey"                 json:"id"`
	SessionID     int64          `gorm:"not null"                   json:"session_id"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Description   *string        `gorm:"type:text"                  json:"description,omitempty"`
	Type          string         `gorm:"type:varchar(20);not null"  json:"type"` // text | mcq | fill_blank | translation | file
	CorrectAnswer *string        `gorm:"type:text"                  json:"correct_answer,omitempty"`
	Options       datatypes.JSON `gorm:"type:jsonb"                 json:"options,omitempty"`
	Score         int            `gorm:"not null"                   json:"score"`
	Deadline      time.Time      `gorm:"not null"                   json:"deadline"`
	AllowLate     bool           `gorm:"not null"                   json:"allow_late"`
	Status        string         `gorm:"type:varchar(20);not null"  json:"status"` // draft | published | closed
	BaseModel

	// 关联
	Session *ClassSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

func (a *Assignment) IsPublished() bool { return a.Status == AssignmentStatusPublished }

// IsValidAssignmentType 校验作业类型取值
func IsValidAssignmentType(t string) bool {
	switch t {
	case AssignmentTypeText, AssignmentTypeMCQ, AssignmentTypeFillBlank,
		AssignmentTypeTranslation, AssignmentTypeFile:
		return true
	}
	return false
}

// IsManualGradingType translation 与 file 类型只能人工批改
func IsManualGradingType(t string) bool {
	return t == AssignmentTypeTranslation || t == AssignmentTypeFile
}

// AssignmentPersonalization 作业个性化表 — 对应 assignment_personalizations
// 为某个学生覆盖作业的部分字段，nil 表示沿用原作业
type AssignmentPersonalization struct {
	ID                  int64          `gorm:"primaryKey"       json:"id"`
	AssignmentID        int64          `gorm:"not null"         json:"assignment_id"`
	StudentID           int64          `gorm:"not null"         json:"student_id"`
	CustomTitle         *string        `gorm:"type:varchar(255)" json:"custom_title,omitempty"`
	CustomDescription   *string        `gorm:"type:text"        json:"custom_description,omitempty"`
	CustomType          *string        `gorm:"type:varchar(20)" json:"custom_type,omitempty"`
	CustomOptions       datatypes.JSON `gorm:"type:jsonb"       json:"custom_options,omitempty"`
	CustomCorrectAnswer *string        `gorm:"type:text"        json:"custom_correct_answer,omitempty"`
	CustomDeadline      *time.Time     `json:"custom_deadline,omitempty"`
	CustomScore         *int           `json:"custom_score,omitempty"`
	CreatedBy           int64          `gorm:"not null"         json:"created_by"`
	BaseModel
}

func (AssignmentPersonalization) TableName() string { return "assignment_personalizations" }

// HasCustomOptions JSON null 视为未覆盖
func (p *AssignmentPersonalization) HasCustomOptions() bool {
	return len(p.CustomOptions) > 0 && string(p.CustomOptions) != "null"
}
