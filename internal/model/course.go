package model

import "time"

const (
	CourseStatusRegistrationOpen = "registration_open"
	CourseStatusOngoing          = "ongoing"
	CourseStatusFull             = "full"
	CourseStatusFinished         = "finished"
	CourseStatusCancelled        = "cancelled"
)

// Course 课程表 — 对应 courses
type Course struct {
	ID                   int64     `gorm:"primaryKey"                 json:"id"`
	Title                string    `gorm:"type:varchar(255);not null" json:"title"`
	Description          string    `gorm:"type:text;not null"         json:"description"`
	TeacherID            *int64    `json:"teacher_id,omitempty"`
	Price                int       `gorm:"not null"                   json:"price"`
	CapacityMin          int       `gorm:"not null"                   json:"capacity_min"`
	CapacityMax          int       `gorm:"not null"                   json:"capacity_max"`
	RegistrationDeadline time.Time `gorm:"not null"                   json:"registration_deadline"`
	StartDate            time.Time `gorm:"type:date;not null"         json:"start_date"`
	EndDate              time.Time `gorm:"type:date;not null"         json:"end_date"`
	IsActive             bool      `gorm:"not null"                   json:"is_active"`
	Status               string    `gorm:"type:varchar(30);not null"  json:"status"`
	BaseModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

func (Course) TableName() string { return "courses" }

// IsRegistrationOpen 报名截止前且状态为 registration_open
func (c *Course) IsRegistrationOpen(now time.Time) bool {
	return c.Status == CourseStatusRegistrationOpen && now.Before(c.RegistrationDeadline)
}

// IsFull activeCount 为未被拒绝且未取消的报名数
func (c *Course) IsFull(activeCount int64) bool {
	return activeCount >= int64(c.CapacityMax)
}

// RemainingCapacity enrolledCount 为 confirmed/completed 报名数
func (c *Course) RemainingCapacity(enrolledCount int64) int64 {
	remaining := int64(c.CapacityMax) - enrolledCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Course) HasStarted(now time.Time) bool { return !now.Before(c.StartDate) }

func (c *Course) HasEnded(now time.Time) bool { return now.After(c.EndDate) }

// IsTaughtBy 判断用户是否为本课程教师
func (c *Course) IsTaughtBy(userID int64) bool {
	return c.TeacherID != nil && *c.TeacherID == userID
}
