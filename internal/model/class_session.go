package model

import (
	"fmt"
	"time"
)

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusHeld      = "held"
	SessionStatusCancelled = "cancelled"
	SessionStatusPostponed = "postponed"
)

// ClassSession 课次表 — 对应 class_sessions
type ClassSession struct {
	ID            int64     `gorm:"primaryKey"                 json:"id"`
	CourseID      int64     `gorm:"not null"                   json:"course_id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	SessionNumber int       `gorm:"not null"                   json:"session_number"`
	SessionDate   time.Time `gorm:"type:date;not null"         json:"session_date"`
	StartTime     string    `gorm:"type:varchar(5);not null"   json:"start_time"` // HH:MM
	EndTime       string    `gorm:"type:varchar(5);not null"   json:"end_time"`   // HH:MM
	MeetingLink   *string   `gorm:"type:varchar(500)"          json:"meeting_link,omitempty"`
	Status        string    `gorm:"type:varchar(20);not null"  json:"status"`
	Description   *string   `gorm:"type:text"                  json:"description,omitempty"`
	HasMaterials  bool      `gorm:"not null"                   json:"has_materials"`
	BaseModel

	// 关联
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (ClassSession) TableName() string { return "class_sessions" }

// StartsAt 课次开始时刻（session_date 所在时区）
func (s *ClassSession) StartsAt() (time.Time, error) { return s.at(s.StartTime) }

// EndsAt 课次结束时刻
func (s *ClassSession) EndsAt() (time.Time, error) { return s.at(s.EndTime) }

func (s *ClassSession) at(hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("课次时间格式错误 %q: %w", hhmm, err)
	}
	y, m, d := s.SessionDate.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, s.SessionDate.Location()), nil
}

// DurationMinutes 课次时长（分钟），时间非法时为 0
func (s *ClassSession) DurationMinutes() int {
	start, err1 := s.StartsAt()
	end, err2 := s.EndsAt()
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

func (s *ClassSession) IsPast(now time.Time) bool {
	end, err := s.EndsAt()
	return err == nil && now.After(end)
}

func (s *ClassSession) IsUpcoming(now time.Time) bool {
	start, err := s.StartsAt()
	return err == nil && now.Before(start)
}

// IsValidSessionStatus 校验课次状态取值
func IsValidSessionStatus(status string) bool {
	switch status {
	case SessionStatusScheduled, SessionStatusHeld, SessionStatusCancelled, SessionStatusPostponed:
		return true
	}
	return false
}
