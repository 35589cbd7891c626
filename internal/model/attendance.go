package model

const (
	AttendanceStatusPresent = "present"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusLate    = "late"
	AttendanceStatusExcused = "excused"
)

// Attendance 考勤表 — 对应 attendances
type Attendance struct {
	ID        int64   `gorm:"primaryKey"                json:"id"`
	SessionID int64   `gorm:"not null"                  json:"session_id"`
	StudentID int64   `gorm:"not null"                  json:"student_id"`
	Status    string  `gorm:"type:varchar(20);not null" json:"status"`
	Note      *string `gorm:"type:text"                 json:"note,omitempty"`
	BaseModel

	// 关联
	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (Attendance) TableName() string { return "attendances" }

func IsValidAttendanceStatus(s string) bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	}
	return false
}
